// Package provision implements the transactional provisioning workflow:
// it instantiates a structure template for a customer, creates the
// folder hierarchy and credential records in the vault, renders and
// converts the credential sheet, uploads it and issues a one-time share
// link. When any step fails, every object created for that customer is
// rolled back.
package provision

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/convert"
	"github.com/medienwerk/credsheet/internal/credgen"
	"github.com/medienwerk/credsheet/internal/models"
	"github.com/medienwerk/credsheet/internal/render"
)

// VaultAPI is the full vault surface the orchestrator composes for its
// provisioners and collaborators. *vault.Client and vaulttest.Store both
// satisfy it.
type VaultAPI interface {
	Resolve(ctx context.Context, ref string) (string, error)
	GetRecord(ctx context.Context, uid string) (*models.VaultRecord, error)
	ListFolders(ctx context.Context, parentUID string) ([]models.VaultFolder, error)
	ListRecords(ctx context.Context, folderUID string, recursive bool) ([]models.VaultRecord, error)
	CreateFolder(ctx context.Context, name, parentUID string) (*models.VaultFolder, error)
	DeleteFolder(ctx context.Context, uid string) error
	CreateRecord(ctx context.Context, rec *models.VaultRecord) (*models.VaultRecord, error)
	DeleteRecord(ctx context.Context, uid string) error
	AttachFile(ctx context.Context, recordUID, name string, data []byte) error
	DownloadFile(ctx context.Context, recordUID, name string) ([]byte, error)
	CreateShareLink(ctx context.Context, recordUID string, ttl time.Duration) (*models.ShareLink, error)
}

// ContextBuilder assembles the template context from the customer's
// freshly provisioned folder.
type ContextBuilder interface {
	Build(ctx context.Context, folderUID string, customer models.CustomerSpec) (map[string]string, error)
}

// Config carries the run-wide inputs of the workflow.
type Config struct {
	// StructureRecordUID is the record whose notes hold the structure
	// template JSON.
	StructureRecordUID string
	// TemplateRecordUID is the record carrying the document template as
	// an attachment.
	TemplateRecordUID string
	// TargetFolder is the UID or path under which customer hierarchies
	// are created.
	TargetFolder string
	// ShareTTL is the lifetime of issued share links.
	ShareTTL time.Duration
	// Policy governs generated secrets.
	Policy credgen.Policy
}

// Orchestrator drives one customer at a time through the provisioning
// state machine. Customers are processed sequentially; the vault session
// is the only state shared between them and is never mutated here.
type Orchestrator struct {
	vault     VaultAPI
	builder   ContextBuilder
	renderer  render.Renderer
	converter convert.Converter
	folders   *FolderProvisioner
	records   *RecordProvisioner
	cfg       Config
	log       *zap.Logger
}

// NewOrchestrator wires the workflow components around one vault session.
func NewOrchestrator(vault VaultAPI, builder ContextBuilder, renderer render.Renderer, converter convert.Converter, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.ShareTTL <= 0 {
		cfg.ShareTTL = 7 * 24 * time.Hour
	}
	if cfg.Policy == (credgen.Policy{}) {
		cfg.Policy = credgen.DefaultPolicy
	}
	return &Orchestrator{
		vault:     vault,
		builder:   builder,
		renderer:  renderer,
		converter: converter,
		folders:   NewFolderProvisioner(vault, log),
		records:   NewRecordProvisioner(vault, log),
		cfg:       cfg,
		log:       log,
	}
}

// ProcessCustomer runs the full workflow for one customer and returns
// its terminal result. Every failure after the first vault mutation
// triggers a rollback of that customer's transaction; cancellation is
// honored at each state transition and also ends in a rollback, never in
// a transaction left open.
func (o *Orchestrator) ProcessCustomer(ctx context.Context, customer models.CustomerSpec) models.CustomerResult {
	result := models.CustomerResult{Customer: customer, State: models.StatePending}

	if err := validateCustomer(customer); err != nil {
		// Bad specs are skipped before any vault mutation.
		result.State = models.StateRolledBack
		result.Err = err
		result.ErrKind = models.ErrKind(err)
		o.log.Warn("customer skipped", zap.String("customer", customer.Name), zap.Error(err))
		return result
	}

	tx := NewTransaction(customer.Name, o.vault, o.log)
	share, err := o.run(ctx, tx, customer, &result.State)
	if err != nil {
		// Rollback must run even when the context is already canceled.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			o.log.Error("incomplete rollback", zap.String("customer", customer.Name), zap.Error(rbErr))
		}
		result.State = models.StateRolledBack
		result.Err = err
		result.ErrKind = models.ErrKind(err)
		o.log.Error("customer rolled back",
			zap.String("customer", customer.Name),
			zap.String("error_kind", result.ErrKind),
			zap.Error(err))
		return result
	}

	if err := tx.Commit(); err != nil {
		// Unreachable unless the transaction was finished twice.
		o.log.Error("commit failed", zap.String("customer", customer.Name), zap.Error(err))
	}
	result.State = models.StateCommitted
	result.Share = share
	o.log.Info("customer committed",
		zap.String("customer", customer.Name),
		zap.String("share_token", share.Token),
		zap.Time("share_expires", share.ExpiresAt))
	return result
}

// run executes the state machine body. state always holds the step that
// was in flight when run returned, so failures are attributable.
func (o *Orchestrator) run(ctx context.Context, tx *Transaction, customer models.CustomerSpec, state *models.State) (*models.ShareLink, error) {
	if err := advance(ctx, state, models.StateContextBuilding); err != nil {
		return nil, err
	}
	targetUID, structure, docTemplate, err := o.prepare(ctx, customer)
	if err != nil {
		return nil, err
	}

	if err := advance(ctx, state, models.StateProvisioning); err != nil {
		return nil, err
	}
	root, subUIDs, err := o.folders.CreateHierarchy(ctx, tx, structure.RootFolder, structure.Subfolders, targetUID)
	if err != nil {
		return nil, err
	}
	for _, spec := range structure.Records {
		folderUID := root.UID
		if uid, ok := subUIDs[spec.Folder]; ok && spec.Folder != "" {
			folderUID = uid
		}
		if _, err := o.records.CreateRecord(ctx, tx, folderUID, spec.Type, spec.Title, spec.Fields); err != nil {
			return nil, err
		}
	}

	if err := advance(ctx, state, models.StateRendering); err != nil {
		return nil, err
	}
	tc, err := o.builder.Build(ctx, root.UID, customer)
	if err != nil {
		return nil, err
	}
	document, err := o.renderer.Render(docTemplate, tc)
	if err != nil {
		return nil, err
	}

	if err := advance(ctx, state, models.StateConverting); err != nil {
		return nil, err
	}
	pdf, err := o.converter.ConvertToPDF(ctx, document)
	if err != nil {
		return nil, err
	}

	if err := advance(ctx, state, models.StateUploading); err != nil {
		return nil, err
	}
	filename := tc["customer_name"] + "_Credentials.pdf"
	sheet, err := o.records.CreateRecord(ctx, tx, root.UID, models.Document, filename, map[string]string{"filename": filename})
	if err != nil {
		return nil, err
	}
	if err := o.records.Attach(ctx, sheet.UID, filename, pdf); err != nil {
		return nil, err
	}

	if err := advance(ctx, state, models.StateSharing); err != nil {
		return nil, err
	}
	share, err := o.vault.CreateShareLink(ctx, sheet.UID, o.cfg.ShareTTL)
	if err != nil {
		return nil, err
	}
	return share, nil
}

// prepare resolves the run inputs for one customer: the target folder
// UID, the instantiated structure template (with fresh secrets) and the
// raw document template bytes.
func (o *Orchestrator) prepare(ctx context.Context, customer models.CustomerSpec) (string, *StructureTemplate, []byte, error) {
	targetUID, err := o.vault.Resolve(ctx, o.cfg.TargetFolder)
	if err != nil {
		return "", nil, nil, &models.ValidationError{Field: "target folder", Message: err.Error()}
	}

	structureRec, err := o.vault.GetRecord(ctx, o.cfg.StructureRecordUID)
	if err != nil {
		return "", nil, nil, &models.ValidationError{Field: "structure record", Message: err.Error()}
	}
	parsed, err := ParseStructure(structureRec.Notes)
	if err != nil {
		return "", nil, nil, err
	}
	structure, err := parsed.Instantiate(customer, o.cfg.Policy)
	if err != nil {
		return "", nil, nil, err
	}

	templateRec, err := o.vault.GetRecord(ctx, o.cfg.TemplateRecordUID)
	if err != nil {
		return "", nil, nil, &models.ValidationError{Field: "template record", Message: err.Error()}
	}
	name, ok := templateRec.FieldValue("filename")
	if !ok || name == "" {
		return "", nil, nil, &models.ValidationError{Field: "template record", Message: "no filename field"}
	}
	docTemplate, err := o.vault.DownloadFile(ctx, templateRec.UID, name)
	if err != nil {
		return "", nil, nil, &models.ValidationError{Field: "template record", Message: err.Error()}
	}

	return targetUID, structure, docTemplate, nil
}

// advance moves the state machine forward, honoring cancellation at the
// transition boundary.
func advance(ctx context.Context, state *models.State, next models.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	*state = next
	return nil
}

// validateCustomer rejects specs that cannot be provisioned.
func validateCustomer(customer models.CustomerSpec) error {
	if customer.Name == "" {
		return &models.ValidationError{Field: "name", Message: "customer name is required"}
	}
	if !customer.Category.Valid() {
		return &models.ValidationError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q", customer.Category),
		}
	}
	return nil
}
