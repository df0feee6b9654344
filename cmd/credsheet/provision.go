package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medienwerk/credsheet/internal/config"
	"github.com/medienwerk/credsheet/internal/contextbuild"
	"github.com/medienwerk/credsheet/internal/convert"
	"github.com/medienwerk/credsheet/internal/input"
	"github.com/medienwerk/credsheet/internal/models"
	"github.com/medienwerk/credsheet/internal/prompt"
	"github.com/medienwerk/credsheet/internal/provision"
	"github.com/medienwerk/credsheet/internal/render"
	"github.com/medienwerk/credsheet/internal/report"
	"github.com/medienwerk/credsheet/internal/vault"
)

// Exit codes: 0 every customer committed, 1 at least one customer rolled
// back or invalid, 2 vault authentication failed.
const (
	exitAuthFailure = 2
)

var (
	provisionBulk      bool
	provisionCSV       string
	provisionCustomers []string
	provisionLang      string
	structureUID       string
	templateUID        string
	targetFolder       string
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision credential sheets for one or more customers",
	Long: `Provision customer credential documentation in the vault.

Customers come from a CSV file (--bulk --csv, columns
name,email,category,custom), from repeated --customer flags
(name:email:category:custom) or from interactive prompts when neither is
given. Vault credentials are read from CREDSHEET_VAULT_PASSWORD and the
config file or CREDSHEET_VAULT_* environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		options, log, err := loadConfig()
		if err != nil {
			fail("error: %v", err)
		}
		defer log.Log.Sync()

		if structureUID != "" {
			options.StructureRecordUID = structureUID
		}
		if templateUID != "" {
			options.TemplateRecordUID = templateUID
		}
		if targetFolder != "" {
			options.TargetFolder = targetFolder
		}
		if provisionLang != "" {
			options.Language = provisionLang
		}
		if !prompt.Supported(options.Language) {
			fail("error: unsupported language %q (en/de)", options.Language)
		}

		if options.VaultURL == "" || options.VaultUser == "" || options.VaultPassword == "" {
			fail("error: vault_url, vault_user and CREDSHEET_VAULT_PASSWORD are required")
		}

		promptMissingRunInputs(options)

		customers, err := collectCustomers(options.Language)
		if err != nil {
			fail("error: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var httpClient *http.Client
		if options.VaultCACert != "" {
			httpClient, err = vault.NewTLSHTTPClient(options.VaultCACert, options.VaultClientCert, options.VaultClientKey)
			if err != nil {
				fail("error: vault tls: %v", err)
			}
		}

		client := vault.NewClient(options.VaultURL, httpClient, log.Log)
		if err := client.Authenticate(ctx, options.VaultUser, options.VaultPassword); err != nil {
			fmt.Fprintf(os.Stderr, "error: vault authentication failed: %v\n", err)
			os.Exit(exitAuthFailure)
		}

		var sink provision.AuditSink
		if options.DatabaseDSN != "" {
			db, err := report.InitPostgres(options.DatabaseDSN)
			if err != nil {
				fail("error: audit database: %v", err)
			}
			defer db.Close()
			sink = report.NewPostgresAuditRepository(db)
			if options.AuditRetentionDays > 0 {
				retention := time.Duration(options.AuditRetentionDays) * 24 * time.Hour
				report.StartRetentionCleaner(ctx, db, time.Hour, retention, log.Log)
			}
		}

		orch := provision.NewOrchestrator(
			client,
			contextbuild.NewBuilder(client, options.SupportEmail, log.Log),
			render.NewRenderer(),
			convert.NewSofficeConverter(options.SofficePath),
			provision.Config{
				StructureRecordUID: options.StructureRecordUID,
				TemplateRecordUID:  options.TemplateRecordUID,
				TargetFolder:       options.TargetFolder,
				ShareTTL:           time.Duration(options.ShareTTLDays) * 24 * time.Hour,
			},
			log.Log,
		)

		runner := provision.NewBatchRunner(orch, sink, client, log.Log)
		log.Log.Info("starting provisioning run",
			zap.String("run_id", runner.RunID()), zap.Int("customers", len(customers)))

		results := runner.Run(ctx, customers)
		printResults(results)

		if anyAuthFailure(results) {
			os.Exit(exitAuthFailure)
		}
		os.Exit(provision.ExitCode(results))
	},
}

func init() {
	provisionCmd.Flags().BoolVar(&provisionBulk, "bulk", false, "enable bulk mode")
	provisionCmd.Flags().StringVar(&provisionCSV, "csv", "", "path to CSV file with customer rows")
	provisionCmd.Flags().StringArrayVar(&provisionCustomers, "customer", nil,
		`customer data "name:email:category:custom" (repeatable)`)
	provisionCmd.Flags().StringVar(&provisionLang, "lang", "", "prompt language (en/de)")
	provisionCmd.Flags().StringVar(&structureUID, "structure-uid", "", "structure template record UID")
	provisionCmd.Flags().StringVar(&templateUID, "template-uid", "", "document template record UID")
	provisionCmd.Flags().StringVar(&targetFolder, "target-folder", "", "target folder UID/path")
	rootCmd.AddCommand(provisionCmd)
}

// promptMissingRunInputs asks interactively for the template record UIDs
// and the target folder when neither config nor flags provide them.
func promptMissingRunInputs(options *config.Options) {
	scanner := bufio.NewScanner(os.Stdin)
	ask := func(key string) string {
		for {
			fmt.Print(prompt.Get(options.Language, key))
			if !scanner.Scan() {
				fail("error: stdin closed while reading %s", key)
			}
			if value := strings.TrimSpace(scanner.Text()); value != "" {
				return value
			}
			fmt.Println(prompt.Get(options.Language, "invalid_input"))
		}
	}
	if options.StructureRecordUID == "" {
		options.StructureRecordUID = ask("structure_uid")
	}
	if options.TemplateRecordUID == "" {
		options.TemplateRecordUID = ask("template_uid")
	}
	if options.TargetFolder == "" {
		options.TargetFolder = ask("target_folder")
	}
}

// collectCustomers gathers the customer list from the CSV file, the
// repeated --customer flags or a single interactive prompt session.
func collectCustomers(lang string) ([]models.CustomerSpec, error) {
	switch {
	case provisionCSV != "":
		f, err := os.Open(provisionCSV)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		return input.ParseCSV(f)
	case len(provisionCustomers) > 0:
		customers := make([]models.CustomerSpec, 0, len(provisionCustomers))
		for _, value := range provisionCustomers {
			spec, err := input.ParseCustomerFlag(value)
			if err != nil {
				return nil, err
			}
			customers = append(customers, spec)
		}
		return customers, nil
	case provisionBulk:
		return nil, fmt.Errorf("bulk mode needs --csv or --customer")
	default:
		spec, err := input.PromptCustomer(os.Stdin, os.Stdout, lang)
		if err != nil {
			return nil, err
		}
		return []models.CustomerSpec{spec}, nil
	}
}

func printResults(results []models.CustomerResult) {
	for _, r := range results {
		switch r.State {
		case models.StateCommitted:
			fmt.Printf("%s: committed, share link %s (expires %s)\n",
				r.Customer.Name, r.Share.Token, r.Share.ExpiresAt.Format("2006-01-02"))
		default:
			fmt.Printf("%s: %s (%s: %v)\n", r.Customer.Name, r.State, r.ErrKind, r.Err)
		}
	}
}

func anyAuthFailure(results []models.CustomerResult) bool {
	for _, r := range results {
		if models.IsAuthentication(r.Err) {
			return true
		}
	}
	return false
}
