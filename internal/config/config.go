// Package config provides configuration loading for the application from
// a YAML file with environment variable overrides. Secrets (vault
// password, database DSN) are only ever read from the environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the application.
type Options struct {
	// VaultURL is the base URL of the vault REST API.
	VaultURL string `yaml:"vault_url"`

	// VaultUser is the account used to authenticate against the vault.
	VaultUser string `yaml:"vault_user"`

	// VaultPassword is the master password. Never read from the config
	// file; only the CREDSHEET_VAULT_PASSWORD environment variable.
	VaultPassword string `yaml:"-"`

	// VaultCACert is an optional PEM file with the CA to trust for the
	// vault endpoint. Empty uses the system pool.
	VaultCACert string `yaml:"vault_ca_cert"`

	// VaultClientCert and VaultClientKey enable mutual TLS towards the
	// vault when both are set.
	VaultClientCert string `yaml:"vault_client_cert"`
	VaultClientKey  string `yaml:"vault_client_key"`

	// StructureRecordUID is the vault record whose notes hold the JSON
	// structure template describing folders and records to create.
	StructureRecordUID string `yaml:"structure_record_uid"`

	// TemplateRecordUID is the vault record carrying the document
	// template as an attachment.
	TemplateRecordUID string `yaml:"template_record_uid"`

	// TargetFolder is the UID or path of the folder customer hierarchies
	// are created under.
	TargetFolder string `yaml:"target_folder"`

	// SupportEmail is placed into rendered credential sheets as the
	// support contact address.
	SupportEmail string `yaml:"support_email"`

	// Language selects the prompt language ("en" or "de").
	Language string `yaml:"language"`

	// ShareTTLDays is the lifetime of issued one-time share links.
	ShareTTLDays int `yaml:"share_ttl_days"`

	// DatabaseDSN is the Postgres connection string for the audit store.
	// Empty disables auditing. Overridden by CREDSHEET_DATABASE_DSN.
	DatabaseDSN string `yaml:"database_dsn"`

	// AuditRetentionDays prunes audit rows older than this many days
	// while a run is active. Zero keeps rows forever.
	AuditRetentionDays int `yaml:"audit_retention_days"`

	// SofficePath is the LibreOffice binary used for PDF conversion.
	SofficePath string `yaml:"soffice_path"`

	// LogLevel sets the zap log level.
	LogLevel string `yaml:"log_level"`
}

// Load reads the YAML config file at path (skipped when the file does not
// exist), applies environment overrides and fills defaults. It returns
// the resulting Options.
func Load(path string) (*Options, error) {
	options := &Options{
		Language:     "en",
		ShareTTLDays: 7,
		SofficePath:  "soffice",
		LogLevel:     "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No config file is fine; env and flags may cover everything.
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// Override file values with environment variables if set.
	if v := os.Getenv("CREDSHEET_VAULT_URL"); v != "" {
		options.VaultURL = v
	}
	if v := os.Getenv("CREDSHEET_VAULT_USER"); v != "" {
		options.VaultUser = v
	}
	if v := os.Getenv("CREDSHEET_VAULT_CA_CERT"); v != "" {
		options.VaultCACert = v
	}
	if v := os.Getenv("CREDSHEET_VAULT_CLIENT_CERT"); v != "" {
		options.VaultClientCert = v
	}
	if v := os.Getenv("CREDSHEET_VAULT_CLIENT_KEY"); v != "" {
		options.VaultClientKey = v
	}
	if v := os.Getenv("CREDSHEET_TARGET_FOLDER"); v != "" {
		options.TargetFolder = v
	}
	if v := os.Getenv("CREDSHEET_DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	options.VaultPassword = os.Getenv("CREDSHEET_VAULT_PASSWORD")

	return options, nil
}
