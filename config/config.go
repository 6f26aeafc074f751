// Package config defines the typed pipeline configuration, populated once at
// startup from defaults, an optional json5 config file (with .local
// overrides), and command line flags applied by the CLI.
package config

import (
	"os"
	"time"

	"dario.cat/mergo"

	"datarescue-backend/lib/configutil"
)

// Config holds every tunable of the pipeline. Field names map 1:1 onto the
// json5 keys of config.json5.
type Config struct {
	LogLevel string `json:"log_level"`
	DBPath   string `json:"db_path"`

	// batch controls for orchestrated runs
	NumRows  int   `json:"num_rows"`  // 0 = unlimited
	StartRow int   `json:"start_row"` // 1-origin; skip first StartRow-1 rows
	MinDRPID int64 `json:"min_drpid"` // only DRPID >= MinDRPID; overrides StartRow

	// StopFile, when set, is checked between records; the run exits cleanly
	// once the file exists. The DRP_STOP_FILE env var overrides it (set by
	// the interactive collector when it launches a pipeline run).
	StopFile string `json:"stop_file"`

	// sourcing
	SourcingSpreadsheetURL  string `json:"sourcing_spreadsheet_url"`
	SourcingURLColumn       string `json:"sourcing_url_column"`
	SourcingFetchTimeoutSec int    `json:"sourcing_fetch_timeout"`
	MaxWorkers              int    `json:"max_workers"` // parallel availability checks; 1 = sequential
	// CheckDataLumos enables the remote duplicate search against
	// datalumos.org during sourcing. Off by default: the search endpoint
	// sits behind Cloudflare and slows sourcing considerably.
	CheckDataLumos bool `json:"check_datalumos"`

	// collectors
	BaseOutputDir     string `json:"base_output_dir"`
	DownloadTimeoutMs int    `json:"download_timeout_ms"`
	SocrataAppToken   string `json:"socrata_app_token"`

	// upload (DataLumos deposit)
	DataLumosUsername string `json:"datalumos_username"`
	DataLumosPassword string `json:"datalumos_password"`
	UploadTimeoutMs   int    `json:"upload_timeout"`
	GWDAYourName      string `json:"gwda_your_name"`
	GWDAInstitution   string `json:"gwda_institution"`
	GWDAEmail         string `json:"gwda_email"`

	// VerifyPublished probes the public URL after publishing and records a
	// warning when the archive hasn't served it yet.
	VerifyPublished bool `json:"verify_published"`

	// publisher: optional spreadsheet write-back
	GoogleSheetID     string `json:"google_sheet_id"`
	GoogleCredentials string `json:"google_credentials"`
	GoogleSheetName   string `json:"google_sheet_name"`
	GoogleUsername    string `json:"google_username"`
}

// Default returns the built-in defaults, the lowest priority layer.
func Default() Config {
	return Config{
		LogLevel:                "INFO",
		DBPath:                  "drp_pipeline.db",
		SourcingURLColumn:       "URL",
		SourcingFetchTimeoutSec: 15,
		MaxWorkers:              1,
		BaseOutputDir:           "DRPData",
		DownloadTimeoutMs:       int((30 * time.Minute).Milliseconds()),
		UploadTimeoutMs:         60000,
		GWDAInstitution:         "Data Rescue Project",
		GoogleSheetName:         "CDC",
	}
}

// Load reads the config file at path (default config.json5 in the working
// directory) over the defaults. A missing file is not an error; the defaults
// stand.
func Load(path string) (Config, error) {
	if path == "" {
		path = "config.json5"
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	// fill unset fields from the defaults layer
	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("DRP_STOP_FILE"); v != "" {
		cfg.StopFile = v
	}
	// nomination contact falls back to the deposit account
	if cfg.GWDAEmail == "" {
		cfg.GWDAEmail = cfg.DataLumosUsername
	}
	return cfg, nil
}

// DownloadTimeout returns the collector download timeout as a duration.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutMs) * time.Millisecond
}

// UploadTimeout returns the deposit operation timeout as a duration.
func (c Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutMs) * time.Millisecond
}

// SourcingFetchTimeout returns the availability-check timeout as a duration.
func (c Config) SourcingFetchTimeout() time.Duration {
	return time.Duration(c.SourcingFetchTimeoutSec) * time.Second
}

