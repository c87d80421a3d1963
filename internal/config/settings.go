package config

import "os"

// Settings is the process configuration, read from the environment once at
// startup. A .env file (loaded by the entrypoint before this runs) can
// provide any of these.
type Settings struct {
	// Addr is the HTTP listen address.
	Addr string
	// TableDir is the directory holding compatibility.yaml and
	// instructions.yaml. Empty means the embedded default tables.
	TableDir string
	// DefaultModel is the calculator model used when a request names none.
	DefaultModel string
	// WatchTables enables hot reload of the table directory.
	WatchTables bool
	// OTelLogsEnabled turns on the OTLP log bridge in addition to stdout.
	OTelLogsEnabled bool
}

// LoadSettings reads settings from the environment, applying defaults.
func LoadSettings() Settings {
	return Settings{
		Addr:            envOr("GEOMETRY_ADDR", ":8080"),
		TableDir:        os.Getenv("GEOMETRY_TABLE_DIR"),
		DefaultModel:    envOr("GEOMETRY_DEFAULT_MODEL", "fx799"),
		WatchTables:     os.Getenv("GEOMETRY_WATCH_TABLES") == "true",
		OTelLogsEnabled: os.Getenv("OTEL_LOGS_ENABLED") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
