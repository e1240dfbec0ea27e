package db

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// ConnectionNoteFile is the human-readable connection descriptor.
	ConnectionNoteFile = "db_connection.txt"
	// EnvDir holds the shell-sourceable descriptor for the DB viewer.
	EnvDir = "db_visualizer"
	// EnvFile is the file written into EnvDir.
	EnvFile = "sqlite.env"
	// EnvVar is the variable exported by EnvFile.
	EnvVar = "SQLITE_DB"
)

// WriteConnectionFiles writes the two connection descriptors next to the
// database: a plain-text note with the file path and connection string,
// and an env file another tool can source to locate the store. Failures
// here are warnings only; the database itself is already provisioned and
// committed by the time this runs.
func WriteConnectionFiles(cfg Config, logr *zap.SugaredLogger) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		logr.Warnf("could not resolve absolute path for %s: %v", cfg.Path, err)
		absPath = cfg.Path
	}

	note := fmt.Sprintf(
		"# SQLite connection methods:\n"+
			"# CLI: sqlite3 %s\n"+
			"# Connection string: sqlite:///%s\n"+
			"# File path: %s\n",
		cfg.Path, absPath, absPath,
	)
	if err := os.WriteFile(ConnectionNoteFile, []byte(note), 0o644); err != nil {
		logr.Warnf("could not save connection info: %v", err)
	} else {
		logr.Infof("connection information saved to %s", ConnectionNoteFile)
	}

	if err := os.MkdirAll(EnvDir, 0o755); err != nil {
		logr.Warnf("could not create %s directory: %v", EnvDir, err)
		return
	}
	envPath := filepath.Join(EnvDir, EnvFile)
	envLine := fmt.Sprintf("export %s=%q\n", EnvVar, absPath)
	if err := os.WriteFile(envPath, []byte(envLine), 0o644); err != nil {
		logr.Warnf("could not save environment variables: %v", err)
		return
	}
	logr.Infof("environment variables saved to %s", envPath)
}
