package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"notemasterdb/db"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	dbPathEnvVar      = "NOTES_DB"
	defaultMaxBackups = 5
	backupFileExt     = ".bak"
)

func main() {
	var dbPath string
	var seed bool
	var doBackup bool
	var maxBackups int

	logr := newLogger()

	rootCmd := &cobra.Command{
		Use:   "init_db",
		Short: "Create or verify the Notemaster SQLite database, schema, and seed data",
		Run: func(cmd *cobra.Command, args []string) {
			if envPath := viper.GetString(dbPathEnvVar); envPath != "" && !cmd.Flags().Changed("db") {
				dbPath = envPath
			}

			logr.Infof("starting SQLite setup for %s", dbPath)
			checkExistingDB(dbPath, logr)

			if doBackup {
				if _, err := os.Stat(dbPath); err == nil {
					backupPath := fmt.Sprintf("%s.%s%s", dbPath, time.Now().Format("20060102-150405"), backupFileExt)
					if err := copyFile(dbPath, backupPath, logr); err != nil {
						log.Fatalf("failed to create DB backup: %v", err)
					}
					logr.Infof("existing database backed up to %s", backupPath)
					pruneOldBackups(dbPath, maxBackups, logr)
				}
			}

			cfg := db.DefaultConfig(dbPath)
			cfg.Seed = seed
			conn, err := db.BootstrapSQLite(cfg, logr)
			if err != nil {
				log.Fatalf("bootstrap failed: %v", err)
			}
			defer func() {
				if sqlDB, err := conn.DB(); err == nil {
					if err := sqlDB.Close(); err != nil {
						logr.Warnf("failed to close database: %v", err)
					}
				}
			}()

			// Everything past this point is advisory; the store is committed.
			db.WriteConnectionFiles(cfg, logr)
			report(db.NewSQLStore(conn), cfg, logr)
		},
	}

	rootCmd.Flags().StringVar(&dbPath, "db", db.DefaultDBName, "Path to SQLite database file")
	rootCmd.Flags().BoolVar(&seed, "seed", true, "Whether to load seed data into the database")
	rootCmd.Flags().BoolVar(&doBackup, "backup", true, "Whether to create a backup of the database if it exists")
	rootCmd.Flags().IntVar(&maxBackups, "max-backups", defaultMaxBackups, "Maximum number of backups to retain")

	viper.AutomaticEnv() // binds environment variables to viper config

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func newLogger() *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger.Sugar()
}

// checkExistingDB reports whether a database file is already present and,
// if so, whether it answers a trivial query. A failing check is only a
// warning; provisioning proceeds and may well repair the file.
func checkExistingDB(dbPath string, logr *zap.SugaredLogger) {
	if _, err := os.Stat(dbPath); err != nil {
		logr.Infof("creating new SQLite database at %s", dbPath)
		return
	}
	logr.Infof("SQLite database already exists at %s", dbPath)
	cfg := db.DefaultConfig(dbPath)
	cfg.Seed = false
	conn, err := db.OpenSQLite(cfg)
	if err != nil {
		logr.Warnf("database exists but may be corrupted: %v", err)
		return
	}
	defer func() {
		if sqlDB, err := conn.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logr.Warnf("failed to close database: %v", err)
			}
		}
	}()
	store := db.NewSQLStore(conn)
	if err := store.Ping(context.Background()); err != nil {
		logr.Warnf("database exists but may be corrupted: %v", err)
		return
	}
	logr.Infof("database is accessible and working")
}

func report(store *db.SQLStore, cfg db.Config, logr *zap.SugaredLogger) {
	stats, err := store.Stats()
	if err != nil {
		logr.Warnf("could not collect database statistics: %v", err)
		return
	}

	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		absPath = cfg.Path
	}

	logr.Infof("SQLite setup complete")
	logr.Infof("database: %s (%s)", cfg.Path, absPath)
	logr.Infof("to use with the DB viewer, run: source %s", filepath.Join(db.EnvDir, db.EnvFile))
	logr.Infof("database statistics: tables=%d notes=%d tags=%d note-tag relations=%d",
		stats.Tables, stats.Notes, stats.Tags, stats.NoteTags)

	if _, err := exec.LookPath("sqlite3"); err == nil {
		logr.Infof("SQLite CLI is available, you can inspect the database with: sqlite3 %s", cfg.Path)
	}
}

func copyFile(src, dst string, logr *zap.SugaredLogger) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func(source *os.File) {
		err := source.Close()
		if err != nil {
			logr.Warnf("failed to close file %s: %v", src, err)
		}
	}(source)

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func(destination *os.File) {
		err := destination.Close()
		if err != nil {
			logr.Warnf("failed to close file %s: %v", dst, err)
		}
	}(destination)

	_, err = destination.ReadFrom(source)
	return err
}

func pruneOldBackups(dbPath string, max int, logr *zap.SugaredLogger) {
	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)
	prefix := base + "."
	files, err := os.ReadDir(dir)
	if err != nil {
		logr.Warnf("failed to read backup directory: %v", err)
		return
	}

	var backups []string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), backupFileExt) {
			backups = append(backups, filepath.Join(dir, f.Name()))
		}
	}

	if len(backups) <= max {
		return
	}

	sort.Strings(backups)
	toRemove := backups[:len(backups)-max]
	for _, file := range toRemove {
		err := os.Remove(file)
		if err != nil {
			logr.Warnf("failed to remove old backup %s: %v", file, err)
		} else {
			logr.Infof("removed old backup: %s", file)
		}
	}
}
