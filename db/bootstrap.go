package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"notemasterdb/model"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	// DefaultDBName is the SQLite file created when no path is configured.
	DefaultDBName = "myapp.db"

	seedUsername  = "demo"
	seedUserEmail = "demo@example.com"
)

// Config carries everything the provisioner needs to know about the
// target store. The metadata fields end up as app_info rows.
type Config struct {
	Path        string // SQLite database file
	Seed        bool   // load demo rows after the schema is ensured
	ProjectName string
	Version     string
	Author      string
	Description string
}

// DefaultConfig returns the stock Notemaster configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Seed:        true,
		ProjectName: "notes_database",
		Version:     "0.2.0",
		Author:      "John Doe",
		Description: "SQLite database for the Notemaster notes app (notes, tags, note_tags)",
	}
}

// DSN returns the sqlite connection string for cfg.Path. Foreign-key
// enforcement has to be switched on per connection or the SET NULL /
// CASCADE rules on notes and note_tags are silently ignored.
func (cfg Config) DSN() string {
	return cfg.Path + "?_foreign_keys=on"
}

type tagSeed struct {
	Name  string
	Color string
}

type noteSeed struct {
	Title    string
	Content  string
	Archived bool
}

var seedTagList = []tagSeed{
	{"work", "#3b82f6"},
	{"personal", "#06b6d4"},
	{"ideas", "#64748b"},
	{"urgent", "#ef4444"},
}

var seedNoteList = []noteSeed{
	{
		Title: "Welcome to Notemaster",
		Content: "This is a demo note to help you verify the UI end-to-end.\n\n" +
			"Try editing this note, adding tags, and searching for keywords like 'demo' or 'Notemaster'.",
	},
	{
		Title: "Retro checklist",
		Content: "- Create a new note\n- Add tags\n- Search notes\n- Archive notes\n\n" +
			"If you can do all of these, the core UX is working.",
	},
	{
		Title: "Meeting notes (sample)",
		Content: "Agenda:\n1) Status updates\n2) Blockers\n3) Next steps\n\n" +
			"Action items:\n- Follow up on API integration\n- Confirm database schema supports tags",
	},
	{
		Title:    "Archived example",
		Content:  "This is an archived note to test filtered views.",
		Archived: true,
	},
}

var seedNoteTagMap = map[string][]string{
	"Welcome to Notemaster":  {"ideas", "personal"},
	"Retro checklist":        {"work", "urgent"},
	"Meeting notes (sample)": {"work"},
	"Archived example":       {"personal"},
}

// OpenSQLite opens the database described by cfg without touching its
// contents. Foreign-key enforcement is active on the returned connection.
func OpenSQLite(cfg Config) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(sqlite.Open(cfg.DSN()), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	if err := db.SetupJoinTable(&model.Note{}, "Tags", &model.NoteTag{}); err != nil {
		return nil, fmt.Errorf("setup note_tags join table: %w", err)
	}
	if err := db.SetupJoinTable(&model.Tag{}, "Notes", &model.NoteTag{}); err != nil {
		return nil, fmt.Errorf("setup note_tags join table: %w", err)
	}
	return db, nil
}

// BootstrapSQLite opens (creating if necessary) the SQLite database
// described by cfg, ensures the schema, and, when cfg.Seed is set, loads
// the demo rows inside a single transaction. Safe to run any number of
// times: schema steps only create what is absent and every seed write is
// an atomic conditional insert.
func BootstrapSQLite(cfg Config, logr *zap.SugaredLogger) (*gorm.DB, error) {
	db, err := OpenSQLite(cfg)
	if err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	if !cfg.Seed {
		logr.Infof("bootstrap: database schema created but no seed data loaded")
		return db, nil
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := upsertAppInfo(tx, cfg); err != nil {
			return err
		}
		userID, err := ensureSeedUser(tx)
		if err != nil {
			return err
		}
		if err := seedTags(tx); err != nil {
			return err
		}
		if err := seedNotes(tx, userID); err != nil {
			return err
		}
		return seedNoteTags(tx, logr)
	}); err != nil {
		return nil, err
	}

	logr.Infof("bootstrap: completed and loaded seed data into %s", cfg.Path)
	return db, nil
}

// ensureSchema creates missing tables and indexes. Tables that already
// exist are left exactly as they are; there is no AutoMigrate here on
// purpose, since the contract forbids altering pre-existing definitions.
func ensureSchema(db *gorm.DB) error {
	m := db.Migrator()
	// Order matters for foreign keys: users and tags before notes,
	// note_tags last.
	tables := []any{
		&model.AppInfo{},
		&model.User{},
		&model.Tag{},
		&model.Note{},
		&model.NoteTag{},
	}
	for _, t := range tables {
		if m.HasTable(t) {
			continue
		}
		if err := m.CreateTable(t); err != nil {
			return fmt.Errorf("create table for %T: %w", t, err)
		}
	}

	// IF NOT EXISTS keeps these idempotent and also covers databases whose
	// tables predate this tool (a pre-existing notes table still gains the
	// unique title index the seeder depends on).
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_notes_title ON notes(title)",
		"CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_notes_archived ON notes(is_archived)",
		"CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name)",
		"CREATE INDEX IF NOT EXISTS idx_note_tags_tag_id ON note_tags(tag_id)",
		"CREATE INDEX IF NOT EXISTS idx_note_tags_note_id ON note_tags(note_id)",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// upsertAppInfo writes the template metadata. Existing keys get their
// value refreshed in place; id and created_at survive re-runs.
func upsertAppInfo(tx *gorm.DB, cfg Config) error {
	entries := []model.AppInfo{
		{Key: "project_name", Value: cfg.ProjectName},
		{Key: "version", Value: cfg.Version},
		{Key: "author", Value: cfg.Author},
		{Key: "description", Value: cfg.Description},
	}
	for i := range entries {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&entries[i]).Error; err != nil {
			return fmt.Errorf("upsert app_info %q: %w", entries[i].Key, err)
		}
	}
	return nil
}

// ensureSeedUser guarantees the demo user exists and returns its id. The
// insert is a no-op on a username conflict, so two racing runs cannot
// produce a duplicate regardless of the lookup below.
func ensureSeedUser(tx *gorm.DB) (uint, error) {
	u := model.User{Username: seedUsername, Email: seedUserEmail}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&u).Error; err != nil {
		return 0, fmt.Errorf("insert seed user %q: %w", seedUsername, err)
	}
	// On conflict gorm leaves u.ID at zero; fetch the surviving row either way.
	var existing model.User
	if err := tx.Where("username = ?", seedUsername).First(&existing).Error; err != nil {
		return 0, fmt.Errorf("look up seed user %q: %w", seedUsername, err)
	}
	return existing.ID, nil
}

// seedTags inserts the fixed tag set. Existing tags are untouched, so a
// color the user edited after the first run is never clobbered.
func seedTags(tx *gorm.DB) error {
	for _, s := range seedTagList {
		color := s.Color
		tag := model.Tag{Name: s.Name, Color: &color}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&tag).Error; err != nil {
			return fmt.Errorf("insert tag %q: %w", s.Name, err)
		}
	}
	return nil
}

// seedNotes upserts the demo notes keyed on title. Re-running refreshes
// content, owner, archived flag and updated_at on the existing row, so
// the seed content is self-healing without disturbing user-created notes.
func seedNotes(tx *gorm.DB, userID uint) error {
	for _, s := range seedNoteList {
		owner := userID
		note := model.Note{
			Title:      s.Title,
			Content:    s.Content,
			UserID:     &owner,
			IsArchived: s.Archived,
		}
		if err := tx.Omit("Tags").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "title"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "user_id", "is_archived", "updated_at"}),
		}).Create(&note).Error; err != nil {
			return fmt.Errorf("upsert note %q: %w", s.Title, err)
		}
	}
	return nil
}

// seedNoteTags links demo notes to tags. A missing note or tag means the
// corresponding seed row was never created; that is nothing to associate,
// not an error, so those entries are skipped.
func seedNoteTags(tx *gorm.DB, logr *zap.SugaredLogger) error {
	for title, tagNames := range seedNoteTagMap {
		var note model.Note
		if err := tx.Where("title = ?", title).First(&note).Error; err != nil {
			logr.Debugf("seedNoteTags: note %q not found, skipping", title)
			continue
		}
		for _, name := range tagNames {
			var tag model.Tag
			if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
				logr.Debugf("seedNoteTags: tag %q not found, skipping", name)
				continue
			}
			link := model.NoteTag{NoteID: note.ID, TagID: tag.ID}
			if err := tx.Omit("Note", "Tag").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "note_id"}, {Name: "tag_id"}},
				DoNothing: true,
			}).Create(&link).Error; err != nil {
				return fmt.Errorf("link note %q to tag %q: %w", title, name, err)
			}
		}
	}
	return nil
}
