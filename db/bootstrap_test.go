package db

import (
	"path/filepath"
	"testing"
	"time"

	"notemasterdb/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// bootstrapTempDB provisions a fresh file-backed database under a temp
// dir and returns its config plus the open connection.
func bootstrapTempDB(t *testing.T) (Config, *gorm.DB) {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "notes.db"))
	conn, err := BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)
	return cfg, conn
}

func TestBootstrapFreshDatabase(t *testing.T) {
	_, conn := bootstrapTempDB(t)
	store := NewSQLStore(conn)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Tables, "app_info, users, tags, notes, note_tags")
	assert.Equal(t, int64(4), stats.Notes)
	assert.Equal(t, int64(4), stats.Tags)
	assert.Equal(t, int64(6), stats.NoteTags)

	version, ok, err := store.GetAppInfoValue("version")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.2.0", version)

	user, err := store.GetUserByUsername("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", user.Email)

	notes, err := store.GetNoteMapByTitle()
	require.NoError(t, err)
	require.Len(t, notes, 4)

	welcome := notes["Welcome to Notemaster"]
	require.NotNil(t, welcome.UserID)
	assert.Equal(t, user.ID, *welcome.UserID)
	assert.False(t, welcome.IsArchived)
	require.Len(t, welcome.Tags, 2)

	archived := notes["Archived example"]
	assert.True(t, archived.IsArchived)
	require.Len(t, archived.Tags, 1)
	assert.Equal(t, "personal", archived.Tags[0].Name)

	tags, err := store.GetTagMapByName()
	require.NoError(t, err)
	require.Contains(t, tags, "urgent")
	require.NotNil(t, tags["urgent"].Color)
	assert.Equal(t, "#ef4444", *tags["urgent"].Color)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	cfg, conn := bootstrapTempDB(t)
	store := NewSQLStore(conn)

	before, err := store.Stats()
	require.NoError(t, err)
	notesBefore, err := store.GetNoteMapByTitle()
	require.NoError(t, err)

	// Second run against the same file must not duplicate anything.
	conn2, err := BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)
	store2 := NewSQLStore(conn2)

	after, err := store2.Stats()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	notesAfter, err := store2.GetNoteMapByTitle()
	require.NoError(t, err)
	require.Len(t, notesAfter, len(notesBefore))
	for title, n := range notesBefore {
		assert.Equal(t, n.ID, notesAfter[title].ID, "note %q must keep its id", title)
		assert.Equal(t, n.Content, notesAfter[title].Content)
	}

	var userCount int64
	require.NoError(t, conn2.Model(&model.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(1), userCount)
}

func TestReseedPreservesEditedTagColor(t *testing.T) {
	cfg, conn := bootstrapTempDB(t)

	edited := "#000000"
	require.NoError(t, conn.Model(&model.Tag{}).
		Where("name = ?", "work").
		Update("color", edited).Error)

	_, err := BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)

	var tag model.Tag
	require.NoError(t, conn.Where("name = ?", "work").First(&tag).Error)
	require.NotNil(t, tag.Color)
	assert.Equal(t, edited, *tag.Color, "seeding must not overwrite an edited color")
}

func TestReseedHealsModifiedNote(t *testing.T) {
	cfg, conn := bootstrapTempDB(t)

	var before model.Note
	require.NoError(t, conn.Where("title = ?", "Retro checklist").First(&before).Error)

	require.NoError(t, conn.Model(&model.Note{}).
		Where("title = ?", "Retro checklist").
		Updates(map[string]any{"content": "scribbled over", "is_archived": true}).Error)

	time.Sleep(20 * time.Millisecond)
	_, err := BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)

	var after model.Note
	require.NoError(t, conn.Where("title = ?", "Retro checklist").First(&after).Error)
	assert.Equal(t, before.ID, after.ID, "upsert must update in place, not recreate")
	assert.Equal(t, before.Content, after.Content, "seed content restored")
	assert.False(t, after.IsArchived)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.CreatedAt.Unix(), after.CreatedAt.Unix())
}

func TestDeleteUserNullifiesNoteOwnership(t *testing.T) {
	_, conn := bootstrapTempDB(t)
	store := NewSQLStore(conn)

	// The nullify behavior must be declared in the schema itself, not
	// left to application logic.
	var ddl string
	require.NoError(t, conn.Raw(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'notes'",
	).Scan(&ddl).Error)
	assert.Contains(t, ddl, "ON DELETE SET NULL")

	user, err := store.GetUserByUsername("demo")
	require.NoError(t, err)
	require.NoError(t, conn.Delete(&model.User{}, user.ID).Error)

	var notes []model.Note
	require.NoError(t, conn.Find(&notes).Error)
	require.Len(t, notes, 4, "deleting the owner must not delete the notes")
	for _, n := range notes {
		assert.Nil(t, n.UserID)
	}

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.NoteTags, "associations are untouched by a user delete")
}

func TestDeleteNoteCascadesAssociations(t *testing.T) {
	_, conn := bootstrapTempDB(t)
	store := NewSQLStore(conn)

	var note model.Note
	require.NoError(t, conn.Where("title = ?", "Welcome to Notemaster").First(&note).Error)
	require.NoError(t, conn.Delete(&model.Note{}, note.ID).Error)

	var linkCount int64
	require.NoError(t, conn.Model(&model.NoteTag{}).
		Where("note_id = ?", note.ID).
		Count(&linkCount).Error)
	assert.Zero(t, linkCount, "note delete must cascade into note_tags")

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.NoteTags)
	assert.Equal(t, int64(4), stats.Tags, "tags themselves survive")
}

func TestBootstrapSchemaOnly(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "notes.db"))
	cfg.Seed = false
	conn, err := BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)

	store := NewSQLStore(conn)
	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Tables)
	assert.Zero(t, stats.Notes)
	assert.Zero(t, stats.Tags)
	assert.Zero(t, stats.NoteTags)

	_, ok, err := store.GetAppInfoValue("version")
	require.NoError(t, err)
	assert.False(t, ok)

	// Seeding afterwards converges to the same end state as a seeded run.
	cfg.Seed = true
	_, err = BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)
	stats, err = store.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Notes)
	assert.Equal(t, int64(6), stats.NoteTags)
}

func TestEnsureSchemaLeavesExistingTablesAlone(t *testing.T) {
	cfg, conn := bootstrapTempDB(t)

	// A column added out of band must survive another run: the schema
	// definer only creates what is absent.
	require.NoError(t, conn.Exec("ALTER TABLE tags ADD COLUMN extra TEXT").Error)

	_, err := BootstrapSQLite(cfg, testLogger())
	require.NoError(t, err)

	require.True(t, conn.Migrator().HasColumn(&model.Tag{}, "extra"))
}
