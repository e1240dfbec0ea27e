package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notemasterdb/model"

	"gorm.io/gorm"
)

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Ping verifies the underlying database connection is healthy.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) GetUserByUsername(username string) (*model.User, error) {
	var u model.User
	err := s.db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetNoteMapByTitle returns every note keyed by its title. Titles are
// unique, so the map is lossless.
func (s *SQLStore) GetNoteMapByTitle() (map[string]model.Note, error) {
	var notes []model.Note
	if err := s.db.Preload("Tags").Find(&notes).Error; err != nil {
		return nil, err
	}
	m := make(map[string]model.Note, len(notes))
	for _, n := range notes {
		m[n.Title] = n
	}
	return m, nil
}

// GetTagMapByName returns every tag keyed by name.
func (s *SQLStore) GetTagMapByName() (map[string]model.Tag, error) {
	var tags []model.Tag
	if err := s.db.Find(&tags).Error; err != nil {
		return nil, err
	}
	m := make(map[string]model.Tag, len(tags))
	for _, t := range tags {
		m[t.Name] = t
	}
	return m, nil
}

// GetAppInfoValue returns the app_info value for key and whether the key
// exists.
func (s *SQLStore) GetAppInfoValue(key string) (string, bool, error) {
	var info model.AppInfo
	err := s.db.Where("key = ?", key).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return info.Value, true, nil
}

// Stats collects the summary counts reported after provisioning. Reads
// only; never touches the data.
func (s *SQLStore) Stats() (Stats, error) {
	var st Stats
	if err := s.db.Raw(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'",
	).Scan(&st.Tables).Error; err != nil {
		return st, fmt.Errorf("count tables: %w", err)
	}
	if err := s.db.Model(&model.Note{}).Count(&st.Notes).Error; err != nil {
		return st, fmt.Errorf("count notes: %w", err)
	}
	if err := s.db.Model(&model.Tag{}).Count(&st.Tags).Error; err != nil {
		return st, fmt.Errorf("count tags: %w", err)
	}
	if err := s.db.Model(&model.NoteTag{}).Count(&st.NoteTags).Error; err != nil {
		return st, fmt.Errorf("count note_tags: %w", err)
	}
	return st, nil
}
