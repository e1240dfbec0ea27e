package db

import (
	"context"
	"errors"

	"notemasterdb/model"
)

var ErrUserNotFound = errors.New("user not found")

type Store interface {
	Ping(ctx context.Context) error
	GetUserByUsername(username string) (*model.User, error)
	GetNoteMapByTitle() (map[string]model.Note, error)
	GetTagMapByName() (map[string]model.Tag, error)
	GetAppInfoValue(key string) (string, bool, error)
	Stats() (Stats, error)
}

// Stats is the post-provisioning summary shown to the operator.
type Stats struct {
	Tables   int64
	Notes    int64
	Tags     int64
	NoteTags int64
}
