package model

import (
	"time"
)

// AppInfo is a key/value row describing the deployment (project name,
// version, author, description).
//
// Keys are unique; re-provisioning overwrites the value in place and
// never duplicates a key.
type AppInfo struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;not null"`
	Value     string
	CreatedAt time.Time
}

func (AppInfo) TableName() string { return "app_info" }

// A User owns notes. The provisioner only ever creates the demo user,
// but the table is shared with the application proper.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	Notes     []Note `gorm:"constraint:OnDelete:SET NULL"`
}

// A Note belongs to at most one User and carries any number of Tags.
//
// Titles are globally unique. That is a seeding artifact, not a product
// requirement: the unique index on title is what lets re-seeding be a
// single atomic upsert keyed on the title.
type Note struct {
	ID         uint   `gorm:"primaryKey"`
	Title      string `gorm:"uniqueIndex:uq_notes_title;not null"`
	Content    string `gorm:"not null"`
	UserID     *uint  `gorm:"index"`
	User       *User
	IsArchived bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Tags       []Tag `gorm:"many2many:note_tags;joinForeignKey:NoteID;joinReferences:TagID"`
}

// A Tag labels notes. Color is optional and owned by the user once set;
// seeding never overwrites it.
type Tag struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Color     *string
	CreatedAt time.Time
	Notes     []Note `gorm:"many2many:note_tags;joinForeignKey:TagID;joinReferences:NoteID"`
}

// NoteTag is the notes<->tags join entity. Its identity is the
// (note_id, tag_id) pair; deleting either side cascades into it.
type NoteTag struct {
	NoteID    uint      `gorm:"primaryKey;index"`
	TagID     uint      `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	Note      Note      `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
	Tag       Tag       `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
}
