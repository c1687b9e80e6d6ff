package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	VersionStatusActive   = "active"
	VersionStatusArchived = "archived"
)

// Version is a draft of a book. Chapters and characters hang off a version so
// parallel drafts can diverge without touching each other.
type Version struct {
	bun.BaseModel `bun:"table:versions,alias:v"`

	ID        string    `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	BookID    string    `bun:",nullzero" json:"book_id"`
	Book      *Book     `bun:"rel:belongs-to" json:"book,omitempty"`
	Name      string    `bun:",nullzero" json:"name"`
	Status    string    `bun:",nullzero,default:'active'" json:"status"`
	WordCount int       `json:"word_count"`

	Chapters   []*Chapter   `bun:"rel:has-many,join:id=version_id" json:"chapters,omitempty"`
	Characters []*Character `bun:"rel:has-many,join:id=version_id" json:"characters,omitempty"`

	SyncFields
}

func (v *Version) EntityType() string { return EntityTypeVersion }
func (v *Version) EntityID() string   { return v.ID }
func (v *Version) Sync() *SyncFields  { return &v.SyncFields }
