package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:c"`

	ID        string    `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	VersionID string    `bun:",nullzero" json:"version_id"`
	Version   *Version  `bun:"rel:belongs-to" json:"version,omitempty"`
	SortOrder int       `json:"sort_order"`
	Title     string    `bun:",nullzero" json:"title"`
	Content   *string   `json:"content"` // rich-text JSON blob
	WordCount int       `json:"word_count"`

	SyncFields
}

func (c *Chapter) EntityType() string { return EntityTypeChapter }
func (c *Chapter) EntityID() string   { return c.ID }
func (c *Chapter) Sync() *SyncFields  { return &c.SyncFields }
