package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        string    `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `bun:",nullzero" json:"title"`
	Subtitle  *string   `json:"subtitle"`
	Author    *string   `json:"author"`
	Genre     *string   `json:"genre"`
	Language  *string   `json:"language"`
	Synopsis  *string   `json:"synopsis"`

	Versions []*Version `bun:"rel:has-many,join:id=book_id" json:"versions,omitempty"`

	SyncFields
}

func (b *Book) EntityType() string { return EntityTypeBook }
func (b *Book) EntityID() string   { return b.ID }
func (b *Book) Sync() *SyncFields  { return &b.SyncFields }
