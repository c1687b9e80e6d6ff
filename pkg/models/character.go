package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Character struct {
	bun.BaseModel `bun:"table:characters,alias:ch"`

	ID        string    `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	VersionID string    `bun:",nullzero" json:"version_id"`
	Version   *Version  `bun:"rel:belongs-to" json:"version,omitempty"`
	Name      string    `bun:",nullzero" json:"name"`
	Summary   *string   `json:"summary"`
	Traits    *string   `json:"traits"` // JSON object of trait name -> value

	SyncFields
}

func (ch *Character) EntityType() string { return EntityTypeCharacter }
func (ch *Character) EntityID() string   { return ch.ID }
func (ch *Character) Sync() *SyncFields  { return &ch.SyncFields }
