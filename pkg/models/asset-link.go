package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	AssetRoleCover      = "cover"
	AssetRoleAvatar     = "avatar"
	AssetRoleGallery    = "gallery"
	AssetRoleDivider    = "divider"
	AssetRoleAttachment = "attachment"
	AssetRoleMap        = "map"
	AssetRoleLore       = "lore"
)

// AssetRoles is the closed set of roles an asset can play for an owning
// entity.
var AssetRoles = []string{
	AssetRoleCover,
	AssetRoleAvatar,
	AssetRoleGallery,
	AssetRoleDivider,
	AssetRoleAttachment,
	AssetRoleMap,
	AssetRoleLore,
}

func ValidAssetRole(role string) bool {
	for _, r := range AssetRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AssetLink associates an asset with an owning entity under a role. The same
// asset can be linked from many entities and roles; removing a link never
// removes the asset.
type AssetLink struct {
	bun.BaseModel `bun:"table:asset_links,alias:al"`

	ID          string    `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AssetID     string    `bun:",nullzero" json:"asset_id"`
	Asset       *Asset    `bun:"rel:belongs-to" json:"asset,omitempty"`
	EntityType  string    `bun:",nullzero" json:"entity_type"`
	EntityID    string    `bun:",nullzero" json:"entity_id"`
	Role        string    `bun:",nullzero" json:"role"`
	SortOrder   int       `json:"sort_order"`
	Description *string   `json:"description"`
	Tags        *string   `json:"tags"` // JSON array of strings
}
