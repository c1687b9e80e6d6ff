package assets

import (
	"mime/multipart"
)

type ImportAssetPayload struct {
	EntityType  *string `form:"entity_type" json:"entity_type,omitempty" validate:"omitempty,oneof=book version chapter character"`
	EntityID    *string `form:"entity_id" json:"entity_id,omitempty"`
	Role        *string `form:"role" json:"role,omitempty" validate:"omitempty,oneof=cover avatar gallery divider attachment map lore"`
	SortOrder   int     `form:"sort_order" json:"sort_order,omitempty" validate:"min=0"`
	Description *string `form:"description" json:"description,omitempty" validate:"omitempty,max=1000"`
	Tags        *string `form:"tags" json:"tags,omitempty"`

	FormFiles map[string]*multipart.FileHeader `form:"-" json:"-"`
}

type CreateLinkPayload struct {
	EntityType  string  `json:"entity_type" validate:"required,oneof=book version chapter character"`
	EntityID    string  `json:"entity_id" validate:"required"`
	Role        string  `json:"role" validate:"required,oneof=cover avatar gallery divider attachment map lore"`
	SortOrder   int     `json:"sort_order,omitempty" validate:"min=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Tags        *string `json:"tags,omitempty"`
}

type ListLinksQuery struct {
	EntityType string  `query:"entity_type" json:"entity_type" validate:"required,oneof=book version chapter character"`
	EntityID   string  `query:"entity_id" json:"entity_id" validate:"required"`
	Role       *string `query:"role" json:"role,omitempty" validate:"omitempty,oneof=cover avatar gallery divider attachment map lore"`
}
