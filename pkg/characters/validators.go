package characters

type CreateCharacterPayload struct {
	VersionID string  `json:"version_id" validate:"required"`
	Name      string  `json:"name" validate:"required,max=200"`
	Summary   *string `json:"summary,omitempty" validate:"omitempty,max=10000"`
	Traits    *string `json:"traits,omitempty"`
}

type UpdateCharacterPayload struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Summary *string `json:"summary,omitempty" validate:"omitempty,max=10000"`
	Traits  *string `json:"traits,omitempty"`
}

type ListCharactersQuery struct {
	VersionID string `query:"version_id" json:"version_id" validate:"required"`
}
