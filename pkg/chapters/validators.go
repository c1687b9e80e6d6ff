package chapters

type CreateChapterPayload struct {
	VersionID string  `json:"version_id" validate:"required"`
	Title     string  `json:"title" validate:"required,max=500"`
	Content   *string `json:"content,omitempty"`
}

type UpdateChapterPayload struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Content *string `json:"content,omitempty"`
}

type ReorderChaptersPayload struct {
	VersionID string   `json:"version_id" validate:"required"`
	Order     []string `json:"order" validate:"required,min=1,dive,required"`
}

type ListChaptersQuery struct {
	VersionID string `query:"version_id" json:"version_id" validate:"required"`
}
