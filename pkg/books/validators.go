package books

type CreateBookPayload struct {
	Title    string  `json:"title" validate:"required,max=500"`
	Subtitle *string `json:"subtitle,omitempty" validate:"omitempty,max=500"`
	Author   *string `json:"author,omitempty" validate:"omitempty,max=500"`
	Genre    *string `json:"genre,omitempty" validate:"omitempty,max=100"`
	Language *string `json:"language,omitempty" validate:"omitempty,max=50"`
	Synopsis *string `json:"synopsis,omitempty" validate:"omitempty,max=10000"`
}

type UpdateBookPayload struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Subtitle *string `json:"subtitle,omitempty" validate:"omitempty,max=500"`
	Author   *string `json:"author,omitempty" validate:"omitempty,max=500"`
	Genre    *string `json:"genre,omitempty" validate:"omitempty,max=100"`
	Language *string `json:"language,omitempty" validate:"omitempty,max=50"`
	Synopsis *string `json:"synopsis,omitempty" validate:"omitempty,max=10000"`
}

type ListBooksQuery struct {
	Limit  *int `query:"limit" json:"limit,omitempty" validate:"omitempty,min=1,max=200"`
	Offset *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
}

type CreateVersionPayload struct {
	Name string `json:"name" validate:"required,max=200"`
}

type UpdateVersionPayload struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active archived"`
}
