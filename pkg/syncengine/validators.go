package syncengine

type ResolveConflictPayload struct {
	EntityType string `json:"entity_type" validate:"required,oneof=book version chapter character"`
	EntityID   string `json:"entity_id" validate:"required"`
	Side       string `json:"side" validate:"required,oneof=local cloud"`
}
