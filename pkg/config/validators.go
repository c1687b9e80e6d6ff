package config

type UpdateConfigPayload struct {
	SyncIntervalMinutes *int    `json:"sync_interval_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	UploadConcurrency   *int    `json:"upload_concurrency,omitempty" validate:"omitempty,min=1,max=8"`
	RemoteURL           *string `json:"remote_url,omitempty" validate:"omitempty,url"`
	RemoteAPIToken      *string `json:"remote_api_token,omitempty"`
}
