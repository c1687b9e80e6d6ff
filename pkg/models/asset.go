package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	AssetStatusPendingUpload = "pending_upload"
	AssetStatusUploading     = "uploading"
	AssetStatusUploaded      = "uploaded"
	AssetStatusFailed        = "failed"
)

type Asset struct {
	bun.BaseModel `bun:"table:assets,alias:a"`

	ID           string    `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Fingerprint  string    `bun:",nullzero" json:"fingerprint"`
	MimeType     string    `bun:",nullzero" json:"mime_type"`
	SizeBytes    int64     `bun:",nullzero" json:"size_bytes"`
	LocalPath    *string   `json:"local_path"`
	RemoteID     *string   `json:"remote_id"`
	UploadStatus string    `bun:",nullzero,default:'pending_upload'" json:"upload_status"`

	Links []*AssetLink `bun:"rel:has-many,join:id=asset_id" json:"links,omitempty"`
}

// Materialized reports whether the asset's bytes exist on local disk. An
// asset with neither a local path nor a remote id is invalid and must never
// be persisted.
func (a *Asset) Materialized() bool {
	return a.LocalPath != nil && *a.LocalPath != ""
}

func (a *Asset) Extension() string {
	switch a.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/svg+xml":
		return ".svg"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
