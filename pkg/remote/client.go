package remote

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when the remote store doesn't know the asset or
// record. It's terminal: callers should not retry.
var ErrNotFound = errors.New("remote: not found")

// AssetMetadata describes an asset as the remote store knows it.
type AssetMetadata struct {
	RemoteID    string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// PushResult is the outcome of pushing a structured record. When the remote
// holds a newer revision than the push was based on, Accepted is false and
// RemoteRevision carries the revision the remote is at.
type PushResult struct {
	Accepted       bool
	Revision       string
	RemoteRevision string
}

// PulledRecord is a structured record as fetched from the remote store.
type PulledRecord struct {
	Payload   []byte
	Revision  string
	UpdatedAt time.Time
}

// Client is the remote persistence API the core consumes. The core never
// implements it; the real one lives behind HTTP, and tests substitute fakes.
type Client interface {
	GetAssetByFingerprint(ctx context.Context, fingerprint string) (*AssetMetadata, error)
	CreateAsset(ctx context.Context, data []byte, meta AssetMetadata) (string, error)
	FetchAsset(ctx context.Context, remoteID string) ([]byte, error)
	PushRecord(ctx context.Context, entityType, entityID string, payload []byte, baseRevision string) (*PushResult, error)
	PullRecord(ctx context.Context, entityType, entityID string) (*PulledRecord, error)
}
