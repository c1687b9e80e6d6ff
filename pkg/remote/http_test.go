package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAssetByFingerprint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assets/by-fingerprint/abc123", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AssetMetadata{
			RemoteID:    "remote-1",
			Fingerprint: "abc123",
			MimeType:    "image/png",
			SizeBytes:   42,
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	meta, err := client.GetAssetByFingerprint(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "remote-1", meta.RemoteID)
	assert.Equal(t, int64(42), meta.SizeBytes)
}

func TestGetAssetByFingerprintNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	_, err := client.GetAssetByFingerprint(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateAsset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assets", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "fp-1", r.FormValue("fingerprint"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "fp-1", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("asset bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"remote-9"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	remoteID, err := client.CreateAsset(context.Background(), []byte("asset bytes"), AssetMetadata{
		Fingerprint: "fp-1",
		MimeType:    "image/png",
		SizeBytes:   11,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote-9", remoteID)
}

func TestFetchAsset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets/remote-1/content", r.URL.Path)
		_, _ = w.Write([]byte("the bytes"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	data, err := client.FetchAsset(context.Background(), "remote-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("the bytes"), data)
}

func TestFetchAssetNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	_, err := client.FetchAsset(context.Background(), "gone")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPushRecordAccepted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/records/book/book-1", r.URL.Path)

		body := struct {
			Payload      json.RawMessage `json:"payload"`
			BaseRevision string          `json:"base_revision"`
		}{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rev-1", body.BaseRevision)
		assert.JSONEq(t, `{"title":"A Book"}`, string(body.Payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"revision":"rev-2"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	res, err := client.PushRecord(context.Background(), "book", "book-1", []byte(`{"title":"A Book"}`), "rev-1")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "rev-2", res.Revision)
}

func TestPushRecordConflict(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"revision":"rev-7"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	res, err := client.PushRecord(context.Background(), "book", "book-1", []byte(`{}`), "rev-1")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "rev-7", res.RemoteRevision)
}

func TestPullRecord(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/records/chapter/ch-1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payload":{"title":"Opening"},"revision":"rev-3","updated_at_ms":1700000000000}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	rec, err := client.PullRecord(context.Background(), "chapter", "ch-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Opening"}`, string(rec.Payload))
	assert.Equal(t, "rev-3", rec.Revision)
	assert.Equal(t, time.UnixMilli(1700000000000), rec.UpdatedAt)
}

func TestPullRecordNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	_, err := client.PullRecord(context.Background(), "book", "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServerErrorIsNotTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret-token", time.Second)
	_, err := client.GetAssetByFingerprint(context.Background(), "abc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
