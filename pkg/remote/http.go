package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// HTTPClient talks to the remote store over HTTP+JSON with a bearer token.
// Every call carries a bounded timeout; a timeout is a transient failure and
// is indistinguishable from any other network error to callers.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetAssetByFingerprint(ctx context.Context, fingerprint string) (*AssetMetadata, error) {
	endpoint := fmt.Sprintf("%s/assets/by-fingerprint/%s", c.baseURL, url.PathEscape(fingerprint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	meta := &AssetMetadata{}
	if err := c.do(req, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (c *HTTPClient) CreateAsset(ctx context.Context, data []byte, meta AssetMetadata) (string, error) {
	// The remote accepts asset bytes as a multipart upload with the
	// fingerprint as the filename.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, meta.Fingerprint))
	header.Set("Content-Type", meta.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if _, err := part.Write(data); err != nil {
		return "", errors.WithStack(err)
	}
	if err := writer.WriteField("fingerprint", meta.Fingerprint); err != nil {
		return "", errors.WithStack(err)
	}
	if err := writer.Close(); err != nil {
		return "", errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets", body)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := struct {
		ID string `json:"id"`
	}{}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *HTTPClient) FetchAsset(ctx context.Context, remoteID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/assets/%s/content", c.baseURL, url.PathEscape(remoteID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("remote returned status %d fetching asset %s", res.StatusCode, remoteID)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func (c *HTTPClient) PushRecord(ctx context.Context, entityType, entityID string, payload []byte, baseRevision string) (*PushResult, error) {
	reqBody, err := json.Marshal(struct {
		Payload      json.RawMessage `json:"payload"`
		BaseRevision string          `json:"base_revision"`
	}{json.RawMessage(payload), baseRevision})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	endpoint := fmt.Sprintf("%s/records/%s/%s", c.baseURL, url.PathEscape(entityType), url.PathEscape(entityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp := struct {
		Revision string `json:"revision"`
	}{}

	switch res.StatusCode {
	case http.StatusOK:
		if err := json.Unmarshal(resBody, &resp); err != nil {
			return nil, errors.WithStack(err)
		}
		return &PushResult{Accepted: true, Revision: resp.Revision}, nil
	case http.StatusConflict:
		if err := json.Unmarshal(resBody, &resp); err != nil {
			return nil, errors.WithStack(err)
		}
		return &PushResult{Accepted: false, RemoteRevision: resp.Revision}, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, errors.Errorf("remote returned status %d pushing %s %s", res.StatusCode, entityType, entityID)
	}
}

func (c *HTTPClient) PullRecord(ctx context.Context, entityType, entityID string) (*PulledRecord, error) {
	endpoint := fmt.Sprintf("%s/records/%s/%s", c.baseURL, url.PathEscape(entityType), url.PathEscape(entityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp := struct {
		Payload     json.RawMessage `json:"payload"`
		Revision    string          `json:"revision"`
		UpdatedAtMs int64           `json:"updated_at_ms"`
	}{}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	return &PulledRecord{
		Payload:   []byte(resp.Payload),
		Revision:  resp.Revision,
		UpdatedAt: time.UnixMilli(resp.UpdatedAtMs),
	}, nil
}

// do executes a request, maps 404s to ErrNotFound, and decodes a JSON
// response body into out.
func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return errors.Errorf("remote returned status %d for %s %s", res.StatusCode, req.Method, req.URL.Path)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
