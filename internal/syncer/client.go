package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rmtavares/splitbook/internal/domain"
	"github.com/rmtavares/splitbook/internal/persist"
)

// RemoteClient is the opaque key/value record store the sync adapter talks
// to. Transport and authentication are the collaborator's concern.
type RemoteClient interface {
	// Fetch returns the ledger stored under key, or domain.ErrRecordNotFound.
	Fetch(ctx context.Context, key string) (domain.Ledger, error)
	// Upsert stores the full ledger under key; last write wins.
	Upsert(ctx context.Context, key string, l domain.Ledger, updatedAt time.Time) error
}

// Client talks JSON to a hosted record store: GET/PUT /records/{key}. The
// record content reuses the persisted ledger shape, so both devices and the
// local store stay interoperable.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type recordPayload struct {
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (c *Client) recordURL(key string) string {
	return c.baseURL + "/records/" + url.PathEscape(key)
}

func (c *Client) Fetch(ctx context.Context, key string) (domain.Ledger, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(key), nil)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("Fetch: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("Fetch: send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Ledger{}, domain.ErrRecordNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Ledger{}, fmt.Errorf("Fetch: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload recordPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Ledger{}, fmt.Errorf("Fetch: decode: %w", err)
	}

	l, err := persist.DecodeLedger(payload.Content)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("Fetch: %w", err)
	}
	return l, nil
}

func (c *Client) Upsert(ctx context.Context, key string, l domain.Ledger, updatedAt time.Time) error {
	content, err := persist.EncodeLedger(l)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}

	body, err := json.Marshal(recordPayload{Content: content, UpdatedAt: updatedAt})
	if err != nil {
		return fmt.Errorf("Upsert: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.recordURL(key), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Upsert: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Upsert: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Upsert: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
