// Package api is the HTTP consumer of the item service: list, CRUD,
// and the batch sync endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shoplist/server/internal/models"
)

// TokenProvider supplies the bearer token attached to every request.
// It is consulted per call so a rotated token takes effect immediately.
type TokenProvider func() (string, error)

// Client talks to the remote item service
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenProvider
}

// NewClient creates a client for the service at baseURL. A zero
// timeout defaults to 15 seconds so a hung call stalls only its own
// invocation.
func NewClient(baseURL string, token TokenProvider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

// FetchItems retrieves the full item list
func (c *Client) FetchItems(ctx context.Context) ([]*models.Item, error) {
	var resp models.ItemListResponse
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return mapItems(resp.Items), nil
}

// CreateItem creates an item, preserving the client-generated id
func (c *Client) CreateItem(ctx context.Context, id, name string) (*models.Item, error) {
	body := models.CreateItemRequest{ID: id, Name: name}
	var resp models.ItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/items", body, http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return resp.Item.ToItem(), nil
}

// UpdateItem applies a partial update to an item
func (c *Client) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	var resp models.ItemResponse
	if err := c.do(ctx, http.MethodPatch, "/api/items/"+id, patch, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Item.ToItem(), nil
}

// DeleteItem removes an item
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	var resp models.DeleteResponse
	return c.do(ctx, http.MethodDelete, "/api/items/"+id, nil, http.StatusOK, &resp)
}

// SyncChanges sends the whole pending queue in one batch and returns
// the server's authoritative outcome
func (c *Client) SyncChanges(ctx context.Context, changes []*models.PendingChange) (*models.SyncResponse, error) {
	body := models.SyncRequest{Changes: changes}
	var resp models.SyncResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/sync", body, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping reports whether the server's health endpoint is reachable.
// Used to seed the connectivity monitor at startup.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token()
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		// A 401 is handled like any other remote failure: the caller
		// falls back to the offline queue.
		var errResp models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func mapItems(apiItems []models.APIItem) []*models.Item {
	items := make([]*models.Item, len(apiItems))
	for i, a := range apiItems {
		items[i] = a.ToItem()
	}
	return items
}
