package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shoplist/server/internal/models"
)

// SetupPin configures the server's initial PIN and returns the session
// token. The setup endpoint is unauthenticated.
func (c *Client) SetupPin(ctx context.Context, pin string) (string, error) {
	var resp models.AuthSetupResponse
	if err := c.doUnauthenticated(ctx, "/api/auth/setup", pin, http.StatusCreated, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// VerifyPin exchanges the PIN for a session token
func (c *Client) VerifyPin(ctx context.Context, pin string) (string, error) {
	var resp models.AuthVerifyResponse
	if err := c.doUnauthenticated(ctx, "/api/auth/verify", pin, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *Client) doUnauthenticated(ctx context.Context, path, pin string, wantStatus int, out interface{}) error {
	data, err := json.Marshal(models.PINRequest{PIN: pin})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var errResp models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
