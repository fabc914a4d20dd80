package mailinglist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client subscribes addresses to the school mailing list over the list
// provider's HTTP API. Subscriptions update existing members and do not
// require double opt-in.
type Client struct {
	Endpoint   string
	APIKey     string
	ListID     string
	HTTPClient *http.Client
}

// Configured reports whether the provider credentials are present. When they
// are not, the worker logs and skips instead of failing.
func (c *Client) Configured() bool {
	return c.APIKey != "" && c.ListID != ""
}

func (c *Client) Subscribe(ctx context.Context, emailAddr, firstName, lastName string) error {
	payload := map[string]any{
		"email_address":   emailAddr,
		"email_type":      "html",
		"status":          "subscribed",
		"update_existing": true,
		"merge_fields": map[string]string{
			"FNAME": firstName,
			"LNAME": lastName,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/lists/%s/members", c.Endpoint, c.ListID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("mailing list temporary error: %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("mailing list permanent error: %s", resp.Status))
	}
	return nil
}
