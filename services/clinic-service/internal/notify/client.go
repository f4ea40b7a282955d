package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Notification is the JSON body posted to the dispatcher on every status
// change and reschedule.
type Notification struct {
	Email       string `json:"email"`
	Status      string `json:"status"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Notes       string `json:"notes"`
}

// Client posts notifications to the notification dispatcher. Callers treat
// dispatch as fire-and-forget; errors returned here end up in the side-effect
// failure channel, never in the primary transition result.
type Client struct {
	endpoint string
	httpc    *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpc: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) Send(ctx context.Context, n Notification) error {
	if c.endpoint == "" {
		return errors.New("notify endpoint not configured")
	}

	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify dispatch returned %d", resp.StatusCode)
	}
	return nil
}
