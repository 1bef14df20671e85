package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// EndpointURL returns the console API endpoint for a region.
func EndpointURL(region string) string {
	return fmt.Sprintf("https://%s.console.aws.amazon.com/controltower/api/controltower", region)
}

// HTTPDoer posts payload envelopes to the console endpoint. The *http.Client
// must already carry console authentication (session cookies / signing);
// acquiring those is the caller's concern.
type HTTPDoer struct {
	client *http.Client
	url    string
}

// NewHTTPDoer creates a transport for the given endpoint URL.
func NewHTTPDoer(client *http.Client, url string) *HTTPDoer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDoer{client: client, url: url}
}

// Do posts the payload and returns the raw status and body. Transport-level
// failures are returned as errors; non-2xx statuses are left to the caller.
func (d *HTTPDoer) Do(ctx context.Context, payload Payload) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post %s: %w", payload.Operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", payload.Operation, err)
	}

	log.Debug().
		Str("target", payload.Operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("console call")

	return Response{StatusCode: resp.StatusCode, Body: data}, nil
}
