// Package console speaks the undocumented JSON-over-POST protocol of the
// Control Tower console API. Requests are envelopes naming an operation
// target; the transport that signs and delivers them is injected.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	apiContentType = "application/x-amz-json-1.1"
	apiUserAgent   = "aws-sdk-js/2.528.0 promise"
	servicePrefix  = "AWSBlackbeardService"
)

// ErrUnsupportedTarget is returned for operation names not on the allow-list.
// The request is rejected before any network call.
var ErrUnsupportedTarget = errors.New("unsupported console API target")

// Payload is the request envelope the console API expects. ContentString
// carries the operation-specific body as encoded JSON.
type Payload struct {
	ContentString string            `json:"contentString"`
	Headers       map[string]string `json:"headers"`
	Method        string            `json:"method"`
	Operation     string            `json:"operation"`
	Params        map[string]string `json:"params"`
	Path          string            `json:"path"`
	Region        string            `json:"region"`
}

// Response is the raw transport result for a single call.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the call returned a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Doer delivers a payload to the console API over an authenticated channel.
type Doer interface {
	Do(ctx context.Context, payload Payload) (Response, error)
}

// CallError is returned when the console API reports a non-success status.
// It carries the offending payload for diagnosis.
type CallError struct {
	Target     string
	StatusCode int
	Payload    Payload
	Body       []byte
}

func (e *CallError) Error() string {
	return fmt.Sprintf("console call %s failed with status %d: %s", e.Target, e.StatusCode, e.Body)
}

// Client issues console API calls through a Doer.
type Client struct {
	doer   Doer
	region string
}

// New creates a console API client for the given region.
func New(doer Doer, region string) *Client {
	return &Client{doer: doer, region: region}
}

// Region returns the region requests are issued against.
func (c *Client) Region() string {
	return c.region
}

// BuildPayload assembles the request envelope for a target, validating the
// target against the allow-list first.
func (c *Client) BuildPayload(target string, content any) (Payload, error) {
	if _, ok := supportedTargets[target]; !ok {
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target)
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return Payload{}, fmt.Errorf("encode content for %s: %w", target, err)
	}
	return Payload{
		ContentString: string(encoded),
		Headers: map[string]string{
			"Content-Type":     apiContentType,
			"X-Amz-Target":     fmt.Sprintf("%s.%s", servicePrefix, titleCase(target)),
			"X-Amz-User-Agent": apiUserAgent,
		},
		Method:    "POST",
		Operation: target,
		Params:    map[string]string{},
		Path:      "/",
		Region:    c.region,
	}, nil
}

// Call issues a single console API call and decodes the response body into
// out when out is non-nil.
func (c *Client) Call(ctx context.Context, target string, content any, out any) error {
	payload, err := c.BuildPayload(target, content)
	if err != nil {
		return err
	}
	body, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", target, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload Payload) ([]byte, error) {
	resp, err := c.doer.Do(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("console call %s: %w", payload.Operation, err)
	}
	if !resp.OK() {
		log.Debug().
			Str("target", payload.Operation).
			Int("status", resp.StatusCode).
			Msg("console call failed")
		return nil, &CallError{
			Target:     payload.Operation,
			StatusCode: resp.StatusCode,
			Payload:    payload,
			Body:       resp.Body,
		}
	}
	return resp.Body, nil
}

// titleCase upper-cases the first rune, matching the console's target naming
// (listManagedAccounts -> ListManagedAccounts).
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
