package console

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultTokenKey is the cursor field most list targets use.
const DefaultTokenKey = "NextToken"

// PageSpec describes a cursor-paginated console call. ItemsKey names the
// response field holding the collection; when the field is absent from a
// response the whole body is yielded once instead. TokenKey defaults to
// NextToken.
type PageSpec struct {
	Target   string
	Content  map[string]any
	ItemsKey string
	TokenKey string
}

// Pages is a lazy, forward-only, non-restartable stream over a paginated
// console call. No network call happens before the first Next. A page fetch
// failure ends the stream; the error is available from Err.
type Pages[T any] struct {
	client *Client
	spec   PageSpec

	items     []json.RawMessage
	idx       int
	current   T
	nextToken string
	started   bool
	done      bool
	err       error
}

// Paginate creates a stream for the given spec. Items are decoded into T.
func Paginate[T any](client *Client, spec PageSpec) *Pages[T] {
	if spec.TokenKey == "" {
		spec.TokenKey = DefaultTokenKey
	}
	return &Pages[T]{client: client, spec: spec}
}

// Next advances the stream, fetching the next page when the current one is
// exhausted. It returns false when the stream ends or fails.
func (p *Pages[T]) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if !p.started {
		p.started = true
		if !p.fetch(ctx) {
			return false
		}
	}
	for p.idx >= len(p.items) {
		if p.nextToken == "" {
			p.done = true
			return false
		}
		if !p.fetch(ctx) {
			return false
		}
	}
	var value T
	if err := json.Unmarshal(p.items[p.idx], &value); err != nil {
		p.err = fmt.Errorf("decode %s item: %w", p.spec.Target, err)
		return false
	}
	p.idx++
	p.current = value
	return true
}

// Current returns the item produced by the last successful Next.
func (p *Pages[T]) Current() T {
	return p.current
}

// Err returns the error that ended the stream, if any.
func (p *Pages[T]) Err() error {
	return p.err
}

// fetch issues one page request, carrying the cursor from the previous page
// merged into a copy of the original content.
func (p *Pages[T]) fetch(ctx context.Context) bool {
	content := make(map[string]any, len(p.spec.Content)+1)
	for k, v := range p.spec.Content {
		content[k] = v
	}
	if p.nextToken != "" {
		content[p.spec.TokenKey] = p.nextToken
	}

	payload, err := p.client.BuildPayload(p.spec.Target, content)
	if err != nil {
		p.err = err
		return false
	}
	body, err := p.client.post(ctx, payload)
	if err != nil {
		p.err = err
		return false
	}

	var page map[string]json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil {
		p.err = fmt.Errorf("decode %s page: %w", p.spec.Target, err)
		return false
	}

	p.nextToken = ""
	if raw, ok := page[p.spec.TokenKey]; ok {
		if err := json.Unmarshal(raw, &p.nextToken); err != nil {
			p.err = fmt.Errorf("decode %s cursor: %w", p.spec.Target, err)
			return false
		}
	}

	raw, ok := page[p.spec.ItemsKey]
	if p.spec.ItemsKey == "" || !ok {
		// Non-list responses reuse this path: the whole body is the only item.
		p.items = []json.RawMessage{body}
		p.idx = 0
		return true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.err = fmt.Errorf("decode %s collection: %w", p.spec.Target, err)
		return false
	}
	p.items = items
	p.idx = 0
	return true
}

// Collect drains the stream into a slice. It is a convenience for callers
// that want all results; large enumerations should iterate instead.
func (p *Pages[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for p.Next(ctx) {
		out = append(out, p.Current())
	}
	return out, p.Err()
}
