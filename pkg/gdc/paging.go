package gdc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// PageRequest selects a page of a list resource.
type PageRequest struct {
	Offset int
	Limit  int
}

// Apply adds offset and limit query parameters to uri. A nil request leaves
// uri unchanged so the server default applies.
func (p *PageRequest) Apply(uri string) string {
	if p == nil {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	q := u.Query()
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Paging is the paging block of a list response.
type Paging struct {
	Offset int    `json:"offset"`
	Limit  int    `json:"limit,omitempty"`
	Count  int    `json:"count"`
	Total  int    `json:"totalCount,omitempty"`
	Next   string `json:"next,omitempty"`
}

// Links is the links block of a list response.
type Links struct {
	Self string `json:"self,omitempty"`
	Next string `json:"next,omitempty"`
}

// Page is one page of a list resource:
//
//	{"items": [...], "paging": {...}, "links": {"next": "..."}}
type Page[T any] struct {
	Items  []T    `json:"items"`
	Paging Paging `json:"paging"`
	Links  Links  `json:"links"`
}

// NextURI returns the link to the following page or "" on the last page.
func (p *Page[T]) NextURI() string {
	if p.Paging.Next != "" {
		return p.Paging.Next
	}
	return p.Links.Next
}

// HasNext reports whether another page follows.
func (p *Page[T]) HasNext() bool {
	return p.NextURI() != ""
}

// PageFetcher loads the page at uri.
type PageFetcher[T any] func(ctx context.Context, uri string) (*Page[T], error)

// Collect follows the next links starting at first and returns the items of
// all pages in server order. The URI of first is taken from its self link.
func Collect[T any](ctx context.Context, first *Page[T], fetch PageFetcher[T]) ([]T, error) {
	if first == nil {
		return nil, nil
	}
	return CollectFrom(ctx, first.Links.Self, first, fetch)
}

// CollectFrom is Collect for a first page fetched from uri. A next link
// pointing back to any page already read ends paging with an error.
func CollectFrom[T any](ctx context.Context, uri string, first *Page[T], fetch PageFetcher[T]) ([]T, error) {
	if first == nil {
		return nil, nil
	}

	items := append([]T(nil), first.Items...)
	seen := map[string]bool{}
	if uri != "" {
		seen[uri] = true
	}
	page := first
	for page.HasNext() {
		next := page.NextURI()
		if seen[next] {
			return items, fmt.Errorf("paging loop detected at %s", next)
		}
		seen[next] = true

		if err := ctx.Err(); err != nil {
			return items, err
		}

		p, err := fetch(ctx, next)
		if err != nil {
			return items, err
		}
		items = append(items, p.Items...)
		page = p
	}
	return items, nil
}

// GetPage fetches a list resource whose page is wrapped in an envelope key,
// for example {"instances": {"items": [...], "paging": {...}}}. An empty
// envelope means the page is the document root.
func GetPage[T any](ctx context.Context, c *Client, uri, envelope string) (*Page[T], error) {
	if envelope == "" {
		var page Page[T]
		if err := c.GetJSON(ctx, uri, &page); err != nil {
			return nil, err
		}
		return &page, nil
	}

	var wrapped map[string]json.RawMessage
	if err := c.GetJSON(ctx, uri, &wrapped); err != nil {
		return nil, err
	}
	raw, ok := wrapped[envelope]
	if !ok {
		return nil, fmt.Errorf("response from %s has no %q key", uri, envelope)
	}

	var page Page[T]
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode page from %s: %w", uri, err)
	}
	return &page, nil
}

// GetAll fetches every page of a list resource starting at uri.
func GetAll[T any](ctx context.Context, c *Client, uri, envelope string) ([]T, error) {
	fetch := func(ctx context.Context, uri string) (*Page[T], error) {
		return GetPage[T](ctx, c, uri, envelope)
	}
	first, err := fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	return CollectFrom(ctx, uri, first, fetch)
}
