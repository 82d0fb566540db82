package portals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultPageSize matches the server's default search page.
const DefaultPageSize = 20

// ScanError marks a search page that could not be fetched or decoded. The
// scan that produced it is dead; the scheduler moves on to the next unit of
// work.
type ScanError struct {
	Collection string
	Model      string
	Offset     int
	Err        error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s/%s at offset %d: %s", e.Collection, e.Model, e.Offset, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ListingScan walks the listed instances of one model in the server's
// price-ascending order, one page at a time. A scan is single-use: it starts
// at offset 0 and reflects the marketplace as of each page fetch, so two
// scans of the same model may disagree.
type ListingScan struct {
	client     *Client
	collection string
	model      string
	pageSize   int

	offset int
	buf    []Listing
	done   bool
	pages  int
}

// Scan begins a fresh scan pass over the listed instances of model.
func (c *Client) Scan(collection, model string, pageSize int) *ListingScan {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListingScan{
		client:     c,
		collection: collection,
		model:      model,
		pageSize:   pageSize,
	}
}

// Next returns the next listed candidate, or (nil, nil) once the scan is
// exhausted. The server's sort order is returned as-is, equal-price
// tie-break included; prices never decrease across calls.
func (s *ListingScan) Next(ctx context.Context) (*Listing, error) {
	for len(s.buf) == 0 {
		if s.done {
			return nil, nil
		}
		if err := s.fetchPage(ctx); err != nil {
			s.done = true
			return nil, err
		}
	}
	l := s.buf[0]
	s.buf = s.buf[1:]
	return &l, nil
}

// Pages reports how many pages have been fetched so far.
func (s *ListingScan) Pages() int { return s.pages }

func (s *ListingScan) fetchPage(ctx context.Context) error {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(s.offset))
	query.Set("limit", strconv.Itoa(s.pageSize))
	query.Set("filter_by_collections", s.collection)
	query.Set("filter_by_models", s.model)
	query.Set("sort_by", "price asc")
	query.Set("status", StatusListed)

	body, err := s.client.getRetry(ctx, "/nfts/search", query)
	if err != nil {
		return &ScanError{Collection: s.collection, Model: s.model, Offset: s.offset, Err: err}
	}
	var sr searchResponse
	if err = json.Unmarshal(body, &sr); err != nil {
		return &ScanError{Collection: s.collection, Model: s.model, Offset: s.offset, Err: err}
	}
	s.pages++
	if len(sr.Results) < s.pageSize {
		s.done = true
	}
	s.offset += s.pageSize
	for _, raw := range sr.Results {
		if raw.Status != StatusListed {
			// a sale can outrun the server-side status filter
			continue
		}
		s.buf = append(s.buf, toListing(raw))
	}
	return nil
}
