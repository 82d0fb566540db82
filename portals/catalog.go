package portals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// CatalogError marks a collection whose models could not be resolved, either
// because the filters response does not describe it or because the request
// itself gave out after the read retries. Never retried by callers.
type CatalogError struct {
	Collection string
	Reason     string
	Err        error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("collection %q: %s", e.Collection, e.Reason)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// ResolveModels fetches the collection's model table and joins it with the
// floor price table by model name. Duplicate model names keep the first
// occurrence, so the result has no repeats.
func (c *Client) ResolveModels(ctx context.Context, collection string) ([]Model, error) {
	query := url.Values{}
	query.Set("short_names", collection)
	body, err := c.getRetry(ctx, "/collections/filters", query)
	if err != nil {
		return nil, &CatalogError{Collection: collection, Reason: fmt.Sprintf("filters request failed: %s", err), Err: err}
	}
	var fr filtersResponse
	if err = json.Unmarshal(body, &fr); err != nil {
		return nil, &CatalogError{Collection: collection, Reason: fmt.Sprintf("malformed filters response: %s", err), Err: err}
	}
	meta, ok := fr.Collections[collection]
	if !ok || len(meta.Models) == 0 {
		return nil, &CatalogError{Collection: collection, Reason: "no models in filters response"}
	}
	floors := fr.FloorPrices[collection].Models

	var models []Model
	seen := make(map[string]bool, len(meta.Models))
	for _, m := range meta.Models {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		model := Model{
			Name:           m.Name,
			Collection:     m.Collection,
			ImageURL:       m.URL,
			RarityPerMille: m.RarityPerMille,
		}
		if model.Collection == "" {
			model.Collection = collection
		}
		if floor, ok := floors[m.Name]; ok {
			if floor < 0 {
				return nil, &CatalogError{Collection: collection, Reason: fmt.Sprintf("negative floor %d for model %q", floor, m.Name)}
			}
			f := floor
			model.Floor = &f
		}
		models = append(models, model)
	}
	return models, nil
}

// WalletBalance fetches the account's available funds, one row per currency.
func (c *Client) WalletBalance(ctx context.Context) ([]WalletRow, error) {
	body, err := c.getRetry(ctx, "/users/wallets/", nil)
	if err != nil {
		return nil, err
	}
	var wr walletsResponse
	if err = json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("malformed wallets response: %w", err)
	}
	return wr.Wallets, nil
}
