package portals

// Wire shapes of the portal-market API, kept separate from the domain
// records. Fields mirror the JSON exactly.

// searchResponse is the response of `/nfts/search`.
type searchResponse struct {
	Results []rawListing `json:"results"`
}

type rawListing struct {
	ID           string         `json:"id"`
	BundleID     string         `json:"bundle_id"`
	TgID         string         `json:"tg_id"`
	CollectionID string         `json:"collection_id"`
	Name         string         `json:"name"`
	Price        int64          `json:"price"`
	Attributes   []rawAttribute `json:"attributes"`
	ListedAt     string         `json:"listed_at"`
	Status       string         `json:"status"`
	PhotoURL     string         `json:"photo_url"`
	FloorPrice   int64          `json:"floor_price"`
}

type rawAttribute struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func toListing(r rawListing) Listing {
	l := Listing{
		ID:              r.ID,
		BundleID:        r.BundleID,
		OwnerID:         r.TgID,
		CollectionID:    r.CollectionID,
		Name:            r.Name,
		Price:           r.Price,
		Status:          r.Status,
		PhotoURL:        r.PhotoURL,
		CollectionFloor: r.FloorPrice,
	}
	for _, a := range r.Attributes {
		l.Attributes = append(l.Attributes, Attribute{Type: a.Type, Value: a.Value})
	}
	return l
}

// filtersResponse is the response of `/collections/filters`. Each requested
// collection appears as a key in both top-level maps.
type filtersResponse struct {
	FloorPrices map[string]floorTable     `json:"floor_prices"`
	Collections map[string]collectionMeta `json:"collections"`
}

type floorTable struct {
	Models map[string]int64 `json:"models"`
}

type collectionMeta struct {
	Models []rawModel `json:"models"`
}

type rawModel struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	RarityPerMille int64  `json:"rarity_per_mille"`
	Collection     string `json:"collection"`
}

// walletsResponse is the response of `/users/wallets/`.
type walletsResponse struct {
	Wallets []WalletRow `json:"wallets"`
}

// purchaseRequest is the body of `POST /nfts`. The price is the one observed
// at scan time so a server-side price move fails the purchase instead of
// silently repricing it.
type purchaseRequest struct {
	NFTDetails []purchaseDetail `json:"nft_details"`
}

type purchaseDetail struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
}

// purchaseResponse reports one result per submitted line item.
type purchaseResponse struct {
	Results []purchaseResult `json:"results"`
}

type purchaseResult struct {
	ID           string `json:"id"`
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	CurrentPrice int64  `json:"current_price"`
}
