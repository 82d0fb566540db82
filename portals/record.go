package portals

// Model is one named variant inside a collection, snapshotted from the
// filters endpoint. Floor is nil when the floor table has no entry for the
// model; a present 0 is a known floor of zero.
type Model struct {
	Name           string `json:"name"`
	Collection     string `json:"collection"`
	ImageURL       string `json:"imageUrl"`
	RarityPerMille int64  `json:"rarityPerMille"`
	Floor          *int64 `json:"floor,omitempty"`
}

// Listing statuses returned by the search endpoint. The set is open on the
// server side; only StatusListed is purchasable.
const (
	StatusListed    = "listed"
	StatusSold      = "sold"
	StatusCancelled = "cancelled"
)

// Attribute is one trait on a listing. Order is preserved from the server.
type Attribute struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Listing is one purchasable instance of a model as of fetch time. Listings
// are never cached across scan passes; another buyer may take one between
// scan and attempt.
type Listing struct {
	ID           string
	BundleID     string
	OwnerID      string
	CollectionID string
	Name         string
	Price        int64
	Attributes   []Attribute
	Status       string
	PhotoURL     string

	// CollectionFloor is the model's floor price as reported on the listing
	// itself, used for staleness checks against the policy.
	CollectionFloor int64

	// RarityPerMille is not part of the search payload; the scheduler fills
	// it in from the resolved model before handing the listing to the engine.
	RarityPerMille int64
}

// WalletRow is one currency balance of the account. Snapshots only, fetched
// on demand and never cached.
type WalletRow struct {
	Symbol  string `json:"symbol"`
	Balance int64  `json:"balance"`
}
