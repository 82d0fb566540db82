package portals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome codes of one acquisition attempt. Business-level results are data,
// never errors: the scheduler logs each one and keeps going.
const (
	OutcomeBought            = "bought"
	OutcomePriceChanged      = "price_changed"
	OutcomeUnavailable       = "unavailable"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeRejected          = "rejected"
	OutcomeTransportFailure  = "transport_failure"
	OutcomeSkipped           = "skipped"
)

// Outcome is the full audit record of one attempt. Exactly one is produced
// per candidate handed to the engine.
type Outcome struct {
	Code    string
	Listing Listing

	// FinalPrice is the price paid on a bought outcome.
	FinalPrice int64
	// CurrentPrice is the server-side price on a price_changed outcome; the
	// expected price is Listing.Price.
	CurrentPrice int64
	// Reason carries the server's failure string on rejected outcomes.
	Reason string
	// Err is set on transport_failure.
	Err error
	// NeedsReconciliation marks a purchase whose settlement is unknown: the
	// request may have gone through. Such attempts are never resubmitted
	// automatically; an operator has to check the wallet.
	NeedsReconciliation bool
}

// Policy is a buyer's acceptance rule for one model. Nil pointer fields are
// absent constraints.
type Policy struct {
	MaxPrice          int64  `json:"maxPrice"`
	MinRarityPerMille *int64 `json:"minRarityPerMille"`
	RequireFloorBelow *int64 `json:"requireFloorBelow"`
}

// Qualifies decides purely from the candidate and the policy. No I/O, no
// clock: the same inputs always produce the same answer.
func (p Policy) Qualifies(l Listing) bool {
	if l.Status != StatusListed {
		return false
	}
	if l.Price > p.MaxPrice {
		return false
	}
	if p.MinRarityPerMille != nil && l.RarityPerMille < *p.MinRarityPerMille {
		return false
	}
	if p.RequireFloorBelow != nil && l.CollectionFloor >= *p.RequireFloorBelow {
		return false
	}
	return true
}

// purchaseTimeout bounds the purchase call independently of the caller's
// context; see TryAcquire.
const purchaseTimeout = time.Second * 30

// Engine executes purchases for one scan pass. It remembers every listing id
// it has attempted, so a candidate seen twice within the pass cannot be
// bought twice.
type Engine struct {
	client *Client
	Sugar  *zap.SugaredLogger

	mu      sync.Mutex
	settled map[string]Outcome
}

func NewEngine(client *Client, sugar *zap.SugaredLogger) *Engine {
	return &Engine{client: client, Sugar: sugar, settled: make(map[string]Outcome)}
}

// TryAcquire evaluates one candidate and, if it qualifies, submits exactly
// one purchase naming the price observed at scan time. The purchase is never
// retried and never cancelled once sent: a purchase abandoned mid-flight has
// unknown settlement, so the call runs to its own timeout even when the
// caller's context is already done.
func (e *Engine) TryAcquire(ctx context.Context, candidate Listing, policy Policy) Outcome {
	if !policy.Qualifies(candidate) {
		return Outcome{Code: OutcomeSkipped, Listing: candidate}
	}

	e.mu.Lock()
	if prev, ok := e.settled[candidate.ID]; ok {
		e.mu.Unlock()
		e.Sugar.Debugf("listing %s already attempted this pass: %s", candidate.ID, prev.Code)
		return prev
	}
	// reserve the id before the request goes out
	e.settled[candidate.ID] = Outcome{
		Code:                OutcomeTransportFailure,
		Listing:             candidate,
		Err:                 errors.New("purchase in flight"),
		NeedsReconciliation: true,
	}
	e.mu.Unlock()

	out := e.purchase(ctx, candidate)

	e.mu.Lock()
	e.settled[candidate.ID] = out
	e.mu.Unlock()

	e.log(out)
	return out
}

func (e *Engine) purchase(ctx context.Context, candidate Listing) Outcome {
	payload := purchaseRequest{NFTDetails: []purchaseDetail{{ID: candidate.ID, Price: candidate.Price}}}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), purchaseTimeout)
	defer cancel()

	body, err := e.client.post(pctx, "/nfts", payload)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Status >= 400 && te.Status < 500 {
			// rejected before execution, nothing to reconcile
			return Outcome{Code: OutcomeTransportFailure, Listing: candidate, Err: err}
		}
		return Outcome{Code: OutcomeTransportFailure, Listing: candidate, Err: err, NeedsReconciliation: true}
	}

	var pr purchaseResponse
	if err = json.Unmarshal(body, &pr); err != nil {
		return Outcome{
			Code:                OutcomeTransportFailure,
			Listing:             candidate,
			Err:                 fmt.Errorf("malformed purchase response: %w", err),
			NeedsReconciliation: true,
		}
	}
	var item *purchaseResult
	for i := range pr.Results {
		if pr.Results[i].ID == candidate.ID {
			item = &pr.Results[i]
			break
		}
	}
	if item == nil {
		return Outcome{
			Code:                OutcomeTransportFailure,
			Listing:             candidate,
			Err:                 fmt.Errorf("purchase response has no result for listing %s", candidate.ID),
			NeedsReconciliation: true,
		}
	}
	if item.Success {
		return Outcome{Code: OutcomeBought, Listing: candidate, FinalPrice: candidate.Price}
	}

	reason := strings.ToLower(item.Error)
	switch {
	case strings.Contains(reason, "price"):
		return Outcome{Code: OutcomePriceChanged, Listing: candidate, CurrentPrice: item.CurrentPrice}
	case strings.Contains(reason, "sold"), strings.Contains(reason, "cancel"),
		strings.Contains(reason, "not listed"), strings.Contains(reason, "unavailable"):
		return Outcome{Code: OutcomeUnavailable, Listing: candidate}
	case strings.Contains(reason, "insufficient"), strings.Contains(reason, "balance"),
		strings.Contains(reason, "funds"):
		return Outcome{Code: OutcomeInsufficientFunds, Listing: candidate}
	default:
		return Outcome{Code: OutcomeRejected, Listing: candidate, Reason: item.Error}
	}
}

func (e *Engine) log(out Outcome) {
	switch out.Code {
	case OutcomeBought:
		e.Sugar.Infof("bought listing %s %q for %d", out.Listing.ID, out.Listing.Name, out.FinalPrice)
	case OutcomePriceChanged:
		e.Sugar.Infof("listing %s price moved: expected %d, now %d", out.Listing.ID, out.Listing.Price, out.CurrentPrice)
	case OutcomeTransportFailure:
		if out.NeedsReconciliation {
			e.Sugar.Errorf("purchase of %s in unknown state, reconcile manually: %s", out.Listing.ID, out.Err)
		} else {
			e.Sugar.Errorf("purchase of %s failed: %s", out.Listing.ID, out.Err)
		}
	default:
		e.Sugar.Infof("listing %s not bought: %s %s", out.Listing.ID, out.Code, out.Reason)
	}
}
