package portals

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/xyths/hs"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"portals-sniper/notify"
)

const (
	// envToken is where the auth token lives when the config omits it; a
	// .env file in the working directory is honored.
	envToken = "auth"

	defaultInterval = time.Second * 3
	defaultCycle    = time.Minute
)

// Target is one (collection, model filter, policy) the sniper hunts. An
// empty Models list means every model of the collection.
type Target struct {
	Collection        string   `json:"collection"`
	Models            []string `json:"models"`
	MaxPrice          int64    `json:"maxPrice"`
	MinRarityPerMille *int64   `json:"minRarityPerMille"`
	RequireFloorBelow *int64   `json:"requireFloorBelow"`
	Quantity          int      `json:"quantity"` // buys per model per cycle, default 1
}

type Config struct {
	Log      hs.LogConf
	BaseURL  string `json:"baseUrl"`
	Token    string // falls back to the `auth` env var
	Interval string // minimum pause between marketplace reads
	Cycle    string // pause between full passes over all targets
	PageSize int    `json:"pageSize"`
	Workers  int    // parallel model scans, default 1
	Targets  []Target
	Telegram notify.TelegramConf
	Discord  notify.DiscordConf
}

// Sniper drives the poll loop: resolve each collection's models, scan every
// hunted model cheapest-first, hand candidates to the acquisition engine,
// stop a model as soon as its quantity is bought.
type Sniper struct {
	cfg      Config
	interval time.Duration
	cycle    time.Duration
	workers  int

	Sugar    *zap.SugaredLogger
	client   *Client
	notifier *notify.Notifier
}

func New(cfg Config) *Sniper { return &Sniper{cfg: cfg} }

func (s *Sniper) Init(ctx context.Context) error {
	l, err := hs.NewZapLogger(s.cfg.Log)
	if err != nil {
		return err
	}
	s.Sugar = l.Sugar()
	s.Sugar.Info("logger initialized")

	s.interval = defaultInterval
	if s.cfg.Interval != "" {
		if s.interval, err = time.ParseDuration(s.cfg.Interval); err != nil {
			s.Sugar.Errorf("interval %s format error: %s", s.cfg.Interval, err)
			return err
		}
	}
	s.cycle = defaultCycle
	if s.cfg.Cycle != "" {
		if s.cycle, err = time.ParseDuration(s.cfg.Cycle); err != nil {
			s.Sugar.Errorf("cycle %s format error: %s", s.cfg.Cycle, err)
			return err
		}
	}
	s.workers = s.cfg.Workers
	if s.workers <= 0 {
		s.workers = 1
	}

	token := s.cfg.Token
	if token == "" {
		_ = godotenv.Load()
		token = os.Getenv(envToken)
	}
	if token == "" {
		return errors.New("no auth token in config or environment")
	}
	s.client = NewClient(s.cfg.BaseURL, token)
	// one token bucket shared by every worker
	s.client.SetLimiter(rate.NewLimiter(rate.Every(s.interval), 1))
	s.Sugar.Info("marketplace client initialized")

	s.notifier, err = notify.New(s.cfg.Telegram, s.cfg.Discord, s.Sugar)
	if err != nil {
		s.Sugar.Errorf("notifier init error: %s", err)
		return err
	}
	s.Sugar.Info("sniper initialized")
	return nil
}

func (s *Sniper) Close(ctx context.Context) {
	if s.client != nil {
		s.client.Close()
	}
	s.Sugar.Info("sniper closed")
}

// Models resolves the model list of one collection, for the CLI.
func (s *Sniper) Models(ctx context.Context, collection string) ([]Model, error) {
	return s.client.ResolveModels(ctx, collection)
}

// Wallet fetches the account balances, for the CLI.
func (s *Sniper) Wallet(ctx context.Context) ([]WalletRow, error) {
	return s.client.WalletBalance(ctx)
}

// Run polls until the context is cancelled. Cancellation is honored between
// jobs and between pages, never mid-purchase.
func (s *Sniper) Run(ctx context.Context) error {
	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cycle):
			s.runCycle(ctx)
		}
	}
}

// RunOnce performs a single pass over all targets.
func (s *Sniper) RunOnce(ctx context.Context) error {
	s.runCycle(ctx)
	return ctx.Err()
}

// job is one model to scan, with the policy and buy quantity that apply.
type job struct {
	collection string
	model      Model
	policy     Policy
	quantity   int
}

func (s *Sniper) runCycle(ctx context.Context) {
	s.Sugar.Info("cycle start")
	defer s.Sugar.Info("cycle finish")

	jobs := s.buildJobs(ctx)
	if len(jobs) == 0 {
		return
	}
	s.Sugar.Infof("cycle has %d model scans", len(jobs))

	ch := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				s.runJob(ctx, j)
			}
		}()
	}
feed:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case ch <- j:
		}
	}
	close(ch)
	wg.Wait()
}

// buildJobs resolves each target's collection once per cycle and expands the
// targets into per-model jobs. A catalog failure skips that collection for
// the cycle; the rest proceed.
func (s *Sniper) buildJobs(ctx context.Context) []job {
	catalog := make(map[string][]Model)
	var jobs []job
	for _, t := range s.cfg.Targets {
		select {
		case <-ctx.Done():
			return jobs
		default:
		}
		models, known := catalog[t.Collection]
		if !known {
			var err error
			models, err = s.client.ResolveModels(ctx, t.Collection)
			if err != nil {
				s.Sugar.Errorf("resolve models of %q error: %s", t.Collection, err)
				catalog[t.Collection] = nil
				continue
			}
			s.Sugar.Infof("collection %q has %d models", t.Collection, len(models))
			catalog[t.Collection] = models
		}
		if models == nil {
			continue
		}
		wanted := make(map[string]bool, len(t.Models))
		for _, name := range t.Models {
			wanted[name] = true
		}
		policy := Policy{
			MaxPrice:          t.MaxPrice,
			MinRarityPerMille: t.MinRarityPerMille,
			RequireFloorBelow: t.RequireFloorBelow,
		}
		quantity := t.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		for _, m := range models {
			if len(wanted) > 0 && !wanted[m.Name] {
				continue
			}
			jobs = append(jobs, job{collection: t.Collection, model: m, policy: policy, quantity: quantity})
		}
	}
	return jobs
}

// runJob scans one model cheapest-first and stops as soon as the quantity is
// bought. One engine pass per job keeps same-model purchases serialized.
func (s *Sniper) runJob(ctx context.Context, j job) {
	engine := NewEngine(s.client, s.Sugar)
	scan := s.client.Scan(j.collection, j.model.Name, s.cfg.PageSize)
	bought := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		l, err := scan.Next(ctx)
		if err != nil {
			s.Sugar.Errorf("scan %s/%s error: %s", j.collection, j.model.Name, err)
			return
		}
		if l == nil {
			return
		}
		l.RarityPerMille = j.model.RarityPerMille
		out := engine.TryAcquire(ctx, *l, j.policy)
		s.report(out)
		switch out.Code {
		case OutcomeBought:
			bought++
			if bought >= j.quantity {
				return
			}
		case OutcomeInsufficientFunds:
			// no funds for the cheapest candidate means none for the rest
			return
		case OutcomeTransportFailure:
			if out.NeedsReconciliation {
				// do not keep buying on top of an unknown settlement
				return
			}
		}
	}
}

func (s *Sniper) report(out Outcome) {
	switch out.Code {
	case OutcomeBought:
		s.notifier.Send(formatOutcome(out))
	case OutcomeTransportFailure:
		if out.NeedsReconciliation {
			s.notifier.Send(formatOutcome(out))
		}
	}
}
