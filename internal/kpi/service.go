package kpi

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/terracore/terracore-pro/internal/billing"
)

// Source supplies the rows a dashboard is computed from, in insertion order.
// A zero from or to leaves that side of the window open.
type Source interface {
	ListInvoices(ctx context.Context, companyID uuid.UUID) ([]billing.Invoice, error)
	ListQuotes(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]billing.Quote, error)
	ListClients(ctx context.Context, companyID uuid.UUID) ([]billing.Client, error)
	CountActiveReminders(ctx context.Context, companyID uuid.UUID) (int, error)
	CountPendingAIProposals(ctx context.Context, companyID uuid.UUID) (int, error)
}

// Filter scopes a dashboard request.
type Filter struct {
	CompanyID uuid.UUID
	Preset    Preset
	From      *time.Time
	To        *time.Time
	Year      int
	TopN      int
}

// FetchError wraps the first data-source failure of a dashboard load.
type FetchError struct {
	Entity string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("kpi: load %s: %v", e.Entity, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Service loads rows from a Source and computes dashboards, optionally
// through a Cache.
type Service struct {
	source Source
	cache  *Cache
	topN   int
	now    func() time.Time
}

// NewService wires a Source with an optional Cache.
func NewService(source Source, cache *Cache) *Service {
	return &Service{source: source, cache: cache, topN: DefaultTopClients, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// WithTopClients sets the default ranking size used when a filter leaves it unset.
func (s *Service) WithTopClients(n int) {
	if n > 0 {
		s.topN = n
	}
}

// Cache exposes the cache helper so callers can invalidate it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Dashboard returns the KPIs for the filter. Either every row set loads and a
// full dashboard is returned, or the first failure is returned with no
// dashboard.
func (s *Service) Dashboard(ctx context.Context, filter Filter) (Dashboard, error) {
	now := s.now()
	period, err := ResolvePeriod(filter.Preset, now, filter.From, filter.To)
	if err != nil {
		return Dashboard{}, err
	}
	year := filter.Year
	if year == 0 {
		year = now.Year()
	}
	top := filter.TopN
	if top <= 0 {
		top = s.topN
	}

	loader := func(ctx context.Context) (any, error) {
		return s.load(ctx, filter.CompanyID, period, year, top, now)
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		return value.(Dashboard), nil
	}

	key, err := s.cache.BuildKey(ctx, keyDashboard(filter.CompanyID, period, year, top))
	if err != nil {
		return Dashboard{}, err
	}
	var dashboard Dashboard
	if err := s.cache.FetchJSON(ctx, key, &dashboard, loader); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

func (s *Service) load(ctx context.Context, companyID uuid.UUID, period Period, year, top int, now time.Time) (Dashboard, error) {
	in := Input{CompanyID: companyID, Period: period, Year: year, Now: now, TopN: top}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.source.ListInvoices(gctx, companyID)
		if err != nil {
			return &FetchError{Entity: "invoices", Err: err}
		}
		in.Invoices = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.ListQuotes(gctx, companyID, period.Start, period.End)
		if err != nil {
			return &FetchError{Entity: "quotes", Err: err}
		}
		in.Quotes = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.ListClients(gctx, companyID)
		if err != nil {
			return &FetchError{Entity: "clients", Err: err}
		}
		in.Clients = rows
		return nil
	})
	g.Go(func() error {
		count, err := s.source.CountActiveReminders(gctx, companyID)
		if err != nil {
			return &FetchError{Entity: "reminder workflows", Err: err}
		}
		in.ActiveReminders = count
		return nil
	})
	g.Go(func() error {
		count, err := s.source.CountPendingAIProposals(gctx, companyID)
		if err != nil {
			return &FetchError{Entity: "ai proposals", Err: err}
		}
		in.PendingAIProposals = count
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return Compute(in), nil
}
