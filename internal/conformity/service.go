package conformity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/terracore/terracore-pro/internal/billing"
)

// Source loads a document and its relations. Single-record lookups return
// billing.ErrNotFound when the row is missing.
type Source interface {
	GetQuote(ctx context.Context, companyID, id uuid.UUID) (billing.Quote, error)
	GetInvoice(ctx context.Context, companyID, id uuid.UUID) (billing.Invoice, error)
	GetClient(ctx context.Context, companyID, id uuid.UUID) (billing.Client, error)
	GetCompany(ctx context.Context, id uuid.UUID) (billing.Company, error)
	ListQuoteLines(ctx context.Context, quoteID uuid.UUID) ([]billing.Line, error)
	ListInvoiceLines(ctx context.Context, invoiceID uuid.UUID) ([]billing.Line, error)
}

var standardVATRate = decimal.NewFromInt(20)

// Service evaluates stored documents.
type Service struct {
	source Source
}

// NewService constructs the service.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// CheckQuote evaluates a stored quote. A missing quote is reported as
// billing.ErrNotFound; a missing client or company only fails checks.
func (s *Service) CheckQuote(ctx context.Context, companyID, quoteID uuid.UUID) (Report, error) {
	quote, err := s.source.GetQuote(ctx, companyID, quoteID)
	if err != nil {
		return Report{}, fmt.Errorf("conformity: load quote: %w", err)
	}

	var (
		client  *billing.Client
		company *billing.Company
		lines   []billing.Line
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		client, err = s.loadClient(gctx, companyID, quote.ClientID)
		return err
	})
	g.Go(func() (err error) {
		company, err = s.loadCompany(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		lines, err = s.source.ListQuoteLines(gctx, quote.ID)
		if err != nil {
			return fmt.Errorf("conformity: load quote lines: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	quote.Lines = lines
	return Evaluate(Input{
		Kind:          KindQuote,
		Quote:         &quote,
		Client:        client,
		Company:       company,
		HasReducedVAT: HasReducedVAT(lines),
		HasIBAN:       company != nil && company.IBAN != "",
		LineCount:     len(lines),
	}), nil
}

// CheckInvoice evaluates a stored invoice with the same rules for missing
// relations as CheckQuote.
func (s *Service) CheckInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (Report, error) {
	invoice, err := s.source.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return Report{}, fmt.Errorf("conformity: load invoice: %w", err)
	}

	var (
		client  *billing.Client
		company *billing.Company
		lines   []billing.Line
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		client, err = s.loadClient(gctx, companyID, invoice.ClientID)
		return err
	})
	g.Go(func() (err error) {
		company, err = s.loadCompany(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		lines, err = s.source.ListInvoiceLines(gctx, invoice.ID)
		if err != nil {
			return fmt.Errorf("conformity: load invoice lines: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	invoice.Lines = lines
	return Evaluate(Input{
		Kind:          KindInvoice,
		Invoice:       &invoice,
		Client:        client,
		Company:       company,
		HasReducedVAT: HasReducedVAT(lines),
		HasIBAN:       company != nil && company.IBAN != "",
		LineCount:     len(lines),
	}), nil
}

func (s *Service) loadClient(ctx context.Context, companyID, clientID uuid.UUID) (*billing.Client, error) {
	if clientID == uuid.Nil {
		return nil, nil
	}
	client, err := s.source.GetClient(ctx, companyID, clientID)
	if errors.Is(err, billing.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conformity: load client: %w", err)
	}
	return &client, nil
}

func (s *Service) loadCompany(ctx context.Context, companyID uuid.UUID) (*billing.Company, error) {
	company, err := s.source.GetCompany(ctx, companyID)
	if errors.Is(err, billing.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conformity: load company: %w", err)
	}
	return &company, nil
}

// HasReducedVAT reports whether any line uses a rate strictly between zero
// and the standard 20% rate.
func HasReducedVAT(lines []billing.Line) bool {
	for _, line := range lines {
		if line.VATRate.IsPositive() && line.VATRate.LessThan(standardVATRate) {
			return true
		}
	}
	return false
}
