package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/terracore/terracore-pro/internal/billing"
)

// Source loads workflows, their messages and a client's invoices. Missing
// single records are reported as billing.ErrNotFound.
type Source interface {
	GetWorkflow(ctx context.Context, companyID, id uuid.UUID) (Workflow, error)
	ListMessages(ctx context.Context, workflowID uuid.UUID) ([]Message, error)
	GetClient(ctx context.Context, companyID, id uuid.UUID) (billing.Client, error)
	ListClientInvoices(ctx context.Context, companyID, clientID uuid.UUID) ([]billing.Invoice, error)
}

// ClientRiskReport is a risk score with the client it belongs to.
type ClientRiskReport struct {
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
	Risk     Risk      `json:"risk"`
}

// Service wires a Source to the pure renderers.
type Service struct {
	source Source
	now    func() time.Time
}

// NewService constructs the service.
func NewService(source Source) *Service {
	return &Service{source: source, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Timeline renders a stored workflow.
func (s *Service) Timeline(ctx context.Context, companyID, workflowID uuid.UUID) (Timeline, error) {
	workflow, err := s.source.GetWorkflow(ctx, companyID, workflowID)
	if err != nil {
		return Timeline{}, fmt.Errorf("reminders: load workflow: %w", err)
	}
	messages, err := s.source.ListMessages(ctx, workflow.ID)
	if err != nil {
		return Timeline{}, fmt.Errorf("reminders: load messages: %w", err)
	}
	return BuildTimeline(workflow, messages), nil
}

// ClientRisk scores a client from its stored invoices.
func (s *Service) ClientRisk(ctx context.Context, companyID, clientID uuid.UUID) (ClientRiskReport, error) {
	var (
		client   billing.Client
		invoices []billing.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		client, err = s.source.GetClient(gctx, companyID, clientID)
		if err != nil {
			return fmt.Errorf("reminders: load client: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		invoices, err = s.source.ListClientInvoices(gctx, companyID, clientID)
		if err != nil {
			return fmt.Errorf("reminders: load invoices: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ClientRiskReport{}, err
	}
	return ClientRiskReport{
		ClientID: client.ID,
		Name:     billing.ClientDisplayName(&client),
		Risk:     ClientRisk(invoices, s.now()),
	}, nil
}
