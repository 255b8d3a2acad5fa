// Package datasource reads billing rows from PostgreSQL for the rule engines.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terracore/terracore-pro/internal/billing"
	"github.com/terracore/terracore-pro/internal/platform/db"
	"github.com/terracore/terracore-pro/internal/reminders"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements the row sources of kpi, conformity and reminders. Lists
// come back in insertion order.
type Store struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// WithTx runs fn against a Store bound to a single read-only
// repeatable-read transaction, so every read sees the same snapshot.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Store) error) error {
	return db.WithSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Store{db: tx, pool: s.pool})
	})
}

const invoiceColumns = `id, company_id, client_id, quote_id, status, reference, object, conditions,
	payment_method, date_issued, date_due, total_net, total_vat, total_gross, remaining_due,
	reduced_vat_attestation`

const quoteColumns = `id, company_id, client_id, status, reference, title, description, conditions,
	date_issued, date_validity, total_net, total_vat, total_gross, sap_eligible, reduced_vat_attestation`

const clientColumns = `id, company_id, client_type, company_name, first_name, last_name, email, phone,
	street, postal_code, city, country, tax_id, payment_terms_days, sap_eligible`

const lineColumns = `label, description, quantity, unit, unit_price_net, vat_rate, total_net, sort_order`

// ListInvoices returns every invoice of the company.
func (s *Store) ListInvoices(ctx context.Context, companyID uuid.UUID) ([]billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 ORDER BY created_at, id`
	return collect(ctx, s.db, "invoices", scanInvoice, query, companyID)
}

// ListClientInvoices returns the invoices of one client.
func (s *Store) ListClientInvoices(ctx context.Context, companyID, clientID uuid.UUID) ([]billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND client_id = $2 ORDER BY created_at, id`
	return collect(ctx, s.db, "client invoices", scanInvoice, query, companyID, clientID)
}

// ListQuotes returns quotes issued in [from, to). A zero bound leaves that
// side open.
func (s *Store) ListQuotes(ctx context.Context, companyID uuid.UUID, from, to time.Time) ([]billing.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes
		WHERE company_id = $1
		  AND ($2::date IS NULL OR date_issued >= $2::date)
		  AND ($3::date IS NULL OR date_issued < $3::date)
		ORDER BY created_at, id`
	return collect(ctx, s.db, "quotes", scanQuote, query, companyID, dateArg(from), dateArg(to))
}

// ListClients returns every client of the company.
func (s *Store) ListClients(ctx context.Context, companyID uuid.UUID) ([]billing.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE company_id = $1 ORDER BY created_at, id`
	return collect(ctx, s.db, "clients", scanClient, query, companyID)
}

// CountActiveReminders counts running reminder workflows.
func (s *Store) CountActiveReminders(ctx context.Context, companyID uuid.UUID) (int, error) {
	return s.count(ctx, "reminder workflows", `SELECT COUNT(*) FROM reminder_workflows WHERE company_id = $1 AND is_active`, companyID)
}

// CountPendingAIProposals counts assistant proposals awaiting review.
func (s *Store) CountPendingAIProposals(ctx context.Context, companyID uuid.UUID) (int, error) {
	return s.count(ctx, "ai proposals", `SELECT COUNT(*) FROM ai_proposals WHERE company_id = $1 AND status = $2`,
		companyID, billing.AIProposalStatusPending)
}

// GetQuote loads a single quote without its lines.
func (s *Store) GetQuote(ctx context.Context, companyID, id uuid.UUID) (billing.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE company_id = $1 AND id = $2`
	return one[billing.Quote](scanQuote(s.db.QueryRow(ctx, query, companyID, id)))
}

// GetInvoice loads a single invoice without its lines.
func (s *Store) GetInvoice(ctx context.Context, companyID, id uuid.UUID) (billing.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND id = $2`
	return one[billing.Invoice](scanInvoice(s.db.QueryRow(ctx, query, companyID, id)))
}

// GetClient loads a single client.
func (s *Store) GetClient(ctx context.Context, companyID, id uuid.UUID) (billing.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE company_id = $1 AND id = $2`
	return one[billing.Client](scanClient(s.db.QueryRow(ctx, query, companyID, id)))
}

// GetCompany loads the issuing company.
func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (billing.Company, error) {
	const query = `SELECT id, name, tax_registration_id, iban, sap_accreditation FROM companies WHERE id = $1`
	return one[billing.Company](scanCompany(s.db.QueryRow(ctx, query, id)))
}

// ListQuoteLines returns the lines of a quote in display order.
func (s *Store) ListQuoteLines(ctx context.Context, quoteID uuid.UUID) ([]billing.Line, error) {
	query := `SELECT ` + lineColumns + ` FROM quote_lines WHERE quote_id = $1 ORDER BY sort_order, id`
	return collect(ctx, s.db, "quote lines", scanLine, query, quoteID)
}

// ListInvoiceLines returns the lines of an invoice in display order.
func (s *Store) ListInvoiceLines(ctx context.Context, invoiceID uuid.UUID) ([]billing.Line, error) {
	query := `SELECT ` + lineColumns + ` FROM invoice_lines WHERE invoice_id = $1 ORDER BY sort_order, id`
	return collect(ctx, s.db, "invoice lines", scanLine, query, invoiceID)
}

// GetWorkflow loads a reminder workflow.
func (s *Store) GetWorkflow(ctx context.Context, companyID, id uuid.UUID) (reminders.Workflow, error) {
	const query = `SELECT id, company_id, client_id, invoice_id, is_active, current_level, created_at,
		stopped_at, stopped_reason
		FROM reminder_workflows WHERE company_id = $1 AND id = $2`
	return one[reminders.Workflow](scanWorkflow(s.db.QueryRow(ctx, query, companyID, id)))
}

// ListMessages returns the messages of a workflow.
func (s *Store) ListMessages(ctx context.Context, workflowID uuid.UUID) ([]reminders.Message, error) {
	const query = `SELECT id, workflow_id, level, channel, status, sent_at, error_message
		FROM reminder_messages WHERE workflow_id = $1 ORDER BY created_at, id`
	return collect(ctx, s.db, "reminder messages", scanMessage, query, workflowID)
}

// ListCompanyIDs returns every company, oldest first.
func (s *Store) ListCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	return collect(ctx, s.db, "companies", scanID, `SELECT id FROM companies ORDER BY created_at, id`)
}

func (s *Store) count(ctx context.Context, entity, query string, args ...any) (int, error) {
	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("datasource: count %s: %w", entity, err)
	}
	return int(n), nil
}

func collect[T any](ctx context.Context, q dbtx, entity string, scan func(pgx.Row) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("datasource: list %s: %w", entity, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("datasource: scan %s: %w", entity, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datasource: list %s: %w", entity, err)
	}
	return out, nil
}

func one[T any](item T, err error) (T, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, billing.ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("datasource: %w", err)
	}
	return item, nil
}

func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.DateOnly)
}
