// Package billing holds the read-only records the rule engines consume.
//
// Records are produced by the data source and never mutated by the engines.
// Two invariants are assumed of every input and deliberately not enforced:
// TotalGross equals TotalNet plus TotalVAT, and RemainingDue reaches zero
// exactly when an invoice is paid.
package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by data sources when a single record is missing.
var ErrNotFound = errors.New("record not found")

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// QuoteStatus enumerates quote lifecycle states.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRefused  QuoteStatus = "refused"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// ClientType separates private customers from businesses.
type ClientType string

const (
	ClientTypeIndividual   ClientType = "individual"
	ClientTypeProfessional ClientType = "professional"
)

// PaymentMethodBankTransfer is the payment method that requires an IBAN on the invoice.
const PaymentMethodBankTransfer = "bank_transfer"

// Line is a quote or invoice line item.
type Line struct {
	Label        string          `json:"label"`
	Description  string          `json:"description,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit,omitempty"`
	UnitPriceNet decimal.Decimal `json:"unit_price_net"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	TotalNet     decimal.Decimal `json:"total_net"`
	SortOrder    int             `json:"sort_order"`
}

// Invoice is an issued or draft invoice.
type Invoice struct {
	ID                    uuid.UUID        `json:"id"`
	CompanyID             uuid.UUID        `json:"company_id"`
	ClientID              uuid.UUID        `json:"client_id"`
	QuoteID               *uuid.UUID       `json:"quote_id,omitempty"`
	Status                InvoiceStatus    `json:"status"`
	Reference             string           `json:"reference"`
	Object                string           `json:"object,omitempty"`
	Conditions            string           `json:"conditions,omitempty"`
	PaymentMethod         string           `json:"payment_method,omitempty"`
	DateIssued            *time.Time       `json:"date_issued,omitempty"`
	DateDue               *time.Time       `json:"date_due,omitempty"`
	TotalNet              decimal.Decimal  `json:"total_net"`
	TotalVAT              decimal.Decimal  `json:"total_vat"`
	TotalGross            decimal.Decimal  `json:"total_gross"`
	RemainingDue          *decimal.Decimal `json:"remaining_due,omitempty"`
	ReducedVATAttestation bool             `json:"reduced_vat_attestation"`
	Lines                 []Line           `json:"lines,omitempty"`
}

// Outstanding returns the amount still owed, falling back to the gross total
// when no remaining amount was recorded.
func (i Invoice) Outstanding() decimal.Decimal {
	if i.RemainingDue != nil {
		return *i.RemainingDue
	}
	return i.TotalGross
}

// Quote is a commercial proposal sent to a client.
type Quote struct {
	ID                    uuid.UUID       `json:"id"`
	CompanyID             uuid.UUID       `json:"company_id"`
	ClientID              uuid.UUID       `json:"client_id"`
	Status                QuoteStatus     `json:"status"`
	Reference             string          `json:"reference"`
	Title                 string          `json:"title,omitempty"`
	Description           string          `json:"description,omitempty"`
	Conditions            string          `json:"conditions,omitempty"`
	DateIssued            *time.Time      `json:"date_issued,omitempty"`
	DateValidity          *time.Time      `json:"date_validity,omitempty"`
	TotalNet              decimal.Decimal `json:"total_net"`
	TotalVAT              decimal.Decimal `json:"total_vat"`
	TotalGross            decimal.Decimal `json:"total_gross"`
	SAPEligible           bool            `json:"sap_eligible"`
	ReducedVATAttestation bool            `json:"reduced_vat_attestation"`
	Lines                 []Line          `json:"lines,omitempty"`
}

// Client is a customer of a company.
type Client struct {
	ID               uuid.UUID  `json:"id"`
	CompanyID        uuid.UUID  `json:"company_id"`
	Type             ClientType `json:"client_type"`
	CompanyName      string     `json:"company_name,omitempty"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Street           string     `json:"street,omitempty"`
	PostalCode       string     `json:"postal_code,omitempty"`
	City             string     `json:"city,omitempty"`
	Country          string     `json:"country,omitempty"`
	TaxID            string     `json:"tax_id,omitempty"`
	PaymentTermsDays *int       `json:"payment_terms_days,omitempty"`
	SAPEligible      bool       `json:"sap_eligible"`
}

// IsProfessional reports whether the client is a business.
func (c *Client) IsProfessional() bool {
	return c != nil && c.Type == ClientTypeProfessional
}

// Company is the tenant issuing documents.
type Company struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	TaxRegistrationID string    `json:"tax_registration_id,omitempty"`
	IBAN              string    `json:"iban,omitempty"`
	SAPAccreditation  string    `json:"sap_accreditation,omitempty"`
}

// Payment records money received against an invoice.
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      string          `json:"method"`
}

// AIProposalStatusPending marks assistant proposals awaiting review.
const AIProposalStatusPending = "pending"

// AIProposal is an assistant suggestion; only its status matters here.
type AIProposal struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Status    string    `json:"status"`
}
