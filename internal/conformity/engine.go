// Package conformity classifies quotes and invoices against the legal
// mentions a French document must or should carry.
package conformity

import (
	"strings"

	"github.com/terracore/terracore-pro/internal/aggregate"
	"github.com/terracore/terracore-pro/internal/billing"
)

// Kind is the document type under evaluation.
type Kind string

const (
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
)

// Category sets how much a failed check weighs.
type Category string

const (
	CategoryMandatory      Category = "mandatory"
	CategoryRecommended    Category = "recommended"
	CategoryDomainSpecific Category = "domain_specific"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Verdict summarises a report.
type Verdict string

const (
	VerdictConforming     Verdict = "conforming"
	VerdictNeedsAttention Verdict = "needs_attention"
	VerdictNonConforming  Verdict = "non_conforming"
)

// Check identifiers, stable across releases so clients can key on them.
const (
	CheckReference             = "reference"
	CheckIssueDate             = "issue_date"
	CheckClientName            = "client_name"
	CheckClientAddress         = "client_address"
	CheckCompanyTaxID          = "company_tax_id"
	CheckLineItems             = "line_items"
	CheckTotalPositive         = "total_positive"
	CheckLegalMentions         = "legal_mentions"
	CheckClientVATNumber       = "client_vat_number"
	CheckValidityDate          = "validity_date"
	CheckQuoteTitle            = "quote_title"
	CheckSAPQuoteFlag          = "sap_quote_flag"
	CheckSAPAccreditation      = "sap_accreditation"
	CheckReducedVATAttestation = "reduced_vat_attestation"
	CheckDueDate               = "due_date"
	CheckPaymentMethod         = "payment_method"
	CheckLinkedQuote           = "linked_quote"
	CheckIBAN                  = "iban"
	CheckInvoiceObject         = "invoice_object"
)

// Input is everything a conformity evaluation looks at. Exactly one of Quote
// or Invoice is read, chosen by Kind; the other is ignored. Client and
// Company may be nil.
type Input struct {
	Kind          Kind
	Quote         *billing.Quote
	Invoice       *billing.Invoice
	Client        *billing.Client
	Company       *billing.Company
	HasReducedVAT bool
	HasIBAN       bool
	LineCount     int
}

// Item is one row of the checklist.
type Item struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Category   Category `json:"category"`
	Status     Status   `json:"status"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Report is the ordered checklist with its verdict. Score measures
// completeness while Verdict measures legal risk; they move independently.
type Report struct {
	Kind     Kind    `json:"kind"`
	Items    []Item  `json:"items"`
	Verdict  Verdict `json:"verdict"`
	Score    int     `json:"score"`
	OK       int     `json:"ok"`
	Warnings int     `json:"warnings"`
	Errors   int     `json:"errors"`
}

// document is the view shared by quotes and invoices.
type document struct {
	reference     string
	issued        bool
	conditions    string
	grossPositive bool
	attestation   bool
}

// Evaluate runs every applicable check in a fixed order. It never fails:
// missing relations become failed checks.
func Evaluate(in Input) Report {
	var l checklist
	doc := documentOf(in)

	l.add(CheckReference, "Numéro de document", CategoryMandatory, doc.reference != "",
		"Attribuez un numéro unique et chronologique au document.")
	l.add(CheckIssueDate, "Date d'émission", CategoryMandatory, doc.issued,
		"Renseignez la date d'émission.")
	l.add(CheckClientName, "Nom du client", CategoryMandatory, billing.HasDisplayName(in.Client),
		"Indiquez le nom ou la raison sociale du client.")
	l.add(CheckClientAddress, "Adresse du client", CategoryMandatory, billing.HasPostalAddress(in.Client),
		"Complétez l'adresse du client (rue, code postal, ville).")
	l.add(CheckCompanyTaxID, "SIRET de l'entreprise", CategoryMandatory, in.Company != nil && strings.TrimSpace(in.Company.TaxRegistrationID) != "",
		"Ajoutez le numéro SIRET dans les paramètres de l'entreprise.")
	l.add(CheckLineItems, "Lignes de prestation", CategoryMandatory, in.LineCount > 0,
		"Ajoutez au moins une ligne de prestation.")
	l.add(CheckTotalPositive, "Montant total", CategoryMandatory, doc.grossPositive,
		"Le montant TTC doit être supérieur à zéro.")

	legal := CategoryRecommended
	if in.Kind == KindQuote {
		legal = CategoryMandatory
	}
	l.add(CheckLegalMentions, "Mentions légales et conditions", legal, strings.TrimSpace(doc.conditions) != "",
		"Ajoutez les conditions générales et mentions légales.")

	if in.Client.IsProfessional() {
		l.add(CheckClientVATNumber, "N° TVA intracommunautaire du client", CategoryRecommended, strings.TrimSpace(in.Client.TaxID) != "",
			"Renseignez le numéro de TVA du client professionnel.")
	}

	switch in.Kind {
	case KindQuote:
		evaluateQuote(&l, in, doc)
	case KindInvoice:
		evaluateInvoice(&l, in, doc)
	}
	return l.report(in.Kind)
}

func evaluateQuote(l *checklist, in Input, doc document) {
	q := in.Quote
	l.add(CheckValidityDate, "Date de validité", CategoryMandatory, q != nil && q.DateValidity != nil,
		"Indiquez la durée de validité du devis.")
	l.add(CheckQuoteTitle, "Objet du devis", CategoryRecommended, q != nil && strings.TrimSpace(q.Title) != "",
		"Donnez un intitulé descriptif au devis.")
	if in.Client != nil && in.Client.SAPEligible {
		l.add(CheckSAPQuoteFlag, "Devis éligible SAP", CategoryDomainSpecific, q != nil && q.SAPEligible,
			"Marquez le devis comme éligible aux services à la personne.")
		l.add(CheckSAPAccreditation, "Agrément SAP", CategoryDomainSpecific, in.Company != nil && strings.TrimSpace(in.Company.SAPAccreditation) != "",
			"Ajoutez le numéro d'agrément ou de déclaration SAP de l'entreprise.")
	}
	if in.HasReducedVAT {
		l.add(CheckReducedVATAttestation, "Attestation de TVA réduite", CategoryDomainSpecific, doc.attestation,
			"Joignez l'attestation simplifiée de TVA à taux réduit.")
	}
}

func evaluateInvoice(l *checklist, in Input, doc document) {
	inv := in.Invoice
	l.add(CheckDueDate, "Date d'échéance", CategoryMandatory, inv != nil && inv.DateDue != nil,
		"Indiquez la date d'échéance du paiement.")
	l.add(CheckPaymentMethod, "Mode de paiement", CategoryMandatory, inv != nil && strings.TrimSpace(inv.PaymentMethod) != "",
		"Précisez le mode de paiement attendu.")
	l.add(CheckLinkedQuote, "Devis associé", CategoryRecommended, inv != nil && inv.QuoteID != nil,
		"Rattachez la facture au devis accepté.")
	if inv != nil && strings.EqualFold(strings.TrimSpace(inv.PaymentMethod), billing.PaymentMethodBankTransfer) {
		l.add(CheckIBAN, "IBAN", CategoryMandatory, in.HasIBAN,
			"Ajoutez l'IBAN de l'entreprise pour le paiement par virement.")
	}
	l.add(CheckInvoiceObject, "Objet de la facture", CategoryRecommended, inv != nil && strings.TrimSpace(inv.Object) != "",
		"Décrivez l'objet de la facture.")
	if in.HasReducedVAT {
		l.add(CheckReducedVATAttestation, "Attestation de TVA réduite", CategoryDomainSpecific, doc.attestation,
			"Joignez l'attestation simplifiée de TVA à taux réduit.")
	}
}

func documentOf(in Input) document {
	switch in.Kind {
	case KindQuote:
		if q := in.Quote; q != nil {
			return document{
				reference:     strings.TrimSpace(q.Reference),
				issued:        q.DateIssued != nil,
				conditions:    q.Conditions,
				grossPositive: q.TotalGross.IsPositive(),
				attestation:   q.ReducedVATAttestation,
			}
		}
	case KindInvoice:
		if inv := in.Invoice; inv != nil {
			return document{
				reference:     strings.TrimSpace(inv.Reference),
				issued:        inv.DateIssued != nil,
				conditions:    inv.Conditions,
				grossPositive: inv.TotalGross.IsPositive(),
				attestation:   inv.ReducedVATAttestation,
			}
		}
	}
	return document{}
}

type checklist struct {
	items []Item
}

func (l *checklist) add(id, label string, category Category, passed bool, suggestion string) {
	item := Item{ID: id, Label: label, Category: category, Status: StatusOK}
	if !passed {
		item.Status = failedStatus(category)
		item.Suggestion = suggestion
	}
	l.items = append(l.items, item)
}

func (l *checklist) report(kind Kind) Report {
	r := Report{Kind: kind, Items: l.items}
	for _, item := range l.items {
		switch item.Status {
		case StatusOK:
			r.OK++
		case StatusWarning:
			r.Warnings++
		case StatusError:
			r.Errors++
		}
	}
	switch {
	case r.Errors > 0:
		r.Verdict = VerdictNonConforming
	case r.Warnings > 0:
		r.Verdict = VerdictNeedsAttention
	default:
		r.Verdict = VerdictConforming
	}
	r.Score = aggregate.Ratio(r.OK, len(l.items))
	return r
}

func failedStatus(category Category) Status {
	if category == CategoryMandatory {
		return StatusError
	}
	return StatusWarning
}
