package datasource

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/terracore/terracore-pro/internal/billing"
	"github.com/terracore/terracore-pro/internal/reminders"
)

func scanID(row pgx.Row) (uuid.UUID, error) {
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

func scanInvoice(row pgx.Row) (billing.Invoice, error) {
	var (
		inv                                 billing.Invoice
		clientID, quoteID                   pgtype.UUID
		status                              string
		reference, object, conditions, paid pgtype.Text
		issued, due                         pgtype.Date
		net, vat, gross, remaining          pgtype.Numeric
	)
	err := row.Scan(&inv.ID, &inv.CompanyID, &clientID, &quoteID, &status, &reference, &object, &conditions,
		&paid, &issued, &due, &net, &vat, &gross, &remaining, &inv.ReducedVATAttestation)
	if err != nil {
		return billing.Invoice{}, err
	}
	inv.ClientID = uuidValue(clientID)
	inv.QuoteID = uuidPtr(quoteID)
	inv.Status = billing.InvoiceStatus(status)
	inv.Reference = reference.String
	inv.Object = object.String
	inv.Conditions = conditions.String
	inv.PaymentMethod = paid.String
	inv.DateIssued = datePtr(issued)
	inv.DateDue = datePtr(due)
	inv.TotalNet = numericValue(net)
	inv.TotalVAT = numericValue(vat)
	inv.TotalGross = numericValue(gross)
	inv.RemainingDue = numericPtr(remaining)
	return inv, nil
}

func scanQuote(row pgx.Row) (billing.Quote, error) {
	var (
		q                                         billing.Quote
		clientID                                  pgtype.UUID
		status                                    string
		reference, title, description, conditions pgtype.Text
		issued, validity                          pgtype.Date
		net, vat, gross                           pgtype.Numeric
	)
	err := row.Scan(&q.ID, &q.CompanyID, &clientID, &status, &reference, &title, &description, &conditions,
		&issued, &validity, &net, &vat, &gross, &q.SAPEligible, &q.ReducedVATAttestation)
	if err != nil {
		return billing.Quote{}, err
	}
	q.ClientID = uuidValue(clientID)
	q.Status = billing.QuoteStatus(status)
	q.Reference = reference.String
	q.Title = title.String
	q.Description = description.String
	q.Conditions = conditions.String
	q.DateIssued = datePtr(issued)
	q.DateValidity = datePtr(validity)
	q.TotalNet = numericValue(net)
	q.TotalVAT = numericValue(vat)
	q.TotalGross = numericValue(gross)
	return q, nil
}

func scanClient(row pgx.Row) (billing.Client, error) {
	var (
		c                                              billing.Client
		clientType                                     string
		companyName, firstName, lastName, email, phone pgtype.Text
		street, postalCode, city, country, taxID       pgtype.Text
		terms                                          pgtype.Int4
	)
	err := row.Scan(&c.ID, &c.CompanyID, &clientType, &companyName, &firstName, &lastName, &email, &phone,
		&street, &postalCode, &city, &country, &taxID, &terms, &c.SAPEligible)
	if err != nil {
		return billing.Client{}, err
	}
	c.Type = billing.ClientType(clientType)
	c.CompanyName = companyName.String
	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.Email = email.String
	c.Phone = phone.String
	c.Street = street.String
	c.PostalCode = postalCode.String
	c.City = city.String
	c.Country = country.String
	c.TaxID = taxID.String
	if terms.Valid {
		days := int(terms.Int32)
		c.PaymentTermsDays = &days
	}
	return c, nil
}

func scanCompany(row pgx.Row) (billing.Company, error) {
	var (
		c                   billing.Company
		taxID, iban, sapRef pgtype.Text
	)
	if err := row.Scan(&c.ID, &c.Name, &taxID, &iban, &sapRef); err != nil {
		return billing.Company{}, err
	}
	c.TaxRegistrationID = taxID.String
	c.IBAN = iban.String
	c.SAPAccreditation = sapRef.String
	return c, nil
}

func scanLine(row pgx.Row) (billing.Line, error) {
	var (
		l                                   billing.Line
		description, unit                   pgtype.Text
		quantity, unitPrice, vatRate, total pgtype.Numeric
	)
	if err := row.Scan(&l.Label, &description, &quantity, &unit, &unitPrice, &vatRate, &total, &l.SortOrder); err != nil {
		return billing.Line{}, err
	}
	l.Description = description.String
	l.Unit = unit.String
	l.Quantity = numericValue(quantity)
	l.UnitPriceNet = numericValue(unitPrice)
	l.VATRate = numericValue(vatRate)
	l.TotalNet = numericValue(total)
	return l, nil
}

func scanWorkflow(row pgx.Row) (reminders.Workflow, error) {
	var (
		w                   reminders.Workflow
		clientID, invoiceID pgtype.UUID
		level               string
		stoppedAt           pgtype.Timestamptz
		reason              pgtype.Text
	)
	err := row.Scan(&w.ID, &w.CompanyID, &clientID, &invoiceID, &w.IsActive, &level, &w.CreatedAt, &stoppedAt, &reason)
	if err != nil {
		return reminders.Workflow{}, err
	}
	w.ClientID = uuidValue(clientID)
	w.InvoiceID = uuidValue(invoiceID)
	w.CurrentLevel = reminders.Level(level)
	w.StoppedAt = timestampPtr(stoppedAt)
	w.StoppedReason = reason.String
	return w, nil
}

func scanMessage(row pgx.Row) (reminders.Message, error) {
	var (
		m                      reminders.Message
		level, channel, status string
		sentAt                 pgtype.Timestamptz
		errMsg                 pgtype.Text
	)
	if err := row.Scan(&m.ID, &m.WorkflowID, &level, &channel, &status, &sentAt, &errMsg); err != nil {
		return reminders.Message{}, err
	}
	m.Level = reminders.Level(level)
	m.Channel = reminders.Channel(channel)
	m.Status = reminders.MessageStatus(status)
	m.SentAt = timestampPtr(sentAt)
	m.ErrorMessage = errMsg.String
	return m, nil
}

func uuidValue(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

func uuidPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

// datePtr keeps the calendar date in UTC; infinite dates read as missing.
func datePtr(v pgtype.Date) *time.Time {
	if !v.Valid || v.InfinityModifier != pgtype.Finite {
		return nil
	}
	y, m, d := v.Time.Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func timestampPtr(v pgtype.Timestamptz) *time.Time {
	if !v.Valid || v.InfinityModifier != pgtype.Finite {
		return nil
	}
	t := v.Time
	return &t
}

// numericValue converts exactly; NULL and NaN read as zero.
func numericValue(v pgtype.Numeric) decimal.Decimal {
	if !v.Valid || v.NaN || v.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.Int, v.Exp)
}

func numericPtr(v pgtype.Numeric) *decimal.Decimal {
	if !v.Valid || v.NaN || v.Int == nil {
		return nil
	}
	d := decimal.NewFromBigInt(v.Int, v.Exp)
	return &d
}
