package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClientDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		want   string
	}{
		{"nil client", nil, UnknownClientName},
		{"empty individual", &Client{Type: ClientTypeIndividual}, UnknownClientName},
		{"individual full name", &Client{Type: ClientTypeIndividual, FirstName: "Marie", LastName: "Durand"}, "Marie Durand"},
		{"individual last name only", &Client{Type: ClientTypeIndividual, LastName: " Durand "}, "Durand"},
		{"individual falls back to company", &Client{Type: ClientTypeIndividual, CompanyName: "SCI Les Pins"}, "SCI Les Pins"},
		{"professional prefers company name", &Client{Type: ClientTypeProfessional, CompanyName: "Jardins du Sud", FirstName: "Paul", LastName: "Martin"}, "Jardins du Sud"},
		{"professional falls back to contact", &Client{Type: ClientTypeProfessional, FirstName: "Paul", LastName: "Martin"}, "Paul Martin"},
		{"professional blank company", &Client{Type: ClientTypeProfessional, CompanyName: "   ", LastName: "Martin"}, "Martin"},
		{"unknown type behaves as individual", &Client{Type: "", FirstName: "Léa", CompanyName: "ACME"}, "Léa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientDisplayName(tt.client))
		})
	}
}

func TestHasPostalAddress(t *testing.T) {
	assert.False(t, HasPostalAddress(nil))
	assert.False(t, HasPostalAddress(&Client{Street: "1 rue Haute", City: "Lyon"}))
	assert.True(t, HasPostalAddress(&Client{Street: "1 rue Haute", PostalCode: "69001", City: "Lyon"}))
}

func TestInvoiceOutstandingFallsBackToGross(t *testing.T) {
	inv := Invoice{TotalGross: decimal.NewFromInt(120)}
	assert.True(t, inv.Outstanding().Equal(decimal.NewFromInt(120)))

	remaining := decimal.NewFromInt(40)
	inv.RemainingDue = &remaining
	assert.True(t, inv.Outstanding().Equal(decimal.NewFromInt(40)))

	zero := decimal.Zero
	inv.RemainingDue = &zero
	assert.True(t, inv.Outstanding().IsZero())
}
