package billing

import "strings"

// UnknownClientName labels a client with no usable name.
const UnknownClientName = "Client inconnu"

// ClientDisplayName resolves the label shown for a client everywhere in the
// application. Professionals use their company name and fall back to the
// contact's personal name; individuals use their personal name and fall back
// to a company name.
func ClientDisplayName(c *Client) string {
	if c == nil {
		return UnknownClientName
	}
	company := strings.TrimSpace(c.CompanyName)
	personal := personalName(c)
	var name string
	switch c.Type {
	case ClientTypeProfessional:
		name = firstNonEmpty(company, personal)
	default:
		name = firstNonEmpty(personal, company)
	}
	if name == "" {
		return UnknownClientName
	}
	return name
}

// HasDisplayName reports whether the client carries a name of its own rather
// than the placeholder.
func HasDisplayName(c *Client) bool {
	return ClientDisplayName(c) != UnknownClientName
}

// HasPostalAddress reports whether street, postal code and city are all set.
func HasPostalAddress(c *Client) bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.Street) != "" &&
		strings.TrimSpace(c.PostalCode) != "" &&
		strings.TrimSpace(c.City) != ""
}

func personalName(c *Client) string {
	parts := make([]string, 0, 2)
	if v := strings.TrimSpace(c.FirstName); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(c.LastName); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
