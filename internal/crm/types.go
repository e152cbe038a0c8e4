package crm

import "time"

// Doctype is the CRM record-kind discriminator.
type Doctype string

// Supported doctypes.
const (
	DoctypeLead Doctype = "Lead"
	DoctypeDeal Doctype = "Deal"
)

// Resource returns the Frappe resource name for the doctype (e.g. "CRM Lead").
func (d Doctype) Resource() string {
	return "CRM " + string(d)
}

// Label returns the lower-case human label used in chat messages.
func (d Doctype) Label() string {
	if d == DoctypeDeal {
		return "deal"
	}
	return "lead"
}

// Valid reports whether d is a known doctype.
func (d Doctype) Valid() bool {
	return d == DoctypeLead || d == DoctypeDeal
}

// Connection holds the details needed to call one CRM instance.
type Connection struct {
	Alias     string `json:"alias"`
	URL       string `json:"url"`
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// ListItem is one row of a filtered resource-list response. Deal records
// carry no first/last name; those fields stay empty.
type ListItem struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Status       string `json:"status,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Modified     string `json:"modified,omitempty"`
}

// ModifiedDate returns the date portion of the modified timestamp
// (Frappe renders "2024-01-02 15:04:05.000000").
func (i ListItem) ModifiedDate() string {
	for pos, r := range i.Modified {
		if r == ' ' || r == 'T' {
			return i.Modified[:pos]
		}
	}
	return i.Modified
}

// DisplayName joins first and last name, or "—" when both are empty.
func (i ListItem) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	case i.LastName != "":
		return i.LastName
	}
	return "—"
}

// authState tracks one chat's authentication against one alias.
type authState struct {
	Authenticated bool
	AuthAt        time.Time
}
