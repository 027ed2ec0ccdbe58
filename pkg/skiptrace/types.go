package skiptrace

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	MailingAddress  string            `json:"mailing_address"`
	MailingCity     string            `json:"mailing_city"`
	MailingState    string            `json:"mailing_state"`
	MailingZip      string            `json:"mailing_zip"`
	PropertyAddress string            `json:"property_address,omitempty"`
	PropertyCity    string            `json:"property_city,omitempty"`
	PropertyState   string            `json:"property_state,omitempty"`
	PropertyZip     string            `json:"property_zip,omitempty"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`
}

// SearchResponse is the provider's response for POST /search.
type SearchResponse struct {
	Status     string          `json:"status"`
	Input      SearchRequest   `json:"input"`
	ResultCode string          `json:"result_code"`
	Identities []Identity      `json:"identities"`
}

// Identity is one candidate identity block. A block may carry several
// alternate name records for the same person.
type Identity struct {
	Names     []Name     `json:"names"`
	Phones    []Phone    `json:"phones"`
	Addresses []Address  `json:"addresses"`
	Relatives []Relative `json:"relatives"`
}

// Name is one name record on a candidate identity.
type Name struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age,omitempty"`
	Deceased  *bool  `json:"deceased,omitempty"`
}

// Phone is a phone record on a candidate identity or relative.
type Phone struct {
	Number string `json:"number"`
	Type   string `json:"type,omitempty"`
}

// Address is a confirmed address record on a candidate identity.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Relative is a related person embedded in a candidate identity. The
// provider returns the name as a single string.
type Relative struct {
	Name   string  `json:"name"`
	Age    int     `json:"age,omitempty"`
	Phones []Phone `json:"phones"`
}
