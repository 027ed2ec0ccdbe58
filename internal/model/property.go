package model

import "time"

// Property is the canonical property record. Identity is the normalized
// (address, city, state, zip) tuple.
type Property struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Zip        string    `json:"zip"`
	Owner2     string    `json:"owner2,omitempty"`
	Lists      []string  `json:"lists,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PropertyDetails is the typed descriptive projection of a property.
// Optional fields are pointers so absent values survive round-trips
// without inventing zeroes.
type PropertyDetails struct {
	ID             string     `json:"id"`
	PropertyID     string     `json:"property_id"`
	Bedrooms       *int       `json:"bedrooms,omitempty"`
	Bathrooms      *float64   `json:"bathrooms,omitempty"`
	SquareFeet     *int       `json:"square_feet,omitempty"`
	YearBuilt      *int       `json:"year_built,omitempty"`
	AssessedValue  *float64   `json:"assessed_value,omitempty"`
	TaxDelinquent  *bool      `json:"tax_delinquent,omitempty"`
	TaxAmountOwed  *float64   `json:"tax_amount_owed,omitempty"`
	LienAmount     *float64   `json:"lien_amount,omitempty"`
	LastSaleDate   *time.Time `json:"last_sale_date,omitempty"`
	LastSalePrice  *float64   `json:"last_sale_price,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
