package types

import (
	"fmt"
	"strings"
)

// Address is the shipping destination stored on orders as jsonb.
type Address struct {
	FullName   string  `json:"full_name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate checks the minimal fields needed to ship a parcel.
func (a Address) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return fmt.Errorf("address: missing full_name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("address: missing country")
	}
	return nil
}
