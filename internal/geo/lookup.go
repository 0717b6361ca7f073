// Package geo maps an IP address to the location data shown for a page.
package geo

import (
	"context"
	"net"
)

// Record is the location data known for an IP address.
type Record struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	City        string  `json:"city"`
	Timezone    string  `json:"timezone"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Lookup defines the interface for IP-to-location lookups.
type Lookup interface {
	// Lookup returns the location of ip. A nil record with a nil error means the
	// service knows the IP but has no geo data for it.
	Lookup(ctx context.Context, ip net.IP) (*Record, error)
}

// Checker is implemented by lookups that can report whether they are usable.
type Checker interface {
	Ready() error
}
