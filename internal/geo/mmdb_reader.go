package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MmdbReader implements Lookup using a MaxMind City MMDB file.
type MmdbReader struct {
	db *geoip2.Reader
}

// NewMmdbReader opens the MMDB file at the given path and returns a reader.
func NewMmdbReader(path string) (*MmdbReader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &MmdbReader{db: db}, nil
}

// Lookup returns the location for the given IP address. IPs absent from the
// database yield a nil record.
func (r *MmdbReader) Lookup(_ context.Context, ip net.IP) (*Record, error) {
	if ip == nil {
		return nil, &APIError{Message: "invalid IP address"}
	}
	city, err := r.db.City(ip)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("city lookup failed: %v", err)}
	}
	if city.Country.IsoCode == "" {
		return nil, nil
	}
	return &Record{
		Country:     city.Country.Names["en"],
		CountryCode: city.Country.IsoCode,
		City:        city.City.Names["en"],
		Timezone:    city.Location.TimeZone,
		Lat:         city.Location.Latitude,
		Lon:         city.Location.Longitude,
	}, nil
}

// Ready always succeeds once the file is open.
func (r *MmdbReader) Ready() error {
	return nil
}

// Close releases the MMDB reader resources.
func (r *MmdbReader) Close() error {
	return r.db.Close()
}
