// Package geo resolves source addresses to ISO country codes from a MaxMind database.
package geo

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnknownCountry is returned when the database has no country for an address
var ErrUnknownCountry = errors.New("country unknown")

type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// Resolver looks up countries in a GeoLite2/GeoIP2 Country or City database
type Resolver struct {
	reader countryReader
}

// Open loads the .mmdb file at path
func Open(path string) (*Resolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// CountryCode returns the ISO 3166-1 alpha-2 code for ip
func (r *Resolver) CountryCode(ipAddress string) (string, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "", fmt.Errorf("invalid ip address: %q", ipAddress)
	}

	record, err := r.reader.Country(ip)
	if err != nil {
		return "", fmt.Errorf("geoip lookup: %w", err)
	}

	if record.Country.IsoCode == "" {
		return "", ErrUnknownCountry
	}
	return record.Country.IsoCode, nil
}

func (r *Resolver) Close() error {
	return r.reader.Close()
}
