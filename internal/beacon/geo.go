package beacon

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoResolver maps a visitor IP to a country code for audience
// geography reporting. Resolution failures degrade to an empty country,
// never an ingest error.
type GeoResolver interface {
	Country(ip string) string
	Close() error
}

// MaxMindGeoResolver resolves countries from a MaxMind GeoLite2
// database file.
type MaxMindGeoResolver struct {
	reader *geoip2.Reader
}

// NewMaxMindGeoResolver opens the GeoLite2 database at dbPath.
func NewMaxMindGeoResolver(dbPath string) (*MaxMindGeoResolver, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &MaxMindGeoResolver{reader: reader}, nil
}

func (m *MaxMindGeoResolver) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	record, err := m.reader.Country(parsed)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

func (m *MaxMindGeoResolver) Close() error {
	return m.reader.Close()
}
