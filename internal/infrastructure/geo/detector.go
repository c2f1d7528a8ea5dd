// Package geo derives the buyer's country and settlement currency from
// request headers so checkout can pick a provider before any payment call.
package geo

import (
	"net/http"
	"strings"
)

// Location is the detected billing locale.
type Location struct {
	Country  string
	Currency string
}

// Detector resolves a Location from request headers, with an optional
// explicit country override from the request body winning over detection.
type Detector interface {
	Detect(headers http.Header, override string) Location
}

var countryCurrency = map[string]string{
	"NG": "NGN",
	"GH": "GHS",
	"KE": "KES",
	"ZA": "ZAR",
	"UG": "UGX",
	"TZ": "TZS",
	"GB": "GBP",
	"DE": "EUR",
	"FR": "EUR",
	"ES": "EUR",
	"IT": "EUR",
	"NL": "EUR",
	"IE": "EUR",
	"PT": "EUR",
	"US": "USD",
	"CA": "USD",
}

const (
	defaultCountry  = "US"
	defaultCurrency = "USD"
)

// HeaderDetector reads the edge-provided country header. Cloudflare sets
// CF-IPCountry; X-Country-Code covers other proxies.
type HeaderDetector struct{}

func NewHeaderDetector() *HeaderDetector {
	return &HeaderDetector{}
}

func (d *HeaderDetector) Detect(headers http.Header, override string) Location {
	country := override
	if country == "" {
		country = headers.Get("CF-IPCountry")
	}
	if country == "" {
		country = headers.Get("X-Country-Code")
	}
	country = strings.ToUpper(country)
	if country == "" || country == "XX" {
		country = defaultCountry
	}

	currency, ok := countryCurrency[country]
	if !ok {
		currency = defaultCurrency
	}
	return Location{Country: country, Currency: currency}
}
