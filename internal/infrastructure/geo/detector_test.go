package geo

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderDetector(t *testing.T) {
	d := NewHeaderDetector()

	t.Run("cloudflare header", func(t *testing.T) {
		h := http.Header{}
		h.Set("CF-IPCountry", "NG")
		loc := d.Detect(h, "")
		assert.Equal(t, "NG", loc.Country)
		assert.Equal(t, "NGN", loc.Currency)
	})

	t.Run("explicit override wins over headers", func(t *testing.T) {
		h := http.Header{}
		h.Set("CF-IPCountry", "US")
		loc := d.Detect(h, "GH")
		assert.Equal(t, "GH", loc.Country)
		assert.Equal(t, "GHS", loc.Currency)
	})

	t.Run("lowercase country is normalized before lookup", func(t *testing.T) {
		loc := d.Detect(http.Header{}, "ng")
		assert.Equal(t, "NG", loc.Country)
		assert.Equal(t, "NGN", loc.Currency)
	})

	t.Run("fallback header", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-Country-Code", "KE")
		loc := d.Detect(h, "")
		assert.Equal(t, "KES", loc.Currency)
	})

	t.Run("unknown country falls back to USD", func(t *testing.T) {
		loc := d.Detect(http.Header{}, "MN")
		assert.Equal(t, "MN", loc.Country)
		assert.Equal(t, "USD", loc.Currency)
	})

	t.Run("no signal at all defaults to US/USD", func(t *testing.T) {
		loc := d.Detect(http.Header{}, "")
		assert.Equal(t, "US", loc.Country)
		assert.Equal(t, "USD", loc.Currency)
	})
}
