package utils_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusiot/iot-dashboard-backend/internal/utils"
)

func TestExtractOrigin(t *testing.T) {
	t.Run("Should prefer the Origin header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Referer", "https://other.example.com/page")

		assert.Equal(t, "https://app.example.com", utils.ExtractOrigin(req))
	})

	t.Run("Should fall back to Referer", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Referer", "https://app.example.com/dashboard?tab=1")

		assert.Equal(t, "https://app.example.com", utils.ExtractOrigin(req))
	})

	t.Run("Should return empty without either header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		assert.Equal(t, "", utils.ExtractOrigin(req))
	})
}

func TestHostname(t *testing.T) {
	t.Run("Should extract the hostname from a URL form", func(t *testing.T) {
		assert.Equal(t, "example.com", utils.Hostname("https://example.com"))
		assert.Equal(t, "example.com", utils.Hostname("http://example.com:3000"))
	})

	t.Run("Should pass a bare domain through", func(t *testing.T) {
		assert.Equal(t, "example.com", utils.Hostname("example.com"))
	})
}
