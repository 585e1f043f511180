// internal/knowledge/extract_test.go
package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	html := `<html><head><title>ignored</title></head><body>
		<script>var x = 1;</script>
		<style>.a { color: red; }</style>
		<h1>Refund policy</h1>
		<p>Refunds are processed within <b>14 days</b>.</p>
	</body></html>`

	text := StripHTML(html)
	assert.Equal(t, "Refund policy Refunds are processed within 14 days .", text)
}

func TestStripHTMLPlainText(t *testing.T) {
	assert.Equal(t, "just text", StripHTML("  just   text \n"))
}

func TestExtractURL(t *testing.T) {
	assert := assert.New(t)
	page := `<html><body><p>` + strings.Repeat("Support article content. ", 10) + `</p></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	e := NewExtractor(5 * time.Second)
	text, err := e.ExtractURL(context.Background(), server.URL)
	assert.NoError(err)
	assert.Contains(text, "Support article content.")
	assert.NotContains(text, "<p>")
}

func TestExtractURLTooShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>hi</body></html>`))
	}))
	defer server.Close()

	e := NewExtractor(5 * time.Second)
	_, err := e.ExtractURL(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrContentTooShort)
}

func TestExtractURLUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	e := NewExtractor(5 * time.Second)
	_, err := e.ExtractURL(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrURLFetchFailed)
}

func TestExtractURLInvalid(t *testing.T) {
	e := NewExtractor(time.Second)
	_, err := e.ExtractURL(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	_, err := ExtractPDF([]byte("definitely not a pdf"))
	assert.ErrorIs(t, err, ErrUnreadablePDF)
}
