// internal/knowledge/extract.go
//
// Text extraction for uploaded knowledge documents: PDF bytes, remote
// URLs, or raw text.
package knowledge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/ledongthuc/pdf"

	"github.com/loomworks/loom-backend/internal/logger"
)

// Specific errors for knowledge extraction
var (
	ErrInvalidURL      = errors.New("invalid URL format")
	ErrURLFetchFailed  = errors.New("failed to fetch URL content")
	ErrUnreadablePDF   = errors.New("failed to extract text from PDF")
	ErrContentTooShort = errors.New("content is too short or empty")
	customLog          = logger.NewLogger()
)

// minURLTextLength rejects pages that stripped down to nothing useful.
const minURLTextLength = 50

const maxContentBytes = 16 << 20

var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	headRe       = regexp.MustCompile(`(?is)<head\b.*?</head>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Extractor turns uploaded knowledge content into plain text.
type Extractor struct {
	http *retryablehttp.Client
}

// NewExtractor builds an extractor whose URL fetches are bounded by timeout.
func NewExtractor(timeout time.Duration) *Extractor {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	return &Extractor{http: rc}
}

// ExtractPDF pulls the plain text out of a PDF document.
func ExtractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		customLog.Warnf("Knowledge: failed to open PDF: %v", err)
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	textReader, err := reader.GetPlainText()
	if err != nil {
		customLog.Warnf("Knowledge: failed to read PDF text: %v", err)
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	return buf.String(), nil
}

// ExtractURL fetches a page and strips it to readable text. Pages behind
// bot protection tend to return non-2xx; those surface as ErrURLFetchFailed
// with the status in the message.
func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (string, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.http.Do(req)
	if err != nil {
		customLog.Warnf("Knowledge: URL fetch failed for %s: %v", rawURL, err)
		return "", fmt.Errorf("%w: %v", ErrURLFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d %s", ErrURLFetchFailed, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLFetchFailed, err)
	}

	text := StripHTML(string(body))
	if len(text) < minURLTextLength {
		return "", ErrContentTooShort
	}
	return text, nil
}

// StripHTML reduces an HTML document to its visible text.
func StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, "")
	text = styleRe.ReplaceAllString(text, "")
	text = headRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
