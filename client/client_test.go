package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeychilson/chatimport/cache"
	"github.com/joeychilson/chatimport/capture"
	"github.com/joeychilson/chatimport/config"
	"github.com/joeychilson/chatimport/fetcher"
	"github.com/joeychilson/chatimport/manual"
	"github.com/joeychilson/chatimport/parser"
	"github.com/joeychilson/chatimport/transcript"
	urlutil "github.com/joeychilson/chatimport/url"
)

const sharePage = `<html>
<head><title>Go Questions</title></head>
<body>
<div class="message user"><div class="content">what is a channel?</div></div>
<div class="message assistant"><div class="content">a typed conduit for goroutine communication</div></div>
</body>
</html>`

// allowTestURLs disables share-URL validation so imports can target loopback
// httptest servers. Validation behavior has its own coverage below and in the
// url package.
func allowTestURLs(t *testing.T) {
	t.Helper()
	orig := validateShareURL
	validateShareURL = func(raw string) (*url.URL, error) { return url.Parse(raw) }
	t.Cleanup(func() { validateShareURL = orig })
}

// testClient builds a client whose fetches hit the given test server. The
// test server is loopback, so SSRF protection stays off here; it has its own
// coverage in the fetcher package.
func testClient(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()
	allowTestURLs(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, sharePage)
	}))
	t.Cleanup(server.Close)

	c, err := New(config.New())
	require.NoError(t, err)
	c.config.Fetch.EnableSSRFProtection = false
	c.registry = newTestRegistry(t, c)
	t.Cleanup(func() { _ = c.Close() })

	return c, server
}

func newTestRegistry(t *testing.T, c *Client) *parser.Registry {
	t.Helper()
	// Rebuild the registry with the SSRF-disabled fetch config.
	return parser.NewRegistry(fetcher.New(c.config.Fetch))
}

func TestImportURLValidatesFirst(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	tests := []string{
		"",
		"http://chatgpt.com/share/abc",
		"https://localhost/share/abc",
		"https://192.168.1.1/share/abc",
		"not a url",
	}
	for _, raw := range tests {
		_, err := c.ImportURL(context.Background(), raw)
		require.ErrorIs(t, err, urlutil.ErrUnsafeURL, "url %q", raw)
	}
}

func TestImportURL(t *testing.T) {
	c, server := testClient(t)

	got, err := c.ImportURL(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, transcript.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "what is a channel?", got.Messages[0].Content)
	assert.Equal(t, server.URL, got.SourceURL)
}

func TestImportURLUsesCache(t *testing.T) {
	allowTestURLs(t)

	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, sharePage)
	}))
	defer server.Close()

	c, err := New(config.New())
	require.NoError(t, err)
	defer c.Close()
	c.config.Fetch.EnableSSRFProtection = false
	c.registry = newTestRegistry(t, c)

	_, err = c.ImportURL(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = c.ImportURL(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, fetches, "second import should be served from cache")
}

type closeCountingCache struct {
	cache.Cache
	closed int
}

func (c *closeCountingCache) Close() error {
	c.closed++
	return nil
}

func TestWithCacheClosesPrevious(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	first := &closeCountingCache{}
	c.WithCache(first)

	second := &closeCountingCache{}
	c.WithCache(second)
	assert.Equal(t, 1, first.closed, "replaced cache should be closed")

	c.WithCache(second)
	assert.Zero(t, second.closed, "setting the same cache again should not close it")
}

func TestImportURLEmptyPage(t *testing.T) {
	allowTestURLs(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head></head><body></body></html>")
	}))
	defer server.Close()

	c, err := New(config.New())
	require.NoError(t, err)
	defer c.Close()
	c.config.Fetch.EnableSSRFProtection = false
	c.registry = newTestRegistry(t, c)

	_, err = c.ImportURL(context.Background(), server.URL)
	require.ErrorIs(t, err, parser.ErrNoMessages)
}

func TestImportManual(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.ImportManual("User: hello\nAssistant: hi there", "", "")
	require.NoError(t, err)

	assert.Equal(t, "unknown", got.Provider)
	require.Len(t, got.Messages, 2)
	assert.Empty(t, got.SourceURL)
}

func TestImportManualDeclaredProvider(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.ImportManual("User: hi\nAssistant: hello", "", "chatgpt")
	require.NoError(t, err)
	assert.Equal(t, "chatgpt", got.Provider)
}

func TestImportManualUnrecognizedProvider(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.ImportManual("User: hello\nAssistant: hi", "", "not-a-real-provider")
	require.NoError(t, err)
	assert.Equal(t, "unknown", got.Provider, "unrecognized tags normalize to unknown")
}

func TestImportManualEmpty(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ImportManual("", "", "")
	require.ErrorIs(t, err, manual.ErrNoContent)
}

func TestImportCaptureWithoutExtractor(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ImportCapture(context.Background(), capture.Request{
		URL:    "https://chatgpt.com/share/abc",
		Frames: []string{"data:image/png;base64,iVBORw0KGgo"},
	})
	require.ErrorIs(t, err, ErrNoExtractor)
}

type stubExtractor struct{ response string }

func (s stubExtractor) Extract(context.Context, capture.ExtractionRequest) (string, error) {
	return s.response, nil
}

func TestImportCapture(t *testing.T) {
	response := fmt.Sprintf(`{"provider":"claude","title":"t","messages":[
		{"role":"user","content":"hi","order":0},
		{"role":"assistant","content":"hello","order":1}
	],"fetchedAt":%d}`, time.Now().UnixMilli())

	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()
	c.WithExtractor(stubExtractor{response: response})

	got, err := c.ImportCapture(context.Background(), capture.Request{
		URL:    "https://claude.ai/share/abc",
		Frames: []string{"data:image/png;base64,iVBORw0KGgo"},
	})
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "https://claude.ai/share/abc", got.SourceURL)
}

func TestImportURLHostStaysValidated(t *testing.T) {
	// A https URL pointing at an IP literal in a blocked range must be
	// rejected before any fetch.
	blocked, err := url.Parse("https://169.254.169.254/latest/meta-data")
	require.NoError(t, err)

	c, err := New(nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ImportURL(context.Background(), blocked.String())
	require.ErrorIs(t, err, urlutil.ErrUnsafeURL)
	assert.True(t, strings.Contains(err.Error(), "private or internal"))
}
