package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSocialURL(t *testing.T) {
	tests := []struct {
		platform string
		raw      string
		want     string
	}{
		{"facebook", "", ""},
		{"facebook", "https://www.facebook.com/emmaus", "https://www.facebook.com/emmaus"},
		{"facebook", "emmaus", "https://www.facebook.com/emmaus"},
		{"instagram", "@repair.cafe", "https://www.instagram.com/repair.cafe"},
		{"instagram", "https://instagram.com/foo", "https://instagram.com/foo"},
		{"twitter", "biocoop", "https://twitter.com/biocoop"},
		{"linkedin", "company/emmaus-france", "https://www.linkedin.com/company/emmaus-france"},
		{"linkedin", "jane-doe", "https://www.linkedin.com/in/jane-doe"},
		{"youtube", "@zerowasteparis", "https://www.youtube.com/@zerowasteparis"},
		{"youtube", "zerowasteparis", "https://www.youtube.com/@zerowasteparis"},
		{"tiktok", "@fermeurbaine", "https://www.tiktok.com/@fermeurbaine"},
		{"tiktok", "fermeurbaine", "https://www.tiktok.com/@fermeurbaine"},
		{"myspace", "someone", ""},
		{"facebook", "@", ""},
		{"facebook", "  HTTP://facebook.com/x  ", "HTTP://facebook.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.platform+"/"+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSocialURL(tt.platform, tt.raw))
		})
	}
}

func TestFromTags(t *testing.T) {
	tags := map[string]string{
		"contact:facebook": "https://www.facebook.com/emmaus",
		"instagram":        "@emmaus_defi",
		"name":             "Emmaüs Défi",
	}

	links := FromTags(tags)
	require.Len(t, links, 2)
	assert.Equal(t, "https://www.facebook.com/emmaus", links["facebook"])
	assert.Equal(t, "https://www.instagram.com/emmaus_defi", links["instagram"])
}

func TestFromTags_PrefixedKeyWins(t *testing.T) {
	tags := map[string]string{
		"contact:twitter": "prefixed",
		"twitter":         "bare",
	}

	links := FromTags(tags)
	require.Len(t, links, 1)
	assert.Equal(t, "https://twitter.com/prefixed", links["twitter"])
}

func TestFromTags_Empty(t *testing.T) {
	assert.Empty(t, FromTags(map[string]string{"name": "x"}))
	assert.Empty(t, FromTags(nil))
}

func TestMerge_WebsiteWins(t *testing.T) {
	fromTags := map[string]string{
		"facebook": "https://www.facebook.com/old",
		"twitter":  "https://twitter.com/keep",
	}
	fromWebsite := map[string]string{
		"facebook":  "https://www.facebook.com/new",
		"instagram": "https://www.instagram.com/added",
	}

	merged := Merge(fromTags, fromWebsite)
	require.Len(t, merged, 3)
	assert.Equal(t, "https://www.facebook.com/new", merged["facebook"])
	assert.Equal(t, "https://twitter.com/keep", merged["twitter"])
	assert.Equal(t, "https://www.instagram.com/added", merged["instagram"])
}

func TestScanBody_FirstMatchPerPlatform(t *testing.T) {
	body := `<html><body>
		<a href="https://www.facebook.com/first">fb</a>
		<a href="https://www.facebook.com/second">fb again</a>
		<a href="https://x.com/handle">x</a>
		<a href="https://www.linkedin.com/company/emmaus-france">li</a>
		<a href="https://www.youtube.com/@zerowasteparis">yt</a>
	</body></html>`

	links := scanBody(body)
	assert.Equal(t, "https://www.facebook.com/first", links["facebook"])
	assert.Equal(t, "https://x.com/handle", links["twitter"])
	assert.Equal(t, "https://www.linkedin.com/company/emmaus-france", links["linkedin"])
	assert.Equal(t, "https://www.youtube.com/@zerowasteparis", links["youtube"])
	assert.NotContains(t, links, "instagram")
	assert.NotContains(t, links, "tiktok")
}

func TestFromWebsite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<a href="https://www.instagram.com/repair.cafe">follow us</a>`))
	}))
	defer srv.Close()

	e := NewExtractor(ExtractorOptions{HTTPClient: srv.Client()})
	links := e.FromWebsite(context.Background(), srv.URL)
	require.Len(t, links, 1)
	assert.Equal(t, "https://www.instagram.com/repair.cafe", links["instagram"])
}

func TestFromWebsite_SoftFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExtractor(ExtractorOptions{HTTPClient: srv.Client()})

	assert.Empty(t, e.FromWebsite(context.Background(), srv.URL))
	assert.Empty(t, e.FromWebsite(context.Background(), "://not-a-url"))
	assert.Empty(t, e.FromWebsite(context.Background(), "http://127.0.0.1:1"))
}

func TestFromWebsite_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	e := NewExtractor(ExtractorOptions{UserAgent: "test-agent/1.0", HTTPClient: srv.Client()})
	e.FromWebsite(context.Background(), srv.URL)
	assert.Equal(t, "test-agent/1.0", gotUA)
}
