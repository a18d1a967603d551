package ilias

import (
	"embed"
	"strings"
	"testing"
	"time"

	"ilias-uploader/internal/components/chrono"
	"ilias-uploader/internal/components/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.html
var testdata embed.FS

var testNow = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

func fixture(t testing.TB, name string) string {
	content, err := testdata.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(content)
}

func parseHTML(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func newTestClient(t testing.TB, opts ClientOptions) (*Client, *telemetry.RecorderAPI) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://ilias.example.org"
	}
	tel := telemetry.NewRecorderAPI()
	client, err := NewClient(opts, tel, chrono.FixedImpl{Time: testNow})
	require.NoError(t, err)
	return client, tel
}
