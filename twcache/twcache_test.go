package twcache

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twv4"
	"github.com/gotailwindcss/windpress/twvfs"
)

// pages is a provider serving fixed pages.
type pages struct {
	name  string
	pages []Page
	calls []int
}

func (p *pages) ID() string { return p.name }

func (p *pages) Scan(_ context.Context, batch int) (*Page, error) {
	p.calls = append(p.calls, batch)
	pg := p.pages[batch-1]
	return &pg, nil
}

func TestBatchJSON(t *testing.T) {
	type tcase struct {
		in   string
		want Batch
	}
	for _, tc := range []tcase{
		{in: `2`, want: NextBatch(2)},
		{in: `"3"`, want: NextBatch(3)},
		{in: `false`},
		{in: `null`},
	} {
		var m Metadata
		require.NoError(t, json.Unmarshal([]byte(`{"next_batch":`+tc.in+`}`), &m), tc.in)
		assert.Equal(t, tc.want, m.NextBatch, tc.in)
	}
	var m Metadata
	assert.Error(t, json.Unmarshal([]byte(`{"next_batch":true}`), &m))

	b, err := json.Marshal(Page{Metadata: Metadata{NextBatch: NextBatch(4)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"contents":null,"metadata":{"next_batch":4}}`, string(b))
	b, err = json.Marshal(Metadata{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"next_batch":false}`, string(b))
}

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions(twbus.Message{Task: twbus.TaskCacheGenerate})
	require.NoError(t, err)
	assert.Equal(t, KindFull, o.Kind)

	m, err := BuildCacheOptions{Kind: KindIncremental, Incremental: &Incremental{Providers: []string{"posts"}}}.Message("dashboard")
	require.NoError(t, err)
	assert.Equal(t, twbus.TaskCacheGenerate, m.Task)
	assert.JSONEq(t, `{"kind":"incremental","incremental":{"providers":["posts"]}}`, string(m.Data))
	o, err = ParseOptions(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts"}, o.Incremental.Providers)

	_, err = ParseOptions(twbus.Message{Data: json.RawMessage(`{"kind":"incremental"}`)})
	assert.Error(t, err)
	_, err = ParseOptions(twbus.Message{Data: json.RawMessage(`{"kind":"partial"}`)})
	assert.Error(t, err)
	_, err = ParseOptions(twbus.Message{Data: json.RawMessage(`{`)})
	assert.Error(t, err)
}

func testVolume() *twvfs.Volume {
	return twvfs.NewVolume(map[string]string{"/main.css": `@import "tailwindcss/utilities";
@theme { --spacing: 0.25rem; --font-weight-bold: 700; }`})
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	files := &FileProvider{
		Name: "theme",
		FS: fstest.MapFS{
			"a.html":     {Data: []byte(`<div class="flex">`)},
			"b.html":     {Data: []byte(`<div class="grid">`)},
			"c/d.php":    {Data: []byte(`<?php echo '<p class="hidden">'; ?>`)},
			"readme.txt": {Data: []byte(`underline`)},
		},
		Patterns: []string{"**/*.html", "**/*.php"},
		PageSize: 2,
	}
	posts := &pages{name: "posts", pages: []Page{
		{Contents: []windpress.ContentRecord{{Content: `<em class="italic">`}}, Metadata: Metadata{NextBatch: NextBatch(2)}},
		{Contents: []windpress.ContentRecord{{Content: `<b class="font-bold">`}}},
	}}
	out := "mem://localhost/twcache/case001/main.min.css"
	b := NewBuilder(twv4.New(twv4.WithFetcher(twfetch.Static{})), WithProviders(files, posts), WithOutput(out))

	res, err := b.Build(ctx, testVolume(), BuildCacheOptions{Kind: KindFull})
	require.NoError(t, err)
	assert.Equal(t, []string{"theme", "posts"}, res.Providers)
	assert.Equal(t, 4, res.Pages)
	assert.Equal(t, []int{1, 2}, posts.calls)
	for _, want := range []string{".flex{display:flex}", ".grid{display:grid}", ".hidden{display:none}", ".italic{font-style:italic}", ".font-bold{"} {
		assert.Contains(t, res.CSS, want)
	}
	assert.NotContains(t, res.CSS, ".underline")

	data, err := afs.New().DownloadWithURL(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, res.CSS, string(data))
	assert.Equal(t, out, res.URL)

	// only posts are rescanned, theme candidates are kept
	posts.pages = []Page{{Contents: []windpress.ContentRecord{{Content: `<u class="underline">`}}}}
	res, err = b.Build(ctx, testVolume(), BuildCacheOptions{Kind: KindIncremental, Incremental: &Incremental{Providers: []string{"posts"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"posts"}, res.Providers)
	assert.Contains(t, res.CSS, ".flex{display:flex}")
	assert.Contains(t, res.CSS, ".underline{")
	assert.NotContains(t, res.CSS, ".italic")

	_, err = b.Build(ctx, testVolume(), BuildCacheOptions{Kind: KindIncremental, Incremental: &Incremental{Providers: []string{"nope"}}})
	assert.Error(t, err)
}

func TestRemoteProvider(t *testing.T) {
	p := &RemoteProvider{
		Name: "pages",
		URL:  "https://example.com/wp-json/windpress/v1/cache/providers/pages?kind=full",
		Fetcher: twfetch.Static{
			"https://example.com/wp-json/windpress/v1/cache/providers/pages?batch=1&kind=full": `{"contents":[{"content":"<i class=\"p-4\">"}],"metadata":{"next_batch":2}}`,
			"https://example.com/wp-json/windpress/v1/cache/providers/pages?batch=2&kind=full": `{"contents":[{"content":"<i class=\"m-2\">"}],"metadata":{"next_batch":false}}`,
		},
	}
	b := NewBuilder(twv4.New(twv4.WithFetcher(twfetch.Static{})), WithProviders(p), WithMinify(false))
	res, err := b.Build(context.Background(), testVolume(), BuildCacheOptions{Kind: KindFull})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.CSS, ".p-4 {")
	assert.Contains(t, res.CSS, ".m-2 {")
	assert.Empty(t, res.URL)
}

func TestListen(t *testing.T) {
	posts := &pages{name: "posts", pages: []Page{{Contents: []windpress.ContentRecord{{Content: `<p class="flex">`}}}}}
	out := "mem://localhost/twcache/case002/main.min.css"
	b := NewBuilder(twv4.New(twv4.WithFetcher(twfetch.Static{})), WithProviders(posts), WithOutput(out))
	bus := twbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Listen(ctx, bus, testVolume)
	require.Eventually(t, func() bool { return bus.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	m, err := BuildCacheOptions{Kind: KindFull}.Message("dashboard")
	require.NoError(t, err)
	bus.Publish(m)
	require.Eventually(t, func() bool {
		data, err := afs.New().DownloadWithURL(context.Background(), out)
		return err == nil && len(data) > 0
	}, 10*time.Second, 20*time.Millisecond)
}
