package twhandler_test

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/gmetric"

	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twhandler"
	"github.com/gotailwindcss/windpress/twintellisense"
	"github.com/gotailwindcss/windpress/twv4"
	"github.com/gotailwindcss/windpress/twvfs"
)

const entry = `@import "tailwindcss";
@theme {
  --color-brand: #123456;
}
.btn { @apply px-4 bg-brand; }
`

// project is a Project whose volume and candidates tests can swap.
type project struct {
	mu   sync.Mutex
	vol  *twvfs.Volume
	list []string
}

func (p *project) Volume() *twvfs.Volume {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vol
}

func (p *project) Candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.list
}

func newHandler(t *testing.T, opts ...twhandler.Option) (*twhandler.Handler, *project) {
	t.Helper()
	p := &project{
		vol:  twvfs.NewVolume(map[string]string{"/main.css": entry, "/broken.css": `@import "tailwindcss/utilities"; .a { @apply nope-nope; }`}),
		list: []string{"flex", "p-4"},
	}
	return twhandler.New(twv4.New(twv4.WithFetcher(twfetch.Static{})), p, opts...), p
}

func do(h http.Handler, method, target, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(hdr); i += 2 {
		r.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServeCSS(t *testing.T) {
	h, p := newHandler(t)

	type tcase struct {
		name   string
		target string
		code   int
		want   []string
	}
	tcaseList := []tcase{
		{name: "compile1", target: "/css/main.css", code: 200, want: []string{".flex {", ".p-4 {", ".btn {", "#123456"}},
		{name: "missing1", target: "/css/nope.css", code: 404},
		{name: "not-css1", target: "/css/main.js", code: 404},
		{name: "broken1", target: "/css/broken.css", code: 422, want: []string{"nope-nope"}},
	}
	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := do(h, "GET", tc.target, "")
			assert.Equal(t, tc.code, w.Code)
			for _, s := range tc.want {
				assert.Contains(t, w.Body.String(), s)
			}
		})
	}

	first := do(h, "GET", "/css/main.css", "")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "no-cache", first.Header().Get("Cache-Control"))
	assert.Equal(t, "text/css; charset=utf-8", first.Header().Get("Content-Type"))

	w := do(h, "GET", "/css/main.css", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	// new candidates change the output and the tag
	p.mu.Lock()
	p.list = []string{"flex", "italic"}
	p.mu.Unlock()
	w = do(h, "GET", "/css/main.css", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), ".italic {")
	assert.NotContains(t, w.Body.String(), ".p-4 {")
}

func TestServeCSSOptions(t *testing.T) {
	h, _ := newHandler(t, twhandler.WithMinify(true))
	h.SetCache(false)
	h.SetMaxAge(60)
	nf := false
	h.SetNotFoundHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nf = true
		w.WriteHeader(http.StatusGone)
	}))
	h.SetWriteCloserFunc(func(w http.ResponseWriter, r *http.Request) io.WriteCloser {
		w.Header().Set("Content-Encoding", "gzip")
		return gzip.NewWriter(w)
	})

	w := do(h, "GET", "/css/main.css", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	b, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(b), ".flex{display:flex}")

	w = do(h, "GET", "/css/other.css", "")
	assert.Equal(t, http.StatusGone, w.Code)
	assert.True(t, nf)
}

func TestCompileEndpoint(t *testing.T) {
	h, _ := newHandler(t)
	vol, err := twvfs.NewVolume(map[string]string{"/app.css": `@import "tailwindcss/utilities";`}).Encode()
	require.NoError(t, err)

	type tcase struct {
		name string
		body string
		code int
		want string
	}
	tcaseList := []tcase{
		{name: "project1", body: `{"candidates":["underline"]}`, code: 200, want: ".underline {"},
		{name: "volume1", body: `{"candidates":["flex"],"entrypoint":"/app.css","volume":"` + vol + `","minify":true}`, code: 200, want: ".flex{display:flex}"},
		{name: "bad-json1", body: `{`, code: 400},
		{name: "bad-volume1", body: `{"volume":"%%%"}`, code: 400},
		{name: "missing-entry1", body: `{"entrypoint":"/nope.css"}`, code: 422, want: "nope.css"},
	}
	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			w := do(h, "POST", "/compile", tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.code != 200 {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
			if tc.want == "" {
				return
			}
			if tc.code == 200 {
				var res twhandler.CompileResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
				assert.Contains(t, res.CSS, tc.want)
			} else {
				assert.Contains(t, w.Body.String(), tc.want)
			}
		})
	}
}

func TestIntellisense(t *testing.T) {
	svc := gmetric.New()
	h, _ := newHandler(t, twhandler.WithMetrics(svc), twhandler.WithSearch(twintellisense.DefaultThreshold, 5))

	w := do(h, "GET", "/intellisense/classes?q=bg-bran", "")
	require.Equal(t, 200, w.Code)
	var sugg []twintellisense.Suggestion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sugg))
	require.NotEmpty(t, sugg)
	assert.LessOrEqual(t, len(sugg), 5)
	assert.Equal(t, "bg-brand", sugg[0].Value)
	require.NotNil(t, sugg[0].Color)
	assert.Equal(t, "#123456", *sugg[0].Color)

	w = do(h, "GET", "/intellisense/classes?q=p-&limit=2", "")
	require.Equal(t, 200, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sugg))
	assert.Len(t, sugg, 2)

	w = do(h, "GET", "/intellisense/classes?q=p&limit=x", "")
	assert.Equal(t, 400, w.Code)

	w = do(h, "POST", "/intellisense/sort", `{"classes":["p-4","unknown-x","flex"]}`)
	require.Equal(t, 200, w.Code)
	var sorted struct{ Classes []string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sorted))
	assert.Equal(t, "unknown-x", sorted.Classes[0])
	assert.ElementsMatch(t, []string{"p-4", "unknown-x", "flex"}, sorted.Classes)

	w = do(h, "POST", "/intellisense/css", `{"candidates":["flex","nope-nope"]}`)
	require.Equal(t, 200, w.Code)
	var css struct{ CSS []string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &css))
	require.Len(t, css.CSS, 2)
	assert.Contains(t, css.CSS[0], "display: flex;")
	assert.Equal(t, "", css.CSS[1])

	w = do(h, "GET", "/intellisense/variables", "")
	require.Equal(t, 200, w.Code)
	var vars []twdesign.Variable
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vars))
	assert.Contains(t, vars, twdesign.Variable{Key: "--color-brand", Value: "#123456"})

	assert.NotNil(t, svc.LookupOperation("intellisense"))
	assert.NotNil(t, svc.LookupOperation("compile"))
}
