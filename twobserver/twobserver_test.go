package twobserver

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twv4"
	"github.com/gotailwindcss/windpress/twvfs"
)

const page = `<!doctype html><html><head><title>t</title></head><body><div id="a" class="flex p-4"></div></body></html>`

func parse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func TestDocumentRecords(t *testing.T) {
	doc := parse(t, page)
	div := doc.Find(ByID("a"))
	require.NotNil(t, div)

	require.NoError(t, doc.SetAttribute(div, "class", "grid"))
	doc.RemoveAttribute(div, "class")
	doc.RemoveAttribute(div, "class")
	span := element("span", "class", "italic")
	require.NoError(t, doc.AppendChild(div, span))
	assert.ErrorIs(t, doc.AppendChild(div, span), ErrAttached)
	doc.SetText(span, "hi")
	require.NoError(t, doc.RemoveChild(div, span))
	assert.ErrorIs(t, doc.RemoveChild(div, span), ErrNotChild)
	assert.ErrorIs(t, doc.SetAttribute(&html.Node{Type: html.TextNode}, "class", "x"), ErrNotElement)

	select {
	case <-doc.Changed():
	default:
		t.Fatal("no change signalled")
	}
	recs := doc.Drain()
	require.Len(t, recs, 5)
	assert.Equal(t, Record{Op: OpAttr, Target: div, Tag: "div", Name: "class", Value: "grid", OldValue: "flex p-4"}, recs[0])
	assert.Equal(t, Record{Op: OpAttrDel, Target: div, Tag: "div", Name: "class", OldValue: "grid"}, recs[1])
	assert.Equal(t, OpInsert, recs[2].Op)
	assert.Equal(t, "span", recs[2].Tag)
	assert.Same(t, div, recs[2].Target)
	assert.Equal(t, Record{Op: OpText, Target: span, Tag: "span", Value: "hi"}, recs[3])
	assert.Equal(t, OpRemove, recs[4].Op)
	assert.Empty(t, doc.Drain())

	var b bytes.Buffer
	require.NoError(t, doc.Render(&b))
	assert.Contains(t, b.String(), `<div id="a"></div>`)
}

func TestDocumentClasses(t *testing.T) {
	doc := parse(t, `<div class="a  b"><p class="b c">x</p><span class="">y</span></div>`)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, doc.Classes())
}

func TestRelevant(t *testing.T) {
	style := element("style")
	div := element("div")

	type tcase struct {
		name string
		rec  Record
		want bool
	}

	tcaseList := []tcase{
		{name: "class1", rec: Record{Op: OpAttr, Target: div, Tag: "div", Name: "class"}, want: true},
		{name: "class-removed1", rec: Record{Op: OpAttrDel, Target: div, Tag: "div", Name: "class"}, want: true},
		{name: "other-attr1", rec: Record{Op: OpAttr, Target: div, Tag: "div", Name: "id"}},
		{name: "insert1", rec: Record{Op: OpInsert, Target: div, Tag: "p"}, want: true},
		{name: "insert-style1", rec: Record{Op: OpInsert, Target: div, Tag: "style"}},
		{name: "insert-script1", rec: Record{Op: OpInsert, Target: div, Tag: "SCRIPT"}},
		{name: "style-text1", rec: Record{Op: OpText, Target: style, Tag: "style"}},
		{name: "style-class1", rec: Record{Op: OpAttr, Target: style, Tag: "style", Name: "class"}},
		{name: "text1", rec: Record{Op: OpText, Target: div, Tag: "div"}, want: true},
	}

	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, relevant(tc.rec))
		})
	}
}

func TestStyleContainer(t *testing.T) {
	doc := parse(t, page)
	c := NewStyleContainer(doc, "s")
	assert.Equal(t, "", c.Text())
	require.NoError(t, c.Set(".a{}"))
	require.NoError(t, c.Set(".b{}"))
	assert.Equal(t, ".b{}", c.Text())

	n := doc.Find(ByID("s"))
	require.NotNil(t, n)
	assert.Equal(t, atom.Head, n.Parent.DataAtom)
	for _, r := range doc.Drain() {
		assert.False(t, relevant(r), "%+v", r)
	}

	// an existing element is reused
	again := NewStyleContainer(doc, "s")
	assert.Equal(t, ".b{}", again.Text())
	require.NoError(t, again.Set(".c{}"))
	assert.Equal(t, ".c{}", c.Text())
}

const theme = `@import "tailwindcss/utilities";
@theme { --spacing: 0.25rem; }`

func TestObserver(t *testing.T) {
	doc := parse(t, page)
	div := doc.Find(ByID("a"))
	bus := twbus.New()
	errs := make(chan error, 4)
	vol := twvfs.NewVolume(map[string]string{"/main.css": theme})
	o := New(doc, twv4.New(twv4.WithFetcher(twfetch.Static{})), vol, WithBus(bus), WithErrorSink(func(err error) { errs <- err }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	wait := func(fn func(Stats) bool) {
		t.Helper()
		require.Eventually(t, func() bool { return fn(o.Stats()) }, 10*time.Second, 5*time.Millisecond, "stats %+v", o.Stats())
	}

	wait(func(s Stats) bool { return s.Writes == 1 })
	assert.Contains(t, o.Style().Text(), ".flex {")
	assert.Contains(t, o.Style().Text(), ".p-4 {")

	// same classes in another order: scanned, not compiled
	require.NoError(t, doc.SetAttribute(div, "class", "p-4 flex"))
	wait(func(s Stats) bool { return s.Scans == 2 })
	assert.Equal(t, Stats{Scans: 2, Skipped: 1, Compiles: 1, Writes: 1}, o.Stats())

	require.NoError(t, doc.SetAttribute(div, "data-x", "1"))
	require.NoError(t, doc.AppendChild(div, element("span", "class", "italic")))
	wait(func(s Stats) bool { return s.Writes == 2 })
	assert.Equal(t, 3, o.Stats().Scans)
	assert.Contains(t, o.Style().Text(), ".italic {")

	// style and script insertions do not rescan
	require.NoError(t, doc.AppendChild(div, element("style")))
	require.NoError(t, doc.AppendChild(div, element("script")))

	// a new volume recompiles the same classes
	next := twvfs.NewVolume(map[string]string{"/main.css": theme + "\n.extra { color: red; }"})
	m, err := twbus.VFSUpdated("editor", next)
	require.NoError(t, err)
	bus.Publish(m)
	wait(func(s Stats) bool { return s.Writes == 3 })
	assert.Equal(t, 4, o.Stats().Scans)
	assert.Contains(t, o.Style().Text(), ".extra {")

	// a failing compile keeps the stylesheet
	broken := twvfs.NewVolume(map[string]string{"/main.css": `@import "tailwindcss/utilities"; .a { @apply nope-nope; }`})
	m, err = twbus.VFSUpdated("editor", broken)
	require.NoError(t, err)
	bus.Publish(m)
	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "nope-nope")
	case <-time.After(10 * time.Second):
		t.Fatal("no error reported")
	}
	wait(func(s Stats) bool { return s.Failures == 1 })
	assert.Equal(t, 3, o.Stats().Writes)
	assert.Contains(t, o.Style().Text(), ".extra {")

	// messages for another target are ignored
	m.Target = "intellisense"
	bus.Publish(m)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, Idle, o.State())
	assert.Equal(t, "idle", o.State().String())
}
