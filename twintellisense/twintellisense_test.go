package twintellisense

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twdesign"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twv4"
	"github.com/gotailwindcss/windpress/twvfs"
)

// listSource is a fixed class list with a color for bg- classes.
type listSource []twdesign.ClassItem

func (l listSource) ClassList() []twdesign.ClassItem { return l }

func (l listSource) Entities(c string) []twdesign.ClassEntity {
	if !strings.HasPrefix(c, "bg-") {
		return []twdesign.ClassEntity{{Selector: "." + c, Declarations: []twdesign.Declaration{{Property: "display", Value: "block"}}}}
	}
	return []twdesign.ClassEntity{{Selector: "." + c, Declarations: []twdesign.Declaration{{Property: "background-color", Value: "var(--c)"}}}}
}

func (l listSource) ResolveVars(v string) string { return strings.ReplaceAll(v, "var(--c)", "#f00") }

var mods = []string{"0", "5", "50"}

var testList = listSource{
	{Name: "p-4"},
	{Name: "px-4"},
	{Name: "pt-4"},
	{Name: "bg-red-500", Modifiers: mods},
	{Name: "bg-red-600", Modifiers: mods},
	{Name: "text-red-500", Modifiers: mods},
	{Name: "flex"},
	{Name: "inline-flex"},
}

func values(ss []Suggestion) []string {
	ret := make([]string, len(ss))
	for i, s := range ss {
		ret[i] = s.Value
	}
	return ret
}

func TestSearchClassList(t *testing.T) {

	type tcase struct {
		name    string
		query   string
		opts    []SearchOption
		first   []string
		has     []string
		notHas  []string
		allPrev string
		n       int
	}

	tcaseList := []tcase{
		{
			name:  "prefix1",
			query: "fle",
			first: []string{"flex", "inline-flex"},
		},
		{
			name:  "substring1",
			query: "red-5",
			first: []string{"bg-red-500", "text-red-500"},
		},
		{
			name:    "variant1",
			query:   "hover:md:fl",
			first:   []string{"hover:md:flex"},
			allPrev: "hover:md:",
		},
		{
			name:    "important1",
			query:   "!p-4",
			first:   []string{"!p-4"},
			allPrev: "!",
		},
		{
			name:    "important-variant1",
			query:   "md:!px",
			first:   []string{"md:!px-4"},
			allPrev: "md:!",
		},
		{
			name:   "opacity-window1",
			query:  "bg-red-500/5",
			first:  []string{"bg-red-500/5", "bg-red-500/50", "bg-red-500/51"},
			has:    []string{"bg-red-500/59"},
			notHas: []string{"bg-red-500/60", "bg-red-500/4", "p-4"},
		},
		{
			name:   "opacity-window2",
			query:  "bg-red-500/37",
			first:  []string{"bg-red-500/30"},
			has:    []string{"bg-red-500/39"},
			notHas: []string{"bg-red-500/40", "bg-red-500/29"},
		},
		{
			name:   "opacity-bare1",
			query:  "bg-red-500/",
			first:  []string{"bg-red-500/0", "bg-red-500/5", "bg-red-500/10"},
			has:    []string{"bg-red-500/100"},
			notHas: []string{"bg-red-500/7"},
		},
		{
			name:   "opacity-full1",
			query:  "bg-red-500/100",
			first:  []string{"bg-red-500/100"},
			notHas: []string{"bg-red-500/10"},
		},
		{
			name:   "opacity-base-only1",
			query:  "bg-red-500/5",
			notHas: []string{"bg-red-600/5", "bg-red-600/50", "text-red-500/5"},
		},
		{
			name:   "opacity-base-only2",
			query:  "bg-rde-500/5",
			notHas: []string{"bg-red-500/5", "bg-red-600/5"},
		},
		{
			name:   "opacity-out-of-range1",
			query:  "bg-red-500/150",
			notHas: []string{"bg-red-500/150", "bg-red-500/15"},
		},
		{
			name:  "fuzzy1",
			query: "ilfx",
			first: []string{"inline-flex"},
		},
		{
			name:  "typo1",
			query: "flx",
			has:   []string{"flex"},
		},
		{
			name:   "threshold1",
			query:  "flx",
			opts:   []SearchOption{WithThreshold(0)},
			notHas: []string{"flex"},
		},
		{
			name:  "limit1",
			query: "p",
			opts:  []SearchOption{WithLimit(2)},
			first: []string{"p-4", "px-4"},
			n:     2,
		},
	}

	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := values(SearchClassList(testList, tc.query, tc.opts...))
			if len(tc.first) > 0 {
				require.GreaterOrEqual(t, len(got), len(tc.first), "got %v", got)
				assert.Equal(t, tc.first, got[:len(tc.first)])
			}
			for _, h := range tc.has {
				assert.Contains(t, got, h)
			}
			for _, h := range tc.notHas {
				assert.NotContains(t, got, h)
			}
			for _, v := range got {
				assert.True(t, strings.HasPrefix(v, tc.allPrev), "%q lacks %q", v, tc.allPrev)
			}
			if tc.n > 0 {
				assert.Len(t, got, tc.n)
			}
		})
	}
}

func TestSearchClassListEmptyQuery(t *testing.T) {
	got := SearchClassList(testList, "")
	require.Len(t, got, len(testList))
	for i, item := range testList {
		assert.Equal(t, item.Name, got[i].Value)
	}
}

func TestSearchClassListColor(t *testing.T) {
	got := SearchClassList(testList, "bg-red-600")
	require.NotEmpty(t, got)
	require.NotNil(t, got[0].Color)
	assert.Equal(t, "#f00", *got[0].Color)

	got = SearchClassList(testList, "flex")
	require.NotEmpty(t, got)
	assert.Nil(t, got[0].Color)
}

func TestOpacityWindow(t *testing.T) {
	w, ok := opacityWindow("5")
	require.True(t, ok)
	assert.Equal(t, []int{5, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59}, w)

	w, ok = opacityWindow("0")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, w)

	w, ok = opacityWindow("")
	require.True(t, ok)
	assert.Len(t, w, 21)

	for _, bad := range []string{"101", "-1", "x", "1000", "0100"} {
		_, ok = opacityWindow(bad)
		assert.False(t, ok, bad)
	}
}

const v4Entry = `@import "tailwindcss";
@theme {
  --color-brand: #123456;
}
`

func newSession(t *testing.T) (*Session, *twvfs.Volume) {
	t.Helper()
	s := NewSession(twv4.New(twv4.WithFetcher(twfetch.Static{})))
	vol := twvfs.NewVolume(map[string]string{"/main.css": v4Entry})
	changed, err := s.Reload(context.Background(), vol)
	require.NoError(t, err)
	require.True(t, changed)
	return s, vol
}

func TestSession(t *testing.T) {
	_, err := NewSession(twv4.New(twv4.WithFetcher(twfetch.Static{}))).Search("p")
	assert.ErrorIs(t, err, ErrNotLoaded)

	s, vol := newSession(t)

	changed, err := s.Reload(context.Background(), vol.Clone())
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := s.Search("bg-bran")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "bg-brand", got[0].Value)
	require.NotNil(t, got[0].Color)
	assert.Equal(t, "#123456", *got[0].Color)

	sorted, err := s.Sort([]string{"p-4", "unknown-x", "flex", "md:flex"})
	require.NoError(t, err)
	assert.Equal(t, "unknown-x", sorted[0])
	assert.Equal(t, "md:flex", sorted[3])
	again, err := s.Sort(sorted)
	require.NoError(t, err)
	assert.Equal(t, sorted, again)

	// classes of equal rank keep their input order
	sorted, err = s.Sort([]string{"flex", "zeta-x", "alpha-x", "mid-x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta-x", "alpha-x", "mid-x", "flex"}, sorted)

	css, err := s.CSS([]string{"flex", "nope-nope"})
	require.NoError(t, err)
	assert.Contains(t, css[0], "display: flex;")
	assert.Equal(t, "", css[1])

	vars, err := s.Variables()
	require.NoError(t, err)
	assert.Contains(t, vars, twdesign.Variable{Key: "--color-brand", Value: "#123456"})
}

func TestSessionMemo(t *testing.T) {
	s, _ := newSession(t)
	a := s.ClassList()
	require.NotEmpty(t, a)
	b := s.ClassList()
	assert.Same(t, &a[0], &b[0])

	e1 := s.Entities("flex")
	e2 := s.Entities("flex")
	require.Len(t, e1, 1)
	assert.Same(t, &e1[0], &e2[0])

	s.Invalidate()
	c := s.ClassList()
	assert.NotSame(t, &a[0], &c[0])
	assert.Equal(t, a, c)
	e3 := s.Entities("flex")
	assert.NotSame(t, &e1[0], &e3[0])
}

func TestSessionListen(t *testing.T) {
	s, _ := newSession(t)
	bus := twbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Listen(ctx, bus) }()
	require.Eventually(t, func() bool { return bus.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	next := twvfs.NewVolume(map[string]string{"/main.css": `@import "tailwindcss";
@theme { --color-ocean: #0077be; }
`})
	m, err := twbus.VFSUpdated("editor", next)
	require.NoError(t, err)
	bus.Publish(m)
	require.Eventually(t, func() bool {
		got, _ := s.Search("bg-ocea")
		return len(got) > 0 && got[0].Value == "bg-ocean"
	}, 5*time.Second, 10*time.Millisecond)

	before := s.ClassList()
	bus.Publish(twbus.Message{Source: "dashboard", Task: twbus.TaskContentSaved})
	require.Eventually(t, func() bool {
		after := s.ClassList()
		return len(after) > 0 && &after[0] != &before[0]
	}, 5*time.Second, 10*time.Millisecond)

	// messages for someone else are ignored
	bus.Publish(twbus.Message{Source: "dashboard", Target: "observer", Task: twbus.TaskContentSaved})

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSessionConcurrentReload(t *testing.T) {
	s := NewSession(twv4.New(twv4.WithFetcher(twfetch.Static{})))
	vol := twvfs.NewVolume(map[string]string{"/main.css": v4Entry})

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Reload(context.Background(), vol.Clone())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changed)

	got, err := s.Search("bg-bran")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "bg-brand", got[0].Value)
}
