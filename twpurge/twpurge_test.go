package twpurge

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress/twvfs"
)

func TestDefaultTokenizer(t *testing.T) {

	tz := NewDefaultTokenizer(strings.NewReader(`
	<html class="blah"><body id="blee" class="sm:px-1 lg:w-10"><div class="w-1/2 grid-cols-[1fr,_2fr] [&>*]:p-2"></div>  </body></html>
`))

	var tokList []string
	for {
		tok, err := tz.NextToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatal(err)
		}
		tokList = append(tokList, string(tok))
	}

	assert.Contains(t, tokList, "sm:px-1")
	assert.Contains(t, tokList, "lg:w-10")
	assert.Contains(t, tokList, "w-1/2")
	assert.Contains(t, tokList, "grid-cols-[1fr,_2fr]")
	assert.Contains(t, tokList, "[&>*]:p-2")
	assert.NotContains(t, tokList, "class=") // should not have trailing equal sign
}

func TestFindCandidates(t *testing.T) {

	type tcase struct {
		name   string
		in     string
		has    []string
		hasNot []string
	}

	tcaseList := []tcase{
		{
			name:   "markup1",
			in:     `<div class="sm:px-1 hover:bg-red-500/50 !font-bold">Hello world</div>`,
			has:    []string{"sm:px-1", "hover:bg-red-500/50", "!font-bold", "world"},
			hasNot: []string{"Hello", "class=", "</div"},
		},
		{
			name: "arbitrary1",
			in:   `<p class="[mask-type:luminance] top-[117px] content-['a_b'] lg:[&:nth-child(3)]:hover:underline">`,
			has:  []string{"[mask-type:luminance]", "top-[117px]", "content-['a_b']", "lg:[&:nth-child(3)]:hover:underline"},
		},
		{
			name:   "apply1",
			in:     `.btn { @apply font-bold py-2 px-4 rounded; }`,
			has:    []string{"font-bold", "py-2", "px-4", "rounded"},
			hasNot: []string{".btn", "rounded;"},
		},
		{
			name: "js1",
			in:   `el.className = "underline " + (big ? 'text-lg' : 'text-sm');`,
			has:  []string{"underline", "text-lg", "text-sm"},
		},
		{
			name:   "php1",
			in:     `<li class="<?php echo $active ? 'bg-blue-500' : ''; ?> -mt-2">`,
			has:    []string{"bg-blue-500", "-mt-2"},
			hasNot: []string{"?php", "$active"},
		},
		{
			name: "glued1",
			in:   `data-class=text-red-500`,
			has:  []string{"text-red-500"},
		},
		{
			name:   "shapes1",
			in:     `https://example.com 1234 -- w- a:b:: [unbalanced`,
			hasNot: []string{"https://example.com", "1234", "--", "w-", "a:b::", "[unbalanced"},
		},
	}

	for _, tc := range tcaseList {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := FindCandidates(tc.in)
			for _, c := range tc.has {
				assert.Contains(t, got, c)
			}
			for _, c := range tc.hasNot {
				assert.NotContains(t, got, c)
			}
		})
	}
}

func TestFindCandidatesRepeats(t *testing.T) {
	assert.Equal(t, []string{"flex", "p-4", "flex"}, FindCandidates("flex p-4\nflex"))
	assert.Empty(t, FindCandidates(""))
}

func TestIsCandidate(t *testing.T) {
	for _, c := range []string{"flex", "md:hover:bg-red-500", "-translate-x-1/2", "font-bold!", "@container", "bg-(--brand)", "w-1.5"} {
		assert.True(t, IsCandidate(c), c)
	}
	for _, c := range []string{"", "Flex", ":flex", "p-", "[foo]", "a=b", "50%"} {
		assert.False(t, IsCandidate(c), c)
	}
}

func TestClassNames(t *testing.T) {
	names, err := ClassNames(strings.NewReader(`
.md\:bg-purple-500 { color: red }
.a, .b:hover { color: red }
@media (min-width: 640px) {
  .sm\:space-y-0 > :not(template) { margin: 0 }
}
.-my-56 { margin: 0 }
:root { --x: 1 }
.w-1\/2 { width: 50% }
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"-my-56", "a", "b", "md:bg-purple-500", "sm:space-y-0", "w-1/2"}, names)
}

func TestScannerFS(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":    {Data: []byte(`<div class="p-4 md:flex"></div>`)},
		"src/app.js":    {Data: []byte(`el.classList.add("hidden")`)},
		"vendor/lib.js": {Data: []byte(`"ignored-thing"`)},
		"notes.txt":     {Data: []byte(`text-red-500`)},
		".gitignore":    {Data: []byte("vendor/\n")},
	}

	s := NewScanner()
	require.NoError(t, s.ScanFS(fsys))
	assert.True(t, s.Has("p-4"))
	assert.True(t, s.Has("md:flex"))
	assert.True(t, s.Has("hidden"))
	assert.False(t, s.Has("ignored-thing"))
	assert.False(t, s.Has("text-red-500"))
	assert.Equal(t, 2, s.Files())

	s = NewScanner(WithExtensions(".txt"), WithIgnore("*.html"))
	require.NoError(t, s.ScanFS(fsys))
	assert.Equal(t, []string{"text-red-500"}, s.Candidates())

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestScannerVolume(t *testing.T) {
	vol := twvfs.NewVolume(map[string]string{
		"/index.html":     `<p class="italic">`,
		"/main.css":       `@import "tailwindcss";`,
		"/.gitignore":     "drafts/\n",
		"/drafts/x.html":  `<p class="underline">`,
		"/partials/a.php": `<b class="uppercase">`,
	})
	s := NewScanner(WithPatterns("**/*.html"))
	require.NoError(t, s.ScanVolume(vol))
	assert.Equal(t, []string{"class", "italic", "p"}, s.Candidates())
}
