package twcompile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twvfs"
)

func TestNew(t *testing.T) {
	e, err := New(windpress.V3, WithFetcher(twfetch.Static{}))
	require.NoError(t, err)
	assert.Equal(t, windpress.V3, e.Version())

	e, err = New(windpress.V4, WithFetcher(twfetch.Static{}), WithCacheSize(2))
	require.NoError(t, err)
	assert.Equal(t, windpress.V4, e.Version())

	_, err = New("5")
	assert.Error(t, err)
	assert.Panics(t, func() { MustNew("2") })
}

func TestBuild(t *testing.T) {
	for _, v := range []windpress.Version{windpress.V3, windpress.V4} {
		entry := "@tailwind utilities;"
		if v == windpress.V4 {
			entry = `@import "tailwindcss/utilities";`
		}
		e := MustNew(v, WithFetcher(twfetch.Static{}))
		res, err := Build(context.Background(), e, &windpress.Request{
			Candidates: []string{"flex"},
			Volume:     twvfs.NewVolume(map[string]string{"/main.css": entry}),
		}, true)
		require.NoError(t, err, "version %s", v)
		assert.True(t, strings.HasPrefix(string(res.Code), "/*! tailwindcss v"+string(v)+"."), "version %s: %s", v, res.Code)
		assert.Contains(t, string(res.Code), ".flex{display:flex}")
		assert.Empty(t, res.Warnings)
	}
}

func TestCompileDeterministic(t *testing.T) {
	e := MustNew(windpress.V4, WithFetcher(twfetch.Static{}))
	req := &windpress.Request{
		Candidates: []string{"text-center"},
		Volume:     twvfs.NewVolume(map[string]string{"/main.css": `@import "tailwindcss";`}),
	}
	a, err := e.Compile(context.Background(), req)
	require.NoError(t, err)
	b, err := e.Compile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `\.text-center \{\s*text-align: center;`, a)
}
