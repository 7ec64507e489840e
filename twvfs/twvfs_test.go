package twvfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	in := map[string]string{
		"/main.css":           "@import \"tailwindcss\";\n.x { color: <red>; }",
		"/tailwind.config.js": "export default { theme: { extend: {} } }",
		"/ünïcode.css":        "/* ✓ */",
	}
	s, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	s2, err := Encode(out)
	require.NoError(t, err)
	assert.Equal(t, s, s2, "encoding must be deterministic")
}

func TestEncodeEmpty(t *testing.T) {
	s, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "e30=", s)

	out, err := Decode(s)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecodeMalformed(t *testing.T) {
	tcases := []struct {
		name string
		in   string
	}{
		{name: "not base64", in: "%%%not-base64"},
		{name: "not json", in: "bm90IGpzb24="},
		{name: "null", in: "bnVsbA=="},
		{name: "array", in: "WyIvYSJd"},
		{name: "non string value", in: "eyIvYSI6MX0="},
		{name: "relative path", in: "eyJhLmNzcyI6IngifQ=="},
		{name: "empty", in: ""},
	}
	for _, tc := range tcases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := Decode(tc.in)
			require.Error(t, err)
			assert.Nil(t, out)
			var merr *MalformedVFSError
			assert.True(t, errors.As(err, &merr), "got %T", err)
		})
	}
}

func TestVolume(t *testing.T) {
	v := NewVolume(map[string]string{"/b.css": "b", "/a.css": "a"})
	assert.Equal(t, []string{"/a.css", "/b.css"}, v.Paths())

	w := NewVolume(nil)
	w.Set("/a.css", "a")
	w.Set("/b.css", "b")
	assert.True(t, v.Equal(w))
	assert.Equal(t, v.Hash(), w.Hash())

	c := v.Clone()
	c.Set("/a.css", "changed")
	assert.False(t, v.Equal(c))
	assert.NotEqual(t, v.Hash(), c.Hash())
	got, _ := v.Get("/a.css")
	assert.Equal(t, "a", got, "clone must not share storage")

	c.Delete("/a.css")
	assert.False(t, c.Has("/a.css"))
	assert.Equal(t, 1, c.Len())

	assert.Panics(t, func() { v.Set("relative.css", "") })
}

func TestVolumeHashSeparatesFields(t *testing.T) {
	a := NewVolume(map[string]string{"/ab": "c"})
	b := NewVolume(map[string]string{"/a": "bc"})
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestDecodeVolume(t *testing.T) {
	v := NewVolume(map[string]string{"/main.css": "@tailwind utilities;"})
	s, err := v.Encode()
	require.NoError(t, err)
	got, err := DecodeVolume(s)
	require.NoError(t, err)
	assert.True(t, v.Equal(got))
}
