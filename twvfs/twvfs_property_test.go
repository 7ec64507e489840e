//go:build property
// +build property

package twvfs

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCodecProperties checks that decoding an encoded container gives it back.
func TestCodecProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode(encode(x)) == x", prop.ForAll(
		func(paths []string, contents []string) bool {
			files := map[string]string{}
			for i, p := range paths {
				c := ""
				if i < len(contents) {
					c = contents[i]
				}
				files["/"+p] = c
			}
			s, err := Encode(files)
			if err != nil {
				return false
			}
			out, err := Decode(s)
			if err != nil || len(out) != len(files) {
				return false
			}
			for p, c := range files {
				if out[p] != c {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.RegexMatch(`^[a-zA-Z0-9_./-]{1,24}$`)),
		gen.SliceOf(gen.AnyString()),
	))

	properties.Property("hash ignores insertion order", prop.ForAll(
		func(paths []string) bool {
			a, b := NewVolume(nil), NewVolume(nil)
			for _, p := range paths {
				a.Set("/"+p, p)
			}
			for i := len(paths) - 1; i >= 0; i-- {
				b.Set("/"+paths[i], paths[i])
			}
			return a.Hash() == b.Hash()
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
