//go:build property
// +build property

package twintellisense

import (
	"context"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twv4"
	"github.com/gotailwindcss/windpress/twvfs"
)

var sortPool = []string{
	"flex", "p-4", "px-2", "m-1", "-mt-2", "md:flex", "hover:bg-red-500", "bg-red-500/50",
	"text-sm", "lg:hover:underline", "grid", "unknown-x", "unknown-y", "!font-bold", "w-[13px]", "dark:p-1",
}

// TestSortProperties checks that sorting is idempotent, a permutation and
// stable for classes of equal rank.
func TestSortProperties(t *testing.T) {
	e := twv4.New(twv4.WithFetcher(twfetch.Static{}))
	ds, err := e.DesignSystem(context.Background(), "/main.css",
		twvfs.NewVolume(map[string]string{"/main.css": `@import "tailwindcss";`}))
	if err != nil {
		t.Fatal(err)
	}

	properties := gopter.NewProperties(nil)

	properties.Property("sort(sort(x)) == sort(x)", prop.ForAll(
		func(idx []int) bool {
			classes := make([]string, len(idx))
			for i, n := range idx {
				classes[i] = sortPool[n]
			}
			once := SortClasses(ds, classes)
			return reflect.DeepEqual(once, SortClasses(ds, once))
		},
		gen.SliceOf(gen.IntRange(0, len(sortPool)-1)),
	))

	properties.Property("sort keeps every class", prop.ForAll(
		func(idx []int) bool {
			count := map[string]int{}
			classes := make([]string, len(idx))
			for i, n := range idx {
				classes[i] = sortPool[n]
				count[classes[i]]++
			}
			for _, c := range SortClasses(ds, classes) {
				count[c]--
			}
			for _, n := range count {
				if n != 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(sortPool)-1)),
	))

	properties.Property("sort keeps the order of unknown classes", prop.ForAll(
		func(idx []int) bool {
			classes := make([]string, len(idx))
			var unknown []string
			for i, n := range idx {
				classes[i] = sortPool[n]
				if classes[i] == "unknown-x" || classes[i] == "unknown-y" {
					unknown = append(unknown, classes[i])
				}
			}
			sorted := SortClasses(ds, classes)
			for i, c := range unknown {
				if sorted[i] != c {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(sortPool)-1)),
	))

	properties.TestingRun(t)
}
