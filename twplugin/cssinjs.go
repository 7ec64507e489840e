package twplugin

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/gotailwindcss/windpress/twcss"
	"github.com/gotailwindcss/windpress/twdesign"
)

// ToNodes converts a CSS-in-JS value (an object of selectors, at-rules and
// declarations, or an array of them) to stylesheet nodes.
func ToNodes(rt *goja.Runtime, v goja.Value) []*twcss.Node {
	if isNullish(v) {
		return nil
	}
	obj := v.ToObject(rt)
	if obj.ClassName() == "Array" {
		var ret []*twcss.Node
		for _, item := range arrayItems(rt, obj) {
			ret = append(ret, ToNodes(rt, item)...)
		}
		return ret
	}
	var ret []*twcss.Node
	for _, key := range obj.Keys() {
		val := obj.Get(key)
		if isNullish(val) {
			continue
		}
		ret = append(ret, entryNodes(rt, key, val)...)
	}
	return ret
}

func entryNodes(rt *goja.Runtime, key string, val goja.Value) []*twcss.Node {
	if isObject(val) && val.ToObject(rt).ClassName() != "Array" {
		children := ToNodes(rt, val)
		if strings.HasPrefix(key, "@") {
			name, params := splitAt(key)
			if len(children) == 0 && name != "font-face" && name != "page" {
				return []*twcss.Node{twcss.NewStatement(name, params)}
			}
			return []*twcss.Node{twcss.NewAtRule(name, params, children...)}
		}
		return []*twcss.Node{twcss.NewRule(key, children...)}
	}
	prop := key
	if !strings.HasPrefix(prop, "--") {
		prop = kebab(prop)
	}
	if isObject(val) {
		// fallbacks: {display: ['-webkit-box', 'flex']}
		var ret []*twcss.Node
		for _, item := range arrayItems(rt, val.ToObject(rt)) {
			ret = append(ret, twcss.NewDecl(prop, item.String()))
		}
		return ret
	}
	return []*twcss.Node{twcss.NewDecl(prop, val.String())}
}

func splitAt(key string) (string, string) {
	key = strings.TrimPrefix(key, "@")
	i := strings.IndexAny(key, " (")
	if i < 0 {
		return key, ""
	}
	return key[:i], strings.TrimSpace(key[i:])
}

// kebab converts a camelCase property name: backgroundColor gives
// background-color, WebkitAppearance gives -webkit-appearance.
func kebab(s string) string {
	if strings.ContainsRune(s, '-') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('-')
			b.WriteByte(c + 'a' - 'A')
			continue
		}
		b.WriteByte(c)
	}
	out := b.String()
	if strings.HasPrefix(out, "ms-") {
		out = "-" + out
	}
	return out
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func isObject(v goja.Value) bool {
	if isNullish(v) {
		return false
	}
	_, ok := v.(*goja.Object)
	return ok
}

func arrayItems(rt *goja.Runtime, obj *goja.Object) []goja.Value {
	n := obj.Get("length").ToInteger()
	ret := make([]goja.Value, 0, n)
	for i := int64(0); i < n; i++ {
		ret = append(ret, obj.Get(strconv.FormatInt(i, 10)))
	}
	return ret
}

// Entries flattens a theme-like object into ordered name/value pairs.
// Nested objects join their keys with "-", DEFAULT stands for the parent
// key and arrays are joined as a comma list (font stacks) or reduced to
// their first item when it is a [value, options] tuple.
func Entries(rt *goja.Runtime, v goja.Value) []twdesign.KeyValue {
	if !isObject(v) {
		return nil
	}
	var ret []twdesign.KeyValue
	var walk func(prefix string, obj *goja.Object)
	walk = func(prefix string, obj *goja.Object) {
		for _, key := range obj.Keys() {
			name := key
			switch {
			case key == "DEFAULT" && prefix != "":
				name = prefix
			case prefix != "":
				name = prefix + "-" + key
			}
			val := obj.Get(key)
			switch {
			case isNullish(val):
			case isObject(val) && val.ToObject(rt).ClassName() == "Array":
				ret = append(ret, twdesign.KeyValue{Key: name, Value: joinArray(rt, val.ToObject(rt))})
			case isObject(val) && val.ToObject(rt).ClassName() == "Function":
			case isObject(val):
				walk(name, val.ToObject(rt))
			default:
				ret = append(ret, twdesign.KeyValue{Key: name, Value: val.String()})
			}
		}
	}
	walk("", v.ToObject(rt))
	return ret
}

func joinArray(rt *goja.Runtime, arr *goja.Object) string {
	items := arrayItems(rt, arr)
	if len(items) == 2 && isObject(items[1]) {
		return items[0].String()
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if !isObject(it) {
			parts = append(parts, it.String())
		}
	}
	return strings.Join(parts, ", ")
}
