// Package twvfs holds the virtual file set that a build reads from: a flat
// mapping of absolute paths to file contents, plus the text codec used to
// move it between contexts.
package twvfs

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash"
)

// MalformedVFSError is returned by Decode when the input is not valid base64
// or does not carry a JSON object of path to string content.
type MalformedVFSError struct {
	Reason string
	Err    error
}

func (e *MalformedVFSError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed vfs: %s: %v", e.Reason, e.Err)
	}
	return "malformed vfs: " + e.Reason
}

func (e *MalformedVFSError) Unwrap() error { return e.Err }

// Encode serializes a path to content mapping as base64 of its JSON text.
// Keys come out sorted, so equal mappings encode to equal strings.
func Encode(files map[string]string) (string, error) {
	if files == nil {
		files = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(files); err != nil {
		return "", fmt.Errorf("twvfs: encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses the output of Encode. Any problem yields a *MalformedVFSError
// and no partial data.
func Decode(s string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, &MalformedVFSError{Reason: "invalid base64", Err: err}
	}
	var files map[string]string
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, &MalformedVFSError{Reason: "invalid json", Err: err}
	}
	if files == nil {
		return nil, &MalformedVFSError{Reason: "expected an object"}
	}
	for p := range files {
		if !strings.HasPrefix(p, "/") {
			return nil, &MalformedVFSError{Reason: fmt.Sprintf("path %q is not absolute", p)}
		}
	}
	return files, nil
}

// Volume is a concurrency-safe VFS container. The zero value is not usable,
// call NewVolume.
type Volume struct {
	mu    sync.RWMutex
	files map[string]string
}

// NewVolume returns a Volume seeded with a copy of files.
func NewVolume(files map[string]string) *Volume {
	v := &Volume{files: make(map[string]string, len(files))}
	for p, c := range files {
		v.files[p] = c
	}
	return v
}

// DecodeVolume is Decode followed by NewVolume.
func DecodeVolume(s string) (*Volume, error) {
	files, err := Decode(s)
	if err != nil {
		return nil, err
	}
	return &Volume{files: files}, nil
}

// Encode serializes the current contents of the volume.
func (v *Volume) Encode() (string, error) {
	return Encode(v.Map())
}

// Get returns the content stored at p.
func (v *Volume) Get(p string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c, ok := v.files[p]
	return c, ok
}

// Has reports whether p exists.
func (v *Volume) Has(p string) bool {
	_, ok := v.Get(p)
	return ok
}

// Set stores content at p, which must be absolute.
func (v *Volume) Set(p, content string) {
	if !strings.HasPrefix(p, "/") {
		panic(fmt.Errorf("twvfs.Volume.Set(%q): path is not absolute", p))
	}
	v.mu.Lock()
	v.files[p] = content
	v.mu.Unlock()
}

// Delete removes p.
func (v *Volume) Delete(p string) {
	v.mu.Lock()
	delete(v.files, p)
	v.mu.Unlock()
}

// Replace swaps the whole content of the volume.
func (v *Volume) Replace(files map[string]string) {
	next := make(map[string]string, len(files))
	for p, c := range files {
		next[p] = c
	}
	v.mu.Lock()
	v.files = next
	v.mu.Unlock()
}

// Len returns the number of files.
func (v *Volume) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.files)
}

// Paths returns the sorted file paths.
func (v *Volume) Paths() []string {
	v.mu.RLock()
	ret := make([]string, 0, len(v.files))
	for p := range v.files {
		ret = append(ret, p)
	}
	v.mu.RUnlock()
	sort.Strings(ret)
	return ret
}

// Map returns a copy of the contents.
func (v *Volume) Map() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ret := make(map[string]string, len(v.files))
	for p, c := range v.files {
		ret[p] = c
	}
	return ret
}

// Clone returns an independent copy.
func (v *Volume) Clone() *Volume {
	return &Volume{files: v.Map()}
}

// Hash returns a content hash over every path and its content. Two volumes
// with the same files hash the same regardless of insertion order.
func (v *Volume) Hash() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	paths := make([]string, 0, len(v.files))
	for p := range v.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	h := xxhash.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(v.files[p]))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Equal reports whether both volumes hold the same files.
func (v *Volume) Equal(other *Volume) bool {
	if v == nil || other == nil {
		return v == other
	}
	a, b := v.Map(), other.Map()
	if len(a) != len(b) {
		return false
	}
	for p, c := range a {
		if oc, ok := b[p]; !ok || oc != c {
			return false
		}
	}
	return true
}
