// Package asset maps prediction labels and spoken phrases to sign animations.
package asset

import (
	"strings"
)

// DefaultBase is the URL prefix for per-letter animations.
const DefaultBase = "/static/animations"

// Entry binds a normalized word or phrase to an animation path.
type Entry struct {
	Key  string
	Path string
}

// DefaultWords is the built-in word table. Order matters for transcript
// matching: the first key contained in a transcript wins.
var DefaultWords = []Entry{
	{Key: "HELLO", Path: "/static/animations/hello.gif"},
	{Key: "YES", Path: "/static/animations/yes.gif"},
	{Key: "NO", Path: "/static/animations/no.gif"},
	{Key: "THANKS", Path: "/static/animations/thanks.gif"},
	{Key: "THANK YOU", Path: "/static/animations/thanks.gif"},
}

// Resolver looks up animations for labels. It is immutable once built.
type Resolver struct {
	base  string
	words []Entry
	index map[string]string
}

// NewResolver builds a resolver over the given word table. Keys are
// normalized; on duplicate keys the first entry wins.
func NewResolver(base string, words []Entry) *Resolver {
	if base == "" {
		base = DefaultBase
	}
	r := &Resolver{
		base:  strings.TrimSuffix(base, "/"),
		words: make([]Entry, 0, len(words)),
		index: make(map[string]string, len(words)),
	}
	for _, w := range words {
		key := Normalize(w.Key)
		if key == "" {
			continue
		}
		if _, dup := r.index[key]; dup {
			continue
		}
		r.index[key] = w.Path
		r.words = append(r.words, Entry{Key: key, Path: w.Path})
	}
	return r
}

// Default returns a resolver over DefaultWords and DefaultBase.
func Default() *Resolver {
	return NewResolver(DefaultBase, DefaultWords)
}

// Normalize trims surrounding whitespace and upper-cases s.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Words returns a copy of the normalized word table in match order.
func (r *Resolver) Words() []Entry {
	out := make([]Entry, len(r.words))
	copy(out, r.words)
	return out
}

// LetterPath returns the per-letter animation path for s. s is used as-is.
func (r *Resolver) LetterPath(s string) string {
	return r.base + "/" + s + ".gif"
}

// Resolve returns the animation for a prediction label.
//
// Word-table entries match exactly. Any other label, whatever its length,
// gets a per-letter path built from the normalized label; multi-character
// labels therefore yield paths that may not exist.
func (r *Resolver) Resolve(label string) (string, bool) {
	key := Normalize(label)
	if key == "" {
		return "", false
	}
	if path, ok := r.index[key]; ok {
		return path, true
	}
	return r.LetterPath(key), true
}

// ResolveTranscript returns the animation for a recognized phrase: the first
// table key contained in the normalized transcript, or else the letter
// animation for its first character when that is A-Z.
func (r *Resolver) ResolveTranscript(transcript string) (string, bool) {
	normalized := Normalize(transcript)
	if normalized == "" {
		return "", false
	}

	for _, w := range r.words {
		if strings.Contains(normalized, w.Key) {
			return w.Path, true
		}
	}

	first := normalized[0]
	if first >= 'A' && first <= 'Z' {
		return r.LetterPath(string(first)), true
	}
	return "", false
}
