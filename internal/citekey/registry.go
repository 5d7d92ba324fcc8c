package citekey

import (
	"strconv"
	"strings"
)

// Registry tracks citation keys already in use. Keys compare
// case-insensitively, as BibTeX does. Not safe for concurrent use.
type Registry struct {
	taken map[string]bool
}

// NewRegistry returns a registry seeded with existing keys.
func NewRegistry(existing ...string) *Registry {
	r := &Registry{taken: make(map[string]bool, len(existing))}
	for _, k := range existing {
		r.Add(k)
	}
	return r
}

// Add marks key as taken.
func (r *Registry) Add(key string) {
	if key != "" {
		r.taken[strings.ToLower(key)] = true
	}
}

// Taken reports whether key is in use.
func (r *Registry) Taken(key string) bool {
	return r.taken[strings.ToLower(key)]
}

// Len returns the number of keys in use.
func (r *Registry) Len() int {
	return len(r.taken)
}

// Propose returns base, or the first free variant of it: b, c, ... z, then
// 27, 28, ... appended. The key is not marked taken; call Add once it is
// used.
func (r *Registry) Propose(base string) string {
	if !r.Taken(base) {
		return base
	}
	return r.next(base)
}

func (r *Registry) next(base string) string {
	for c := 'b'; c <= 'z'; c++ {
		candidate := base + string(c)
		if !r.Taken(candidate) {
			return candidate
		}
	}
	for i := 27; ; i++ {
		candidate := base + strconv.Itoa(i)
		if !r.Taken(candidate) {
			return candidate
		}
	}
}
