// Package fspath models path handles tagged with an origin: the local
// machine, or a remote endpoint identified by its connection URI. The
// transfer router classifies every operation by the origins of the
// handles involved before picking a strategy.
package fspath

import "path"

// Origin identifies the filesystem a path lives on. The zero value is
// the local machine; a remote origin carries the endpoint URI used for
// same-origin comparisons.
type Origin struct {
	uri string
}

// LocalOrigin is the origin of paths on the local default filesystem.
var LocalOrigin = Origin{}

// RemoteOrigin returns the origin for the endpoint with the given URI.
func RemoteOrigin(uri string) Origin {
	return Origin{uri: uri}
}

func (o Origin) IsLocal() bool {
	return o.uri == ""
}

// URI returns the endpoint URI, or the empty string for the local origin.
func (o Origin) URI() string {
	return o.uri
}

func (o Origin) String() string {
	if o.IsLocal() {
		return "local"
	}
	return o.uri
}

// Path is an immutable handle to a filesystem entry on some origin.
// The name is slash-separated and cleaned at construction.
type Path struct {
	origin Origin
	name   string
}

// Local returns a handle on the local filesystem.
func Local(name string) Path {
	return Path{origin: LocalOrigin, name: path.Clean(name)}
}

// Remote returns a handle on the endpoint identified by uri.
func Remote(uri, name string) Path {
	return Path{origin: RemoteOrigin(uri), name: path.Clean(name)}
}

// New returns a handle for an already-resolved origin.
func New(origin Origin, name string) Path {
	return Path{origin: origin, name: path.Clean(name)}
}

func (p Path) Origin() Origin {
	return p.origin
}

func (p Path) IsLocal() bool {
	return p.origin.IsLocal()
}

// Name returns the cleaned hierarchical name of the entry.
func (p Path) Name() string {
	return p.name
}

// Base returns the last element of the name.
func (p Path) Base() string {
	return path.Base(p.name)
}

// Dir returns the handle of the parent entry on the same origin.
func (p Path) Dir() Path {
	return Path{origin: p.origin, name: path.Dir(p.name)}
}

// Join returns a handle for a child entry on the same origin.
func (p Path) Join(elem ...string) Path {
	return Path{origin: p.origin, name: path.Join(append([]string{p.name}, elem...)...)}
}

func (p Path) String() string {
	if p.IsLocal() {
		return p.name
	}
	return p.origin.uri + p.name
}

// SameOrigin reports whether both handles live on the same filesystem,
// meaning their endpoint identifiers are equal (or both are local).
func SameOrigin(a, b Path) bool {
	return a.origin == b.origin
}

// Same reports whether both handles denote the identical entry. The
// comparison is syntactic: symlinks are not resolved, so a link and
// its target compare as distinct entries.
func Same(a, b Path) bool {
	return a.origin == b.origin && a.name == b.name
}
