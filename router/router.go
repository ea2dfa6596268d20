// Package router dispatches filesystem operations across origins.
// Given path handles tagged local or remote, it picks a transfer
// strategy (same-endpoint shell command, upload/download, or
// cross-endpoint byte streaming) and delegates to the endpoint
// sessions registered with it. Sessions are borrowed, never owned.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"remotefs/fspath"
)

// Endpoint is the shape of a remote session the router delegates to.
// *endpoint.Session implements it; tests substitute their own.
type Endpoint interface {
	// URI returns the endpoint identifier used for same-origin checks.
	URI() string

	// Exec runs a command on the remote host and returns its stdout.
	Exec(ctx context.Context, name string, args ...string) ([]byte, error)

	// Upload and Download transfer files or directory trees between
	// the local filesystem and the endpoint, given absolute paths.
	Upload(localPath, remotePath string) error
	Download(remotePath, localPath string) error

	// Open and Create are byte-stream channels on single remote files.
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)

	Stat(path string) (os.FileInfo, error)
	Lstat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Chmod(path string, mode os.FileMode) error
	Chtimes(path string, atime, mtime time.Time) error
	Remove(path string) error
	Symlink(target, link string) error
	ReadLink(path string) (string, error)
}

// ErrInvalidPath reports a path handle that cannot be used for the
// requested operation, such as a symlink target on a foreign origin.
var ErrInvalidPath = errors.New("invalid path")

// Router routes operations to the endpoint sessions registered for
// their origins. The zero value is not usable; call New.
type Router struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		endpoints: make(map[string]Endpoint),
		logger:    logger,
	}
}

// Register makes an endpoint session available for handles on its URI.
// The router does not manage the session's lifecycle.
func (r *Router) Register(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[ep.URI()] = ep
}

func (r *Router) endpoint(p fspath.Path) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[p.Origin().URI()]
	if !ok {
		return nil, fmt.Errorf("no session registered for %s: %w", p.Origin(), errors.ErrUnsupported)
	}
	return ep, nil
}

// Option is a per-operation transfer flag.
type Option int

const (
	// FollowLinks resolves symlinks when reading source attributes.
	FollowLinks Option = iota
	// CopyAttributes carries permissions and timestamps to the destination.
	CopyAttributes
	// ReplaceExisting overwrites an existing destination entry.
	ReplaceExisting
	// AtomicMove requires the move to be a single rename; it cannot be
	// satisfied across origins.
	AtomicMove
)

type flags struct {
	followLinks     bool
	copyAttributes  bool
	replaceExisting bool
	atomicMove      bool
}

func flagsFrom(opts []Option) flags {
	var f flags
	for _, o := range opts {
		switch o {
		case FollowLinks:
			f.followLinks = true
		case CopyAttributes:
			f.copyAttributes = true
		case ReplaceExisting:
			f.replaceExisting = true
		case AtomicMove:
			f.atomicMove = true
		}
	}
	return f
}

// stat resolves an entry on whichever side the handle lives on.
func (r *Router) stat(p fspath.Path, follow bool) (os.FileInfo, error) {
	if p.IsLocal() {
		if follow {
			return os.Stat(p.Name())
		}
		return os.Lstat(p.Name())
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return nil, err
	}
	if follow {
		return ep.Stat(p.Name())
	}
	return ep.Lstat(p.Name())
}

func (r *Router) exists(p fspath.Path) (bool, error) {
	_, err := r.stat(p, false)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Router) mkdir(p fspath.Path) error {
	if p.IsLocal() {
		return os.Mkdir(p.Name(), 0755)
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return err
	}
	return ep.Mkdir(p.Name())
}

func (r *Router) remove(p fspath.Path) error {
	if p.IsLocal() {
		return os.Remove(p.Name())
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return err
	}
	return ep.Remove(p.Name())
}

func (r *Router) chmod(p fspath.Path, mode os.FileMode) error {
	if p.IsLocal() {
		return os.Chmod(p.Name(), mode)
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return err
	}
	return ep.Chmod(p.Name(), mode)
}

func (r *Router) chtimes(p fspath.Path, atime, mtime time.Time) error {
	if p.IsLocal() {
		return os.Chtimes(p.Name(), atime, mtime)
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return err
	}
	return ep.Chtimes(p.Name(), atime, mtime)
}

// copyAttributes carries the source's permissions and timestamps to the
// destination, resolving the source through symlinks when follow is set.
func (r *Router) copyAttributes(src, dst fspath.Path, follow bool) error {
	info, err := r.stat(src, follow)
	if err != nil {
		return err
	}
	if err := r.chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return r.chtimes(dst, info.ModTime(), info.ModTime())
}
