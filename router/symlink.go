package router

import (
	"errors"
	"fmt"

	"remotefs/fspath"
)

// CreateSymbolicLink creates link pointing at target. Both handles must
// live on the same origin; a symlink cannot cross filesystems.
func (r *Router) CreateSymbolicLink(link, target fspath.Path) error {
	if !fspath.SameOrigin(link, target) {
		return fmt.Errorf("link %s has a different origin than target %s: %w", link, target, ErrInvalidPath)
	}
	if link.IsLocal() {
		return fmt.Errorf("local symlink creation: %w", errors.ErrUnsupported)
	}
	ep, err := r.endpoint(link)
	if err != nil {
		return err
	}
	r.logger.Debug("symlinking", "link", link.String(), "target", target.String())
	return ep.Symlink(target.Name(), link.Name())
}

// ReadSymbolicLink resolves a symlink and returns its target as a
// handle on the link's own origin.
func (r *Router) ReadSymbolicLink(link fspath.Path) (fspath.Path, error) {
	if link.IsLocal() {
		return fspath.Path{}, fmt.Errorf("local symlink read: %w", errors.ErrUnsupported)
	}
	ep, err := r.endpoint(link)
	if err != nil {
		return fspath.Path{}, err
	}
	target, err := ep.ReadLink(link.Name())
	if err != nil {
		return fspath.Path{}, fmt.Errorf("read link %s: %w", link, err)
	}
	return fspath.New(link.Origin(), target), nil
}
