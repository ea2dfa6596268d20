package router

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"remotefs/fspath"
	"remotefs/perms"
)

// DeleteRecursive removes an entry and everything under it, failing
// with a not-exist error when the entry is absent.
func (r *Router) DeleteRecursive(ctx context.Context, p fspath.Path) error {
	ok, err := r.DeleteRecursiveIfExists(ctx, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("delete %s: %w", p, fs.ErrNotExist)
	}
	return nil
}

// DeleteRecursiveIfExists removes an entry and everything under it,
// reporting whether anything was there. An absent entry returns false
// without running a remote command.
func (r *Router) DeleteRecursiveIfExists(ctx context.Context, p fspath.Path) (bool, error) {
	if p.IsLocal() {
		return false, fmt.Errorf("recursive delete of local path: %w", errors.ErrUnsupported)
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return false, err
	}

	if _, err := ep.Lstat(p.Name()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	r.logger.Debug("recursively deleting", "path", p.String())
	if _, err := ep.Exec(ctx, "rm", "-rf", p.Name()); err != nil {
		return false, fmt.Errorf("delete %s: %w", p, err)
	}
	return true, nil
}

// ChangePermissionsRecursive applies a permission change to an entry
// and everything under it via a host-side chmod -R.
func (r *Router) ChangePermissionsRecursive(ctx context.Context, p fspath.Path, change perms.Change, set []perms.Perm) error {
	if p.IsLocal() {
		return fmt.Errorf("recursive chmod of local path: %w", errors.ErrUnsupported)
	}
	ep, err := r.endpoint(p)
	if err != nil {
		return err
	}

	mode, err := perms.Mode(change, set)
	if err != nil {
		return err
	}
	r.logger.Debug("recursively changing permissions", "path", p.String(), "mode", mode)
	if _, err := ep.Exec(ctx, "chmod", "-R", mode, p.Name()); err != nil {
		return fmt.Errorf("chmod %s: %w", p, err)
	}
	return nil
}
