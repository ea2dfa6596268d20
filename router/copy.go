package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"remotefs/fspath"
)

// Copy copies a single entry from src to dst. Copying an entry to
// itself is a no-op. A directory source only creates the destination
// directory (plus attributes when requested); recursing into entries is
// the caller's job. Strategy by origin pair: same remote endpoint runs
// cp on the host, local paired with remote uses the endpoint's
// upload/download channel, and two different endpoints stream bytes
// through this process.
func (r *Router) Copy(ctx context.Context, src, dst fspath.Path, opts ...Option) error {
	f := flagsFrom(opts)
	if fspath.Same(src, dst) {
		return nil
	}

	info, err := r.stat(src, f.followLinks)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if info.IsDir() {
		r.logger.Debug("copying directory", "src", src.String(), "dst", dst.String())
		return r.copyDirectory(src, dst, f)
	}

	if !f.replaceExisting {
		ok, err := r.exists(dst)
		if err != nil {
			return err
		}
		if ok {
			// Destination already present, nothing to do.
			r.logger.Debug("destination exists, skipping copy", "dst", dst.String())
			return nil
		}
	}

	switch {
	case src.IsLocal() && dst.IsLocal():
		return fmt.Errorf("local to local copy: %w", errors.ErrUnsupported)

	case fspath.SameOrigin(src, dst):
		ep, err := r.endpoint(src)
		if err != nil {
			return err
		}
		r.logger.Debug("copying file on host", "src", src.String(), "dst", dst.String())
		args := make([]string, 0, 3)
		if f.copyAttributes {
			args = append(args, "-p")
		}
		args = append(args, src.Name(), dst.Name())
		_, err = ep.Exec(ctx, "cp", args...)
		return err

	case src.IsLocal():
		ep, err := r.endpoint(dst)
		if err != nil {
			return err
		}
		r.logger.Debug("uploading file", "src", src.String(), "dst", dst.String())
		return ep.Upload(src.Name(), dst.Name())

	case dst.IsLocal():
		ep, err := r.endpoint(src)
		if err != nil {
			return err
		}
		r.logger.Debug("downloading file", "src", src.String(), "dst", dst.String())
		return ep.Download(src.Name(), dst.Name())

	default:
		r.logger.Debug("streaming file between endpoints", "src", src.String(), "dst", dst.String())
		return r.streamCopy(src, dst, f)
	}
}

// copyDirectory creates the destination directory and optionally copies
// the source directory's attributes. An existing destination directory
// is not an error.
func (r *Router) copyDirectory(src, dst fspath.Path, f flags) error {
	if err := r.mkdir(dst); err != nil {
		info, statErr := r.stat(dst, true)
		if statErr != nil || !info.IsDir() {
			return fmt.Errorf("create %s: %w", dst, err)
		}
	}
	if f.copyAttributes {
		return r.copyAttributes(src, dst, f.followLinks)
	}
	return nil
}

// streamCopy moves bytes between two different endpoints through the
// local process: a read channel on the source, a write channel on the
// destination.
func (r *Router) streamCopy(src, dst fspath.Path, f flags) error {
	sep, err := r.endpoint(src)
	if err != nil {
		return err
	}
	dep, err := r.endpoint(dst)
	if err != nil {
		return err
	}

	rc, err := sep.Open(src.Name())
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer rc.Close()

	wc, err := dep.Create(dst.Name())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(wc, rc); err != nil {
		wc.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := wc.Close(); err != nil {
		return err
	}

	if f.copyAttributes {
		return r.copyAttributes(src, dst, f.followLinks)
	}
	return nil
}

// Move relocates an entry from src to dst. Moving an entry to itself
// is a no-op. On a single endpoint the move is a host-side mv; across
// origins it degrades to copy-then-delete, which AtomicMove forbids.
// A cross-origin directory move only transplants the directory entry
// itself: the source must already be empty or its removal fails.
func (r *Router) Move(ctx context.Context, src, dst fspath.Path, opts ...Option) error {
	f := flagsFrom(opts)
	if fspath.Same(src, dst) {
		return nil
	}

	if src.IsLocal() && dst.IsLocal() {
		return fmt.Errorf("local to local move: %w", errors.ErrUnsupported)
	}

	if fspath.SameOrigin(src, dst) {
		ep, err := r.endpoint(src)
		if err != nil {
			return err
		}
		if !f.replaceExisting {
			ok, err := r.exists(dst)
			if err != nil {
				return err
			}
			if ok {
				return fmt.Errorf("move %s to %s: %w", src, dst, fs.ErrExist)
			}
		}
		r.logger.Debug("moving path on host", "src", src.String(), "dst", dst.String())
		args := make([]string, 0, 3)
		if f.replaceExisting {
			args = append(args, "-f")
		}
		args = append(args, src.Name(), dst.Name())
		_, err = ep.Exec(ctx, "mv", args...)
		return err
	}

	if f.atomicMove {
		return fmt.Errorf("atomic move across origins: %w", errors.ErrUnsupported)
	}

	info, err := r.stat(src, true)
	if err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if !f.replaceExisting {
		ok, err := r.exists(dst)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("move %s to %s: %w", src, dst, fs.ErrExist)
		}
	}

	r.logger.Debug("moving path across origins", "src", src.String(), "dst", dst.String())
	if info.IsDir() {
		if err := r.copyDirectory(src, dst, f); err != nil {
			return err
		}
	} else {
		// fresh slice: appending to opts could scribble on the
		// caller's backing array
		copyOpts := make([]Option, 0, len(opts)+1)
		copyOpts = append(copyOpts, opts...)
		copyOpts = append(copyOpts, ReplaceExisting)
		if err := r.Copy(ctx, src, dst, copyOpts...); err != nil {
			return err
		}
	}
	return r.remove(src)
}

// CopyRecursive copies a whole tree. Local paired with remote uses the
// endpoint's recursive upload/download channel; a single remote
// endpoint runs cp -r on the host. There is no streaming strategy for
// trees spanning two different endpoints.
func (r *Router) CopyRecursive(ctx context.Context, src, dst fspath.Path) error {
	switch {
	case src.IsLocal() && dst.IsLocal():
		return fmt.Errorf("local to local copy: %w", errors.ErrUnsupported)

	case src.IsLocal():
		ep, err := r.endpoint(dst)
		if err != nil {
			return err
		}
		r.logger.Debug("uploading tree", "src", src.String(), "dst", dst.String())
		return ep.Upload(src.Name(), dst.Name())

	case dst.IsLocal():
		ep, err := r.endpoint(src)
		if err != nil {
			return err
		}
		r.logger.Debug("downloading tree", "src", src.String(), "dst", dst.String())
		return ep.Download(src.Name(), dst.Name())

	case fspath.SameOrigin(src, dst):
		ep, err := r.endpoint(src)
		if err != nil {
			return err
		}
		r.logger.Debug("copying tree on host", "src", src.String(), "dst", dst.String())
		_, err = ep.Exec(ctx, "cp", "-r", src.Name(), dst.Name())
		return err

	default:
		return fmt.Errorf("recursive copy between different endpoints: %w", errors.ErrUnsupported)
	}
}
