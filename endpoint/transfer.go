package endpoint

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Upload copies a local file or directory tree to the remote host,
// preserving file modes. It is the upload channel the router delegates
// local-to-remote transfers to.
func (s *Session) Upload(localPath, remotePath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return s.uploadFile(localPath, remotePath, info.Mode())
	}

	return filepath.WalkDir(localPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localPath, p)
		if err != nil {
			return err
		}
		target := path.Join(remotePath, filepath.ToSlash(rel))

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := s.sftp.MkdirAll(target); err != nil {
				return fmt.Errorf("mkdir %s: %w", target, err)
			}
			return s.sftp.Chmod(target, info.Mode().Perm())
		}
		return s.uploadFile(p, target, info.Mode())
	})
}

func (s *Session) uploadFile(localPath, remotePath string, mode os.FileMode) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", remotePath, err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		s.sftp.Remove(remotePath)
		return fmt.Errorf("upload %s: %w", localPath, err)
	}
	s.logger.Debug("uploaded", "path", remotePath, "bytes", size)
	return s.sftp.Chmod(remotePath, mode.Perm())
}

// Download copies a remote file or directory tree to the local
// filesystem, preserving file modes. It is the download channel the
// router delegates remote-to-local transfers to.
func (s *Session) Download(remotePath, localPath string) error {
	info, err := s.sftp.Stat(remotePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return s.downloadFile(remotePath, localPath, info.Mode())
	}

	walker := s.sftp.Walk(remotePath)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(remotePath, walker.Path())
		if err != nil {
			return err
		}
		target := filepath.Join(localPath, rel)

		info := walker.Stat()
		if info.IsDir() {
			if err := os.MkdirAll(target, info.Mode().Perm()); err != nil {
				return err
			}
			continue
		}
		if err := s.downloadFile(walker.Path(), target, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) downloadFile(remotePath, localPath string, mode os.FileMode) error {
	src, err := s.sftp.Open(remotePath)
	if err != nil {
		return fmt.Errorf("sftp open %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(localPath)
		return fmt.Errorf("download %s: %w", remotePath, err)
	}
	s.logger.Debug("downloaded", "path", remotePath, "bytes", size)
	return nil
}
