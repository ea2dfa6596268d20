// Package endpoint maintains authenticated SSH sessions and exposes the
// command-execution and file-transfer primitives the transfer router
// delegates to. A Session pairs an SSH connection with an SFTP client
// and is identified by its connection URI; handles on the same URI are
// treated as same-origin by the router.
package endpoint

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Config describes how to reach and authenticate against a remote host.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	KeyPath        string
	KnownHostsPath string
	IgnoreHostKey  bool

	// PasswordFunc is consulted interactively when the other
	// authentication methods are exhausted.
	PasswordFunc func() (string, error)
}

// ParseURI splits an ssh://user@host[:port]/path URI into a Config and
// the remote path component.
func ParseURI(raw string) (Config, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, "", fmt.Errorf("invalid endpoint URI: %w", err)
	}
	if u.Scheme != "ssh" {
		return Config{}, "", fmt.Errorf("expected ssh:// scheme, got %q", u.Scheme)
	}

	cfg := Config{
		Host: u.Hostname(),
		User: u.User.Username(),
	}
	if cfg.User == "" {
		cfg.User = os.Getenv("USER")
	}
	if pw, ok := u.User.Password(); ok {
		cfg.Password = pw
	}
	if p := u.Port(); p != "" {
		cfg.Port, err = strconv.Atoi(p)
		if err != nil {
			return Config{}, "", fmt.Errorf("invalid port in %q: %w", raw, err)
		}
	}

	remotePath := u.Path
	if remotePath == "" {
		remotePath = "/"
	}
	return cfg, remotePath, nil
}

// URI returns the canonical endpoint identifier for the config,
// ssh://user@host:port. Two sessions dialed from configs with equal
// URIs are the same origin.
func (c Config) URI() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("ssh://%s@%s", c.User, net.JoinHostPort(c.Host, strconv.Itoa(port)))
}

// Session is an open connection to a remote host. The router borrows
// sessions to perform transfers; the caller that dialed one owns its
// lifecycle and must Close it.
type Session struct {
	id     string
	uri    string
	client *ssh.Client
	sftp   *sftp.Client
	logger *slog.Logger
}

// Dial connects to the host, authenticates, and opens an SFTP channel.
// Authentication tries the configured password, then the SSH agent,
// then the configured key file, then the default ~/.ssh keys, and
// finally PasswordFunc if set.
func Dial(cfg Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var authMethods []ssh.AuthMethod
	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}
	if agentAuth := loadSSHAgent(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}
	if cfg.KeyPath != "" {
		if signer, err := loadKey(expandPath(cfg.KeyPath)); err == nil {
			authMethods = append(authMethods, ssh.PublicKeys(signer))
		}
		// Passphrase-protected keys are the agent's job.
	}
	if len(authMethods) == 0 {
		authMethods = loadDefaultKeys()
	}
	if cfg.PasswordFunc != nil {
		authMethods = append(authMethods, ssh.PasswordCallback(cfg.PasswordFunc))
	}
	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no SSH authentication methods available for %s", cfg.URI())
	}

	hostKeyCallback, err := newHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	uri := cfg.URI()
	logger = logger.With("endpoint", uri, "session", uuid.NewString())
	logger.Debug("dialing", "addr", addr, "user", cfg.User)

	client, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("sftp session on %s: %w", addr, err)
	}

	return &Session{
		uri:    uri,
		client: client,
		sftp:   sftpClient,
		logger: logger,
	}, nil
}

// URI returns the endpoint identifier used for same-origin checks.
func (s *Session) URI() string {
	return s.uri
}

// Close releases the SFTP channel and the SSH connection.
func (s *Session) Close() error {
	s.sftp.Close()
	return s.client.Close()
}

// Open opens a read channel on a remote file.
func (s *Session) Open(path string) (io.ReadCloser, error) {
	return s.sftp.Open(path)
}

// Create opens a write channel on a remote file, truncating it.
func (s *Session) Create(path string) (io.WriteCloser, error) {
	return s.sftp.Create(path)
}

func (s *Session) Stat(path string) (os.FileInfo, error) {
	return s.sftp.Stat(path)
}

func (s *Session) Lstat(path string) (os.FileInfo, error) {
	return s.sftp.Lstat(path)
}

func (s *Session) Mkdir(path string) error {
	return s.sftp.Mkdir(path)
}

func (s *Session) Chmod(path string, mode os.FileMode) error {
	return s.sftp.Chmod(path, mode)
}

func (s *Session) Chtimes(path string, atime, mtime time.Time) error {
	return s.sftp.Chtimes(path, atime, mtime)
}

func (s *Session) Remove(path string) error {
	return s.sftp.Remove(path)
}

func (s *Session) Symlink(target, link string) error {
	return s.sftp.Symlink(target, link)
}

func (s *Session) ReadLink(path string) (string, error) {
	return s.sftp.ReadLink(path)
}

func loadKey(keyPath string) (ssh.Signer, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(key)
}

// loadDefaultKeys loads unencrypted keys from ~/.ssh in OpenSSH
// precedence order.
func loadDefaultKeys() []ssh.AuthMethod {
	var authMethods []ssh.AuthMethod

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa", "id_dsa"} {
		signer, err := loadKey(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}
	return authMethods
}

// loadSSHAgent returns an AuthMethod backed by the SSH agent, or nil
// when no agent is reachable.
func loadSSHAgent() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

// expandPath expands a leading ~/ to the home directory.
func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
