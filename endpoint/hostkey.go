package endpoint

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
)

// HostKeyError reports a host key that failed known_hosts verification,
// carrying the fields a caller needs to present or record the key.
type HostKeyError struct {
	Host           string
	KeyType        string
	KeyFingerprint string
	KnownHostsLine string
	Err            error
}

func (e *HostKeyError) Error() string {
	return e.Err.Error()
}

func (e *HostKeyError) Unwrap() error {
	return e.Err
}

// newHostKeyCallback builds the host key verifier for a connection,
// backed by the known_hosts file unless verification is disabled.
func newHostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.IgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	knownHostsPath := cfg.KnownHostsPath
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	} else {
		knownHostsPath = expandPath(knownHostsPath)
	}

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts file: %w", err)
		}
	}

	kh, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := kh(hostname, remote, key)
		if err == nil {
			return nil
		}

		keyLine := knownhosts.Line([]string{hostname}, key)
		hke := &HostKeyError{
			Host:           hostname,
			KeyType:        key.Type(),
			KeyFingerprint: ssh.FingerprintSHA256(key),
			KnownHostsLine: keyLine,
		}
		switch {
		case knownhosts.IsHostKeyChanged(err):
			hke.Err = fmt.Errorf("host key for %s has changed (fingerprint %s); "+
				"remove the old entry from %s if the new key is trusted",
				hostname, hke.KeyFingerprint, knownHostsPath)
		case knownhosts.IsHostUnknown(err):
			hke.Err = fmt.Errorf("unknown host key for %s (fingerprint %s); "+
				"append %q to %s to accept it",
				hostname, hke.KeyFingerprint, keyLine, knownHostsPath)
		default:
			return err
		}
		return hke
	}, nil
}
