// Package gitsync moves agent branches between the local repository and
// remote git endpoints. Authentication descriptors are validated eagerly but
// resolved lazily, so a credential handle can be built before the key
// material is reachable.
package gitsync

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

var (
	// ErrInvalidAuthType marks an unrecognized auth descriptor tag.
	ErrInvalidAuthType = errors.New("invalid auth type")

	// ErrInvalidCredential marks a descriptor missing a required field.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Auth type tags accepted by NewCredentials.
const (
	AuthSSH   = "ssh"
	AuthHTTP  = "http"
	AuthToken = "token"
)

// AuthConfig describes how to authenticate against a remote. SSH uses
// Username (defaulting to "git") plus KeyPath, or the running ssh-agent
// when KeyPath is empty; HTTP uses Username plus Password; token uses
// Password alone.
type AuthConfig struct {
	Type       string
	Username   string
	Password   string
	KeyPath    string
	Passphrase string
}

// Credentials is a validated handle over an AuthConfig. Key files are only
// opened when the credentials are used for a transfer, not when the handle
// is created.
type Credentials struct {
	cfg AuthConfig
}

// NewCredentials checks the descriptor shape and returns a handle. It does
// not touch the filesystem or the network.
func NewCredentials(cfg AuthConfig) (*Credentials, error) {
	switch cfg.Type {
	case AuthSSH:
		if cfg.Username == "" {
			cfg.Username = "git"
		}
	case AuthHTTP:
		if cfg.Username == "" || cfg.Password == "" {
			return nil, fmt.Errorf("http auth requires username and password: %w", ErrInvalidCredential)
		}
	case AuthToken:
		if cfg.Password == "" {
			return nil, fmt.Errorf("token auth requires a token: %w", ErrInvalidCredential)
		}
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Type, ErrInvalidAuthType)
	}
	return &Credentials{cfg: cfg}, nil
}

// AuthMethod resolves the handle into a transport auth method. For ssh with
// a key path this reads the key file, so failures a construction-time check
// could not see (missing file, bad passphrase) surface here.
func (c *Credentials) AuthMethod() (transport.AuthMethod, error) {
	if c == nil {
		return nil, nil
	}
	switch c.cfg.Type {
	case AuthSSH:
		if c.cfg.KeyPath == "" {
			return gitssh.NewSSHAgentAuth(c.cfg.Username)
		}
		keys, err := gitssh.NewPublicKeysFromFile(c.cfg.Username, c.cfg.KeyPath, c.cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("load ssh key %s: %w", c.cfg.KeyPath, err)
		}
		return keys, nil
	case AuthHTTP:
		return &githttp.BasicAuth{Username: c.cfg.Username, Password: c.cfg.Password}, nil
	case AuthToken:
		return &githttp.TokenAuth{Token: c.cfg.Password}, nil
	}
	return nil, fmt.Errorf("%q: %w", c.cfg.Type, ErrInvalidAuthType)
}

// Type reports the descriptor tag the handle was built from.
func (c *Credentials) Type() string { return c.cfg.Type }
