// Package policy changes who may decrypt a stored secret without asking.
package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/keychain"
)

// Policy is the requested access behavior for reading a secret.
type Policy int

const (
	// Unspecified leaves the item's access rules untouched.
	Unspecified Policy = iota
	// RequirePassphrase makes every read ask for the keychain passphrase.
	RequirePassphrase
	// SelfTrusted lets the running envchain binary read without prompting.
	SelfTrusted
)

func (p Policy) String() string {
	switch p {
	case RequirePassphrase:
		return "require-passphrase"
	case SelfTrusted:
		return "self-trusted"
	}
	return "unspecified"
}

// FromFlags maps the -p and -P options to a Policy. Both set is a usage
// error.
func FromFlags(require, noRequire bool) (Policy, error) {
	switch {
	case require && noRequire:
		return Unspecified, errs.Usagef("--require-passphrase and --no-require-passphrase are mutually exclusive")
	case require:
		return RequirePassphrase, nil
	case noRequire:
		return SelfTrusted, nil
	}
	return Unspecified, nil
}

// IdentityFunc returns the executable paths trusted under SelfTrusted.
type IdentityFunc func() ([]string, error)

// TrustedIdentities returns the path the running binary was invoked by and,
// when it differs, its fully resolved path.
func TrustedIdentities() ([]string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return identitiesOf(exe, filepath.EvalSymlinks)
}

func identitiesOf(exe string, resolve func(string) (string, error)) ([]string, error) {
	resolved, err := resolve(exe)
	if err != nil {
		return nil, fmt.Errorf("resolve real path of %s: %w", exe, err)
	}
	if resolved == exe {
		return []string{exe}, nil
	}
	return []string{exe, resolved}, nil
}

var errNoDecryptRule = errors.New("no access rule governs decryption")

// Manager applies policies to keychain items.
type Manager struct {
	svc        keychain.Service
	identities IdentityFunc
	logger     *slog.Logger
}

// NewManager creates a Manager. A nil identities uses TrustedIdentities.
func NewManager(svc keychain.Service, identities IdentityFunc) *Manager {
	if identities == nil {
		identities = TrustedIdentities
	}
	return &Manager{
		svc:        svc,
		identities: identities,
		logger:     slog.With("component", "policy"),
	}
}

// Apply rewrites the decrypt rule of item according to p. Every failure is
// fatal and nothing is rolled back.
func (m *Manager) Apply(item keychain.Item, p Policy) error {
	if p == Unspecified {
		return nil
	}

	access, err := m.svc.CopyAccess(item)
	if err != nil {
		return errs.Fatal("read access of "+item.String(), err)
	}

	// The Keychain gives generic passwords a single decrypt rule.
	rules := access.Matching(keychain.AuthorizationDecrypt)
	if len(rules) == 0 {
		return errs.Fatal("set access of "+item.String(), errNoDecryptRule)
	}
	rule := rules[0]

	switch p {
	case RequirePassphrase:
		prompt := rule.Prompt
		if prompt == 0 {
			prompt = keychain.PromptEnabled
		}
		rule.SetContents([]string{}, prompt|keychain.PromptRequirePassphrase)
	case SelfTrusted:
		apps, err := m.identities()
		if err != nil {
			return errs.Fatal("resolve executable path", err)
		}
		rule.SetContents(apps, 0)
	}

	if err := m.svc.SetAccess(item, access); err != nil {
		return errs.Fatal("set access of "+item.String(), err)
	}
	m.logger.Debug("applied access policy", "item", item.String(), "policy", p.String())
	return nil
}
