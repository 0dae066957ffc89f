package main

import (
	"github.com/benaskins/envchain/internal/config"
	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/resolve"
)

const (
	keychainEnv    = "ENVCHAIN_KEYCHAIN"
	keychainDirEnv = "ENVCHAIN_KEYCHAIN_DIR"
	logLevelEnv    = "ENVCHAIN_LOG_LEVEL"
)

// globals are the options accepted before the command token.
type globals struct {
	keychain    string
	keychainSet bool
	fromEnv     bool
	dir         string
	dirSet      bool
}

// parseGlobals consumes leading global options and returns the remaining
// arguments. Parsing stops at the first token that is not a global option.
func parseGlobals(args []string) (globals, []string, error) {
	var g globals
	for len(args) > 0 {
		switch args[0] {
		case "--keychain":
			if len(args) < 2 {
				return g, nil, errs.Usagef("Missing argument for --keychain")
			}
			g.keychain, g.keychainSet = args[1], true
			args = args[2:]
		case "--keychain-from-env":
			g.fromEnv = true
			args = args[1:]
		case "--keychain-dir":
			if len(args) < 2 {
				return g, nil, errs.Usagef("Missing argument for --keychain-dir")
			}
			g.dir, g.dirSet = args[1], true
			args = args[2:]
		default:
			return g, args, nil
		}
	}
	return g, args, nil
}

// keychainPath picks the keychain for an invocation. An explicit path wins,
// then $ENVCHAIN_KEYCHAIN when enabled, then DIR/<namespace>.keychain-db when
// that file exists. DIR comes from --keychain-dir, else
// $ENVCHAIN_KEYCHAIN_DIR, else the config file; a set but empty
// $ENVCHAIN_KEYCHAIN_DIR turns auto-mapping off. "" selects the default
// search list.
func (g globals) keychainPath(lookupEnv func(string) (string, bool), cfg *config.Config, rest []string) string {
	if g.keychainSet {
		return g.keychain
	}
	if g.fromEnv {
		if p, _ := lookupEnv(keychainEnv); p != "" {
			return p
		}
	}

	dir := g.dir
	if !g.dirSet {
		var ok bool
		if dir, ok = lookupEnv(keychainDirEnv); !ok {
			dir = cfg.KeychainDir
		}
	}
	if path, ok := resolve.ContainerPath(dir, resolve.Namespace(rest)); ok {
		return path
	}
	return ""
}
