package main

import (
	"fmt"
	"io"
	"strings"
)

const usageText = `{{p}} version {{v}}

Usage:
  Global options
    {{p}} [--keychain PATH|--keychain-from-env|--keychain-dir DIR] ...

  Add variables
    {{p}} (--set|-s) [--[no-]require-passphrase|-p|-P] [--noecho|-n] NAMESPACE ENV [ENV ..]
  Change access policy without retyping value
    {{p}} --set-access [--require-passphrase|-p|--no-require-passphrase|-P] NAMESPACE ENV [ENV ..]
  Execute with variables
    {{p}} NAMESPACE[,NAMESPACE..] CMD [ARG ...]
  List namespaces
    {{p}} --list
  List variables of a namespace
    {{p}} --list [--show-value|-v] NAMESPACE
  Remove variables
    {{p}} --unset NAMESPACE ENV [ENV ..]

Options:
  --keychain:
    Use a specific macOS keychain file instead of default search list.

  --keychain-from-env:
    Read keychain path from ENVCHAIN_KEYCHAIN (disabled by default for safety).

  --keychain-dir:
    Auto-map namespace to DIR/<namespace>.keychain-db.
    Equivalent env var: ENVCHAIN_KEYCHAIN_DIR.

  --set (-s):
    Add keychain item of environment variable +ENV+ for namespace +NAMESPACE+.

  --set-access:
    Update ACL policy of existing keys without modifying values.
    Must provide either -p or -P.

  --noecho (-n):
    Enable noecho mode when prompting values. Requires stdin to be a terminal.

  --require-passphrase (-p), --no-require-passphrase (-P):
    Replace the item's ACL list to require passphrase (or not).
    Leave as is when both options are omitted.

  --show-value (-v):
    Print KEY=VALUE instead of KEY when listing a namespace.

Configuration is read from ~/.envchain/config.yaml (or ENVCHAIN_CONFIG).
ENVCHAIN_LOG_LEVEL sets the diagnostic log level.
`

func (a *app) printUsage(w io.Writer) {
	r := strings.NewReplacer("{{p}}", a.program, "{{v}}", version)
	fmt.Fprint(w, r.Replace(usageText))
}
