// Package resolve infers the namespace an invocation targets from the shape
// of its arguments, so a per-namespace keychain can be selected before the
// command runs.
package resolve

import (
	"os"
	"path/filepath"
	"strings"
)

// KeychainExt is the file extension of an auto-mapped keychain.
const KeychainExt = ".keychain-db"

// Namespace returns the namespace args (the command and its operands, global
// options already removed) would act on, or "" when there is none or it is
// ambiguous. Exec invocations naming several namespaces return "".
func Namespace(args []string) string {
	if len(args) == 0 {
		return ""
	}

	var ns string
	switch cmd, rest := args[0], args[1:]; {
	case cmd == "--set" || cmd == "-s" || cmd == "--set-access":
		ns = firstOperand(rest)
	case cmd == "--unset":
		if len(rest) > 0 {
			ns = rest[0]
		}
	case cmd == "--list" || cmd == "-l":
		for _, a := range rest {
			if a == "--show-value" || a == "-v" {
				continue
			}
			ns = a
			break
		}
	case !isFlag(cmd):
		if !strings.Contains(cmd, ",") {
			ns = cmd
		}
	}
	return ns
}

// ContainerPath returns dir/ns.keychain-db when that file exists.
func ContainerPath(dir, ns string) (string, bool) {
	if dir == "" || ns == "" {
		return "", false
	}
	path := filepath.Join(dir, ns+KeychainExt)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func firstOperand(args []string) string {
	for _, a := range args {
		if !isFlag(a) {
			return a
		}
	}
	return ""
}

func isFlag(s string) bool {
	return strings.HasPrefix(s, "-")
}
