package main

import (
	"errors"
	"io"

	"github.com/spf13/pflag"

	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/launch"
	"github.com/benaskins/envchain/internal/policy"
	"github.com/benaskins/envchain/internal/store"
)

// passphraseFlags registers -p and -P on fs.
func passphraseFlags(fs *pflag.FlagSet) (require, noRequire *bool) {
	require = fs.BoolP("require-passphrase", "p", false, "always ask for the keychain passphrase")
	noRequire = fs.BoolP("no-require-passphrase", "P", false, "trust envchain to read without asking")
	return require, noRequire
}

func newFlagSet(name string, interspersed bool) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(interspersed)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return usageError()
		}
		return errs.Usagef("%v", err)
	}
	return nil
}

func (a *app) enumerator() *store.Enumerator {
	return store.NewEnumerator(a.store, a.console, a.program)
}

func (a *app) policies() *policy.Manager {
	return policy.NewManager(a.store.Service(), a.identities)
}

// set prompts for each key in turn, stores the value and applies the
// requested policy. A failed read stops the batch.
func (a *app) set(args []string) error {
	fs := newFlagSet("set", false)
	noecho := fs.BoolP("noecho", "n", false, "hide input while typing")
	require, noRequire := passphraseFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError()
	}
	p, err := policy.FromFlags(*require, *noRequire)
	if err != nil {
		return err
	}

	ns, keys := fs.Arg(0), fs.Args()[1:]
	policies := a.policies()
	for _, key := range keys {
		value, err := a.prompter.Ask(ns+"."+key, *noecho)
		if errors.Is(err, io.EOF) {
			return reportedFailure()
		}
		if err != nil {
			return err
		}

		item, err := a.store.Upsert(ns, key, value)
		value.Destroy()
		if err != nil {
			return err
		}
		if err := policies.Apply(item, p); err != nil {
			return err
		}
	}
	return nil
}

// setAccess changes the policy of existing keys. Missing keys are reported
// and skipped.
func (a *app) setAccess(args []string) error {
	fs := newFlagSet("set-access", false)
	require, noRequire := passphraseFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError()
	}
	p, err := policy.FromFlags(*require, *noRequire)
	if err != nil {
		return err
	}
	if p == policy.Unspecified {
		return errs.Usagef("--set-access requires either -p or -P")
	}

	ns, keys := fs.Arg(0), fs.Args()[1:]
	policies := a.policies()
	failed := false
	for _, key := range keys {
		item, found, err := a.store.Find(ns, key)
		if err != nil {
			return err
		}
		if !found {
			a.console.Warnf("key `%s.%s` not found", ns, key)
			failed = true
			continue
		}
		if err := policies.Apply(item, p); err != nil {
			return err
		}
	}
	if failed {
		return reportedFailure()
	}
	return nil
}

// list prints namespaces, or the keys of one namespace.
func (a *app) list(args []string) error {
	fs := newFlagSet("list", true)
	showValue := fs.BoolP("show-value", "v", false, "print KEY=VALUE")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return usageError()
	}

	if fs.NArg() == 0 {
		if *showValue {
			return usageError()
		}
		names, err := a.enumerator().ListNamespaces()
		if err != nil {
			return err
		}
		for _, name := range names {
			a.console.Println(name)
		}
		return nil
	}

	pairs, err := a.enumerator().ListValues(fs.Arg(0))
	if err != nil {
		return err
	}
	defer pairs.Destroy()
	if len(pairs) == 0 {
		return reportedFailure()
	}
	for _, p := range pairs {
		if *showValue {
			a.console.Printf("%s=%s\n", p.Key, p.Value.UnsafeString())
		} else {
			a.console.Println(p.Key)
		}
	}
	return nil
}

// unset deletes keys. Missing keys are reported and skipped.
func (a *app) unset(args []string) error {
	if len(args) < 2 {
		return usageError()
	}

	ns, keys := args[0], args[1:]
	failed := false
	for _, key := range keys {
		item, found, err := a.store.Find(ns, key)
		if err != nil {
			return err
		}
		if !found {
			a.console.Warnf("key `%s.%s` not found", ns, key)
			failed = true
			continue
		}
		if err := a.store.Delete(item); err != nil {
			return err
		}
	}
	if failed {
		return reportedFailure()
	}
	return nil
}

// exec runs CMD with the values of one or more namespaces. It returns only
// on failure.
func (a *app) exec(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	l := launch.New(a.enumerator(), a.launchOpts...)
	return l.Exec(args[0], args[1], args[2:])
}
