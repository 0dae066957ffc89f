package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benaskins/envchain/internal/audit"
	"github.com/benaskins/envchain/internal/config"
	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/keychain"
	"github.com/benaskins/envchain/internal/launch"
	"github.com/benaskins/envchain/internal/policy"
	"github.com/benaskins/envchain/internal/prompt"
	"github.com/benaskins/envchain/internal/store"
	"github.com/benaskins/envchain/internal/ui"
)

var (
	// errShowUsage makes report print the usage text instead of a message.
	errShowUsage = errors.New("invalid arguments")
	// errReported marks failures the user was already told about.
	errReported = errors.New("already reported")
)

// app is one envchain invocation. Its collaborators are fields so tests can
// swap the Keychain, the terminal and process replacement.
type app struct {
	program    string
	console    *ui.Console
	prompter   *prompt.Prompter
	lookupEnv  func(string) (string, bool)
	configPath string
	level      *slog.LevelVar
	newService func() keychain.Service
	identities policy.IdentityFunc
	launchOpts []launch.Option

	root  *cobra.Command
	store *store.Store
}

func usageError() error {
	return &errs.Error{Kind: errs.KindUsage, Err: errShowUsage}
}

func reportedFailure() error {
	return &errs.Error{Kind: errs.KindNotFound, Err: errReported}
}

func (a *app) run(args []string) error {
	if len(args) == 0 {
		return usageError()
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := a.configureLogging(cfg); err != nil {
		return err
	}

	g, rest, err := parseGlobals(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usageError()
	}
	switch rest[0] {
	case "--help", "-h":
		return a.root.Help()
	case "--version":
		fmt.Fprintf(a.root.OutOrStdout(), "%s version %s\n", a.root.Name(), a.root.Version)
		return nil
	}

	svc := a.newService()
	if cfg.AuditLog != "" {
		auditLog, err := audit.NewLogger(cfg.AuditLog)
		if err != nil {
			slog.Warn("audit log disabled", "path", cfg.AuditLog, "error", err)
		} else {
			defer auditLog.Close()
			svc = keychain.NewAuditedService(svc, auditLog, a.actor())
		}
	}

	a.store = store.New(svc)
	if err := a.store.Open(g.keychainPath(a.lookupEnv, cfg, rest)); err != nil {
		return err
	}
	defer a.store.Close()

	return a.dispatch(rest)
}

func (a *app) dispatch(args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "--set", "-s":
		return a.set(rest)
	case "--set-access":
		return a.setAccess(rest)
	case "--list", "-l":
		return a.list(rest)
	case "--unset":
		return a.unset(rest)
	}
	if strings.HasPrefix(cmd, "-") {
		return errs.Usagef("Unknown option %s", cmd)
	}
	return a.exec(args)
}

func (a *app) configureLogging(cfg *config.Config) error {
	name := a.getenv(logLevelEnv)
	if name == "" {
		name = cfg.LogLevel
	}
	level, err := config.Level(name, slog.LevelWarn)
	if err != nil {
		return errs.Usagef("%v", err)
	}
	if a.level != nil {
		a.level.Set(level)
	}
	return nil
}

func (a *app) getenv(k string) string {
	v, _ := a.lookupEnv(k)
	return v
}

func (a *app) actor() string {
	if u := a.getenv("USER"); u != "" {
		return u
	}
	return a.program
}

// report prints err and returns the exit code for it.
func (a *app) report(err error) int {
	switch {
	case err == nil:
	case errors.Is(err, errShowUsage):
		a.printUsage(a.console.Err)
	case errors.Is(err, errReported):
	default:
		a.console.Errorf("%v", err)
	}
	return errs.ExitCode(err)
}
