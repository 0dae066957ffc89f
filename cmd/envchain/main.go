package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/benaskins/envchain/internal/config"
	"github.com/benaskins/envchain/internal/keychain"
	"github.com/benaskins/envchain/internal/prompt"
	"github.com/benaskins/envchain/internal/ui"
)

var version = "dev"

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     a.program,
		Short:   "Set environment variables from macOS Keychain",
		Version: version,
		// envchain's grammar is positional: global options, then one command
		// token, then that command's own options. The app parses it.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(args)
		},
	}
	cmd.SetOut(a.console.Out)
	cmd.SetErr(a.console.Err)
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		a.printUsage(c.OutOrStdout())
	})
	a.root = cmd
	return cmd
}

func main() {
	memguard.CatchInterrupt()

	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	program := filepath.Base(os.Args[0])
	a := &app{
		program:    program,
		console:    ui.NewConsole(os.Stdout, os.Stderr, program),
		prompter:   prompt.New(os.Stdin, os.Stdout),
		lookupEnv:  os.LookupEnv,
		configPath: config.DefaultPath(),
		level:      level,
		newService: func() keychain.Service { return keychain.NewSystemService() },
	}

	cmd := newRootCmd(a)
	cmd.SetArgs(os.Args[1:])
	memguard.SafeExit(a.report(cmd.Execute()))
}
