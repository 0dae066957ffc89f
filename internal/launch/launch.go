// Package launch replaces the envchain process with a command whose
// environment carries the secrets of one or more namespaces.
package launch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/secure"
	"github.com/benaskins/envchain/internal/store"
)

// ErrNotFound is returned when the command is not found on PATH.
var ErrNotFound = errors.New("executable file not found in $PATH")

// defaultPath is searched when the environment has no PATH, as execvp does.
const defaultPath = "/usr/bin:/bin:/usr/sbin:/sbin"

// ValuesLister lists the decrypted values of a namespace.
type ValuesLister interface {
	ListValues(ns string) (store.Pairs, error)
}

// ExecFunc replaces the current process image. It returns only on failure.
type ExecFunc func(path string, argv []string, env []string) error

// Launcher builds the child environment and execs the command.
type Launcher struct {
	values  ValuesLister
	environ func() []string
	exec    ExecFunc
	logger  *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithEnviron sets the base environment source. The default is os.Environ.
func WithEnviron(f func() []string) Option {
	return func(l *Launcher) { l.environ = f }
}

// WithExec sets the process replacement function. The default is unix.Exec.
func WithExec(f ExecFunc) Option {
	return func(l *Launcher) { l.exec = f }
}

// New creates a Launcher reading namespace values from values.
func New(values ValuesLister, opts ...Option) *Launcher {
	l := &Launcher{
		values:  values,
		environ: os.Environ,
		exec:    unix.Exec,
		logger:  slog.With("component", "launch"),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Exec overlays the values of every namespace in spec ("a" or "a,b") onto
// the current environment, later namespaces winning, and replaces the
// process with exe. It returns only on failure, after every secret has been
// destroyed.
func (l *Launcher) Exec(spec, exe string, args []string) error {
	env := newEnviron(l.environ())
	defer env.destroy()

	for _, ns := range store.SplitNamespaces(spec) {
		pairs, err := l.values.ListValues(ns)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			env.setSecret(p.Key, p.Value)
		}
	}

	search, ok := env.lookup("PATH")
	if !ok {
		search = defaultPath
	}
	path, err := lookPath(exe, search)
	if err != nil {
		return errs.Launch(err)
	}

	argv := append([]string{exe}, args...)
	l.logger.Debug("exec", "path", path, "namespaces", spec)
	if err := l.exec(path, argv, env.list()); err != nil {
		return errs.Launch(fmt.Errorf("%s: %w", exe, err))
	}
	return nil
}

// environ is an ordered environment whose secret entries live in locked
// buffers until the final list is built.
type environ struct {
	keys    []string
	plain   map[string]string
	secrets map[string]*secure.Secret
}

func newEnviron(base []string) *environ {
	e := &environ{
		plain:   make(map[string]string, len(base)),
		secrets: make(map[string]*secure.Secret),
	}
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		e.add(k)
		e.plain[k] = v
	}
	return e
}

func (e *environ) add(k string) {
	_, plain := e.plain[k]
	_, secret := e.secrets[k]
	if !plain && !secret {
		e.keys = append(e.keys, k)
	}
}

func (e *environ) setSecret(k string, v *secure.Secret) {
	e.add(k)
	delete(e.plain, k)
	if old, ok := e.secrets[k]; ok {
		old.Destroy()
	}
	e.secrets[k] = v
}

func (e *environ) get(k string) string {
	v, _ := e.lookup(k)
	return v
}

func (e *environ) lookup(k string) (string, bool) {
	if s, ok := e.secrets[k]; ok {
		return s.UnsafeString(), true
	}
	v, ok := e.plain[k]
	return v, ok
}

func (e *environ) list() []string {
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, k+"="+e.get(k))
	}
	return out
}

func (e *environ) destroy() {
	for _, s := range e.secrets {
		s.Destroy()
	}
}

// lookPath resolves file the way execvp does, searching path (a PATH value)
// when file has no slash. An empty PATH element means the current directory.
func lookPath(file, path string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("%q: %w", file, ErrNotFound)
	}
	if strings.Contains(file, "/") {
		if err := findExecutable(file); err != nil {
			return "", fmt.Errorf("%s: %w", file, err)
		}
		return file, nil
	}

	var denied error
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		err := findExecutable(candidate)
		if err == nil {
			return candidate, nil
		}
		if errors.Is(err, fs.ErrPermission) && denied == nil {
			denied = fmt.Errorf("%s: %w", candidate, err)
		}
	}
	if denied != nil {
		return "", denied
	}
	return "", fmt.Errorf("%s: %w", file, ErrNotFound)
}

func findExecutable(file string) error {
	fi, err := os.Stat(file)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fs.ErrPermission
	}
	if fi.Mode()&0111 == 0 {
		return fs.ErrPermission
	}
	return nil
}
