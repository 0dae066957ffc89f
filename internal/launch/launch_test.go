package launch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/secure"
	"github.com/benaskins/envchain/internal/store"
)

type fakeValues struct {
	values map[string]map[string]string
	issued []*secure.Secret
	err    error
}

func (f *fakeValues) ListValues(ns string) (store.Pairs, error) {
	if f.err != nil {
		return nil, f.err
	}
	var pairs store.Pairs
	for k, v := range f.values[ns] {
		s := secure.FromString(v)
		f.issued = append(f.issued, s)
		pairs = append(pairs, store.Pair{Key: k, Value: s})
	}
	return pairs, nil
}

type execCall struct {
	path string
	argv []string
	env  []string
}

func recorder(calls *[]execCall, err error) ExecFunc {
	return func(path string, argv, env []string) error {
		*calls = append(*calls, execCall{path: path, argv: argv, env: env})
		return err
	}
}

// binDir returns a directory containing an executable named name.
func binDir(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0755))
	return dir
}

func TestExecMergesNamespacesInOrder(t *testing.T) {
	t.Parallel()
	dir := binDir(t, "tool")
	values := &fakeValues{values: map[string]map[string]string{
		"a": {"SHARED": "from-a", "ONLY_A": "1"},
		"b": {"SHARED": "from-b"},
	}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"PATH=" + dir, "HOME=/home/me", "SHARED=base"} }),
		WithExec(recorder(&calls, errors.New("stop"))),
	)

	err := l.Exec("a,b", "tool", []string{"--flag", "arg"})
	require.Error(t, err)
	require.Len(t, calls, 1)

	got := calls[0]
	assert.Equal(t, filepath.Join(dir, "tool"), got.path)
	assert.Equal(t, []string{"tool", "--flag", "arg"}, got.argv)
	assert.Contains(t, got.env, "SHARED=from-b")
	assert.Contains(t, got.env, "ONLY_A=1")
	assert.Contains(t, got.env, "HOME=/home/me")
	assert.NotContains(t, got.env, "SHARED=from-a")
	assert.NotContains(t, got.env, "SHARED=base")
}

func TestExecKeepsSecretsOutOfArgv(t *testing.T) {
	t.Parallel()
	dir := binDir(t, "tool")
	values := &fakeValues{values: map[string]map[string]string{"aws": {"TOKEN": "hunter2"}}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"PATH=" + dir} }),
		WithExec(recorder(&calls, nil)),
	)

	require.NoError(t, l.Exec("aws", "tool", nil))
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"tool"}, calls[0].argv)
	assert.Contains(t, calls[0].env, "TOKEN=hunter2")
}

func TestExecUsesMergedPath(t *testing.T) {
	t.Parallel()
	dir := binDir(t, "only-here")
	values := &fakeValues{values: map[string]map[string]string{"tools": {"PATH": dir}}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"PATH=/nonexistent"} }),
		WithExec(recorder(&calls, nil)),
	)

	require.NoError(t, l.Exec("tools", "only-here", nil))
	assert.Equal(t, filepath.Join(dir, "only-here"), calls[0].path)
}

func TestExecFailureDestroysSecrets(t *testing.T) {
	t.Parallel()
	dir := binDir(t, "tool")
	values := &fakeValues{values: map[string]map[string]string{
		"a": {"K": "1"},
		"b": {"K": "2"},
	}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"PATH=" + dir} }),
		WithExec(recorder(&calls, errors.New("exec format error"))),
	)

	err := l.Exec("a,b", "tool", nil)
	assert.Equal(t, errs.KindLaunch, errs.KindOf(err))
	assert.Equal(t, errs.ExitFailure, errs.ExitCode(err))
	require.Len(t, values.issued, 2)
	for _, s := range values.issued {
		assert.False(t, s.Alive())
	}
}

func TestExecCommandNotFound(t *testing.T) {
	t.Parallel()
	values := &fakeValues{values: map[string]map[string]string{"aws": {"K": "v"}}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"PATH=" + t.TempDir()} }),
		WithExec(recorder(&calls, nil)),
	)

	err := l.Exec("aws", "no-such-command", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, errs.KindLaunch, errs.KindOf(err))
	assert.Empty(t, calls)
	assert.False(t, values.issued[0].Alive())
}

func TestExecListFailure(t *testing.T) {
	t.Parallel()
	values := &fakeValues{err: errs.Fatal("query keychain", errors.New("locked"))}
	l := New(values, WithExec(recorder(new([]execCall), nil)))

	err := l.Exec("aws", "true", nil)
	assert.True(t, errs.IsFatal(err))
}

func TestLookPath(t *testing.T) {
	t.Parallel()
	dir := binDir(t, "tool")
	noexec := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(noexec, "tool"), nil, 0644))

	got, err := lookPath("tool", noexec+string(filepath.ListSeparator)+dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tool"), got)

	_, err = lookPath("tool", noexec)
	assert.Error(t, err)

	abs := filepath.Join(dir, "tool")
	got, err = lookPath(abs, "")
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	_, err = lookPath("", dir)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecWithoutPathUsesDefaultPath(t *testing.T) {
	t.Parallel()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	values := &fakeValues{values: map[string]map[string]string{"aws": {"K": "v"}}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"HOME=/home/me"} }),
		WithExec(recorder(&calls, nil)),
	)

	require.NoError(t, l.Exec("aws", "sh", []string{"-c", "true"}))
	require.Len(t, calls, 1)
	assert.Equal(t, "sh", filepath.Base(calls[0].path))
	assert.True(t, filepath.IsAbs(calls[0].path))
}

func TestExecWithEmptyPathDoesNotUseDefault(t *testing.T) {
	t.Parallel()
	values := &fakeValues{values: map[string]map[string]string{"aws": {"K": "v"}}}
	var calls []execCall
	l := New(values,
		WithEnviron(func() []string { return []string{"PATH="} }),
		WithExec(recorder(&calls, nil)),
	)

	err := l.Exec("aws", "definitely-not-a-command", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, calls)
}
