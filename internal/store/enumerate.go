package store

import (
	"cmp"
	"slices"

	"github.com/benaskins/envchain/internal/secure"
)

// Pair is a key and its decrypted value.
type Pair struct {
	Key   string
	Value *secure.Secret
}

// Pairs is the result of ListValues.
type Pairs []Pair

// Destroy wipes every value.
func (p Pairs) Destroy() {
	for _, pair := range p {
		pair.Value.Destroy()
	}
}

// Warner reports soft failures to the user.
type Warner interface {
	Warnf(format string, args ...any)
}

// Enumerator lists namespaces and values of a Store.
type Enumerator struct {
	store   *Store
	warn    Warner
	program string
}

// NewEnumerator creates an Enumerator. program is the command name used in
// hints.
func NewEnumerator(s *Store, warn Warner, program string) *Enumerator {
	return &Enumerator{store: s, warn: warn, program: program}
}

// ListNamespaces returns the sorted, de-duplicated namespaces of every
// envchain item. No items yields an empty result.
func (e *Enumerator) ListNamespaces() ([]string, error) {
	var names []string
	for rec, err := range e.store.Scan(TaggedItems()) {
		if err != nil {
			return nil, err
		}
		names = append(names, rec.Namespace)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// ListValues returns the keys and values of namespace ns, sorted by key. An
// undefined namespace is a soft failure: a warning is written and the result
// is empty. The caller owns the returned values.
func (e *Enumerator) ListValues(ns string) (Pairs, error) {
	var pairs Pairs
	for rec, err := range e.store.Scan(InNamespace(ns)) {
		if err != nil {
			pairs.Destroy()
			return nil, err
		}
		pairs = append(pairs, Pair{Key: rec.Key, Value: rec.Value})
	}

	if len(pairs) == 0 {
		e.warn.Warnf("namespace `%s` not defined.\n"+
			"         You can set via running `%s --set %s SOME_ENV_NAME`.\n",
			ns, e.program, ns)
		return nil, nil
	}

	slices.SortFunc(pairs, func(a, b Pair) int { return cmp.Compare(a.Key, b.Key) })
	return pairs, nil
}
