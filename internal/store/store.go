// Package store implements envchain's secret store on top of a keychain
// service: namespace-scoped items, a lazy query sequence, and enumeration of
// namespaces and their values.
package store

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/benaskins/envchain/internal/errs"
	"github.com/benaskins/envchain/internal/keychain"
	"github.com/benaskins/envchain/internal/secure"
)

var errScanReused = errors.New("scan already consumed")

// Store is the selected keychain of one envchain invocation. It is passed
// explicitly to every component instead of living in a package global.
type Store struct {
	svc    keychain.Service
	path   string
	open   bool
	logger *slog.Logger
}

// New creates a Store over svc. Call Open before any other method.
func New(svc keychain.Service) *Store {
	return &Store{
		svc:    svc,
		logger: slog.With("component", "store"),
	}
}

// Service returns the underlying credential service.
func (s *Store) Service() keychain.Service {
	return s.svc
}

// Path returns the selected keychain path, "" for the default search list.
func (s *Store) Path() string {
	return s.path
}

// Open selects the keychain at path, releasing any previous selection. An
// empty path selects the default search list. Failure is fatal.
func (s *Store) Open(path string) error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := s.svc.Open(path); err != nil {
		return errs.Fatal("failed to open keychain", err)
	}
	s.path = path
	s.open = true
	s.logger.Debug("selected keychain", "path", path)
	return nil
}

// Close releases the selected keychain. It is safe to call more than once.
func (s *Store) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	s.path = ""
	if err := s.svc.Close(); err != nil {
		return errs.Fatal("failed to release keychain", err)
	}
	return nil
}

// Find looks up the item for (ns, key). A missing item is not an error.
func (s *Store) Find(ns, key string) (keychain.Item, bool, error) {
	item, err := s.svc.Find(Encode(ns), key)
	if errors.Is(err, keychain.ErrNotFound) {
		return keychain.Item{}, false, nil
	}
	if err != nil {
		return keychain.Item{}, false, errs.Fatal("find "+ns+"."+key, err)
	}
	return item, true, nil
}

// Upsert stores value under (ns, key), creating the item if needed and
// re-asserting the envchain description otherwise.
func (s *Store) Upsert(ns, key string, value *secure.Secret) (keychain.Item, error) {
	item, found, err := s.Find(ns, key)
	if err != nil {
		return keychain.Item{}, err
	}
	item.Service = Encode(ns)
	item.Account = key
	item.Description = Description

	if !found {
		item.Label = item.Service
		if err := s.svc.Add(item, value.Bytes()); err != nil {
			return keychain.Item{}, errs.Fatal("add "+ns+"."+key, err)
		}
		s.logger.Debug("created item", "namespace", ns, "key", key)
		return item, nil
	}

	if err := s.svc.Update(item, value.Bytes()); err != nil {
		return keychain.Item{}, errs.Fatal("update "+ns+"."+key, err)
	}
	s.logger.Debug("updated item", "namespace", ns, "key", key)
	return item, nil
}

// Delete removes item. An item that no longer exists is not an error.
func (s *Store) Delete(item keychain.Item) error {
	err := s.svc.Delete(item)
	if err == nil || errors.Is(err, keychain.ErrNotFound) {
		return nil
	}
	return errs.Fatal("delete "+item.String(), err)
}

// Filter selects the records a Scan yields.
type Filter struct {
	query     keychain.Query
	withValue bool
}

// TaggedItems selects every item carrying the envchain description.
func TaggedItems() Filter {
	return Filter{query: keychain.Query{Description: Description}}
}

// InNamespace selects the items of namespace ns, decrypting their values.
func InNamespace(ns string) Filter {
	return Filter{query: keychain.Query{Service: Encode(ns)}, withValue: true}
}

// Record is one scanned item.
type Record struct {
	Namespace string
	Key       string
	// Value is set for InNamespace scans. The consumer owns it and must
	// Destroy it.
	Value *secure.Secret
}

// Scan queries the keychain and yields matching records lazily. The sequence
// is single-use; ranging over it twice yields an error. Any error from the
// service is fatal and ends the sequence.
func (s *Store) Scan(f Filter) iter.Seq2[Record, error] {
	used := false
	return func(yield func(Record, error) bool) {
		if used {
			yield(Record{}, errScanReused)
			return
		}
		used = true

		items, err := s.svc.Query(f.query)
		if err != nil {
			yield(Record{}, errs.Fatal("query keychain", err))
			return
		}

		for _, item := range items {
			ns, ok := Decode(item.Service)
			if !ok {
				s.logger.Debug("skipping item without envchain prefix", "service", item.Service)
				continue
			}
			rec := Record{Namespace: ns, Key: item.Account}

			if f.withValue {
				data, err := s.svc.Data(item)
				if errors.Is(err, keychain.ErrNotFound) {
					continue
				}
				if err != nil {
					yield(Record{}, errs.Fatal(fmt.Sprintf("read %s.%s", ns, item.Account), err))
					return
				}
				rec.Value = secure.New(data)
			}

			if !yield(rec, nil) {
				return
			}
		}
	}
}
