//go:build darwin

package keychain

import (
	"errors"
	"fmt"
	"log/slog"

	gokeychain "github.com/keybase/go-keychain"
)

// SystemService provides item operations against the macOS Keychain.
//
// Items are created in file-based keychains, which are the only ones that
// carry per-item access control lists. Accessibility and synchronization
// attributes belong to the data protection keychain and are left unset.
type SystemService struct {
	path   string
	kc     gokeychain.Keychain
	legacy *legacyKeychain
	logger *slog.Logger
}

// NewSystemService creates a Keychain-backed service using the default
// search list until Open selects a keychain.
func NewSystemService() *SystemService {
	return &SystemService{
		legacy: &legacyKeychain{},
		logger: slog.With("component", "keychain"),
	}
}

func (s *SystemService) Open(path string) error {
	if err := s.Close(); err != nil {
		return err
	}
	if path == "" {
		s.logger.Debug("using default keychain search list")
		return nil
	}

	kc := gokeychain.NewWithPath(path)
	if err := kc.Status(); err != nil {
		return fmt.Errorf("open keychain %q: %w", path, err)
	}
	legacy, err := openLegacy(path)
	if err != nil {
		return fmt.Errorf("open keychain %q: %w", path, err)
	}

	s.path = path
	s.kc = kc
	s.legacy = legacy
	s.logger.Debug("opened keychain", "path", path)
	return nil
}

func (s *SystemService) Close() error {
	s.legacy.release()
	s.legacy = &legacyKeychain{}
	s.path = ""
	s.kc = gokeychain.Keychain{}
	return nil
}

// scope restricts a query to the selected keychain, if any.
func (s *SystemService) scope(q *gokeychain.Item) {
	if s.path != "" {
		q.SetMatchSearchList(s.kc)
	}
}

func (s *SystemService) itemQuery(service, account string) gokeychain.Item {
	q := gokeychain.NewItem()
	q.SetSecClass(gokeychain.SecClassGenericPassword)
	q.SetService(service)
	q.SetAccount(account)
	s.scope(&q)
	return q
}

func (s *SystemService) Find(service, account string) (Item, error) {
	q := s.itemQuery(service, account)
	q.SetMatchLimit(gokeychain.MatchLimitOne)
	q.SetReturnAttributes(true)

	results, err := gokeychain.QueryItem(q)
	if err != nil && !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return Item{}, fmt.Errorf("keychain find %s/%s: %w", service, account, err)
	}
	if len(results) == 0 {
		return Item{}, fmt.Errorf("%w: %s/%s", ErrNotFound, service, account)
	}
	return fromResult(results[0]), nil
}

func (s *SystemService) Add(item Item, data []byte) error {
	add := gokeychain.NewGenericPassword(item.Service, item.Account, item.Label, data, "")
	add.SetDescription(item.Description)
	if s.path != "" {
		add.UseKeychain(s.kc)
	}

	if err := gokeychain.AddItem(add); err != nil {
		if errors.Is(err, gokeychain.ErrorDuplicateItem) {
			return fmt.Errorf("%w: %s", ErrDuplicate, item)
		}
		return fmt.Errorf("keychain add %s: %w", item, err)
	}
	return nil
}

func (s *SystemService) Update(item Item, data []byte) error {
	update := gokeychain.NewItem()
	update.SetData(data)
	update.SetDescription(item.Description)

	if err := gokeychain.UpdateItem(s.itemQuery(item.Service, item.Account), update); err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, item)
		}
		return fmt.Errorf("keychain update %s: %w", item, err)
	}
	return nil
}

func (s *SystemService) Delete(item Item) error {
	if err := gokeychain.DeleteItem(s.itemQuery(item.Service, item.Account)); err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, item)
		}
		return fmt.Errorf("keychain delete %s: %w", item, err)
	}
	return nil
}

// Query returns attributes only. macOS rejects returning data together with
// kSecMatchLimitAll, so payloads are fetched one item at a time by Data.
func (s *SystemService) Query(q Query) ([]Item, error) {
	query := gokeychain.NewItem()
	query.SetSecClass(gokeychain.SecClassGenericPassword)
	if q.Service != "" {
		query.SetService(q.Service)
	}
	if q.Description != "" {
		query.SetDescription(q.Description)
	}
	query.SetMatchLimit(gokeychain.MatchLimitAll)
	query.SetReturnAttributes(true)
	s.scope(&query)

	results, err := gokeychain.QueryItem(query)
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain query: %w", err)
	}

	items := make([]Item, 0, len(results))
	for _, r := range results {
		items = append(items, fromResult(r))
	}
	return items, nil
}

func (s *SystemService) Data(item Item) ([]byte, error) {
	q := s.itemQuery(item.Service, item.Account)
	q.SetMatchLimit(gokeychain.MatchLimitOne)
	q.SetReturnData(true)

	results, err := gokeychain.QueryItem(q)
	if err != nil && !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return nil, fmt.Errorf("keychain read %s: %w", item, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	return results[0].Data, nil
}

func fromResult(r gokeychain.QueryResult) Item {
	return Item{
		Service:     r.Service,
		Account:     r.Account,
		Label:       r.Label,
		Description: r.Description,
	}
}
