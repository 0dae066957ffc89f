package keychain

import (
	"fmt"
	"slices"
	"sync"
)

// MemoryService is an in-memory implementation of Service for testing.
// Each opened path is a separate keychain; "" is the default search list.
type MemoryService struct {
	mu        sync.RWMutex
	keychains map[string]map[string]*memoryItem
	current   string
	opened    []string
	closed    int
	failures  map[string]error
}

type memoryItem struct {
	item   Item
	data   []byte
	access *Access
}

// NewMemoryService creates an empty in-memory credential service.
func NewMemoryService() *MemoryService {
	return &MemoryService{
		keychains: map[string]map[string]*memoryItem{"": {}},
		failures:  make(map[string]error),
	}
}

// FailOn makes every later call of op ("Open", "Find", "Add", "Update",
// "Delete", "Query", "Data", "CopyAccess", "SetAccess") return err.
func (s *MemoryService) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Opened returns every path passed to Open, in order.
func (s *MemoryService) Opened() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.opened)
}

// Path returns the currently selected keychain path.
func (s *MemoryService) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Closed returns how many times Close was called.
func (s *MemoryService) Closed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *MemoryService) fail(op string) error {
	return s.failures[op]
}

func itemKey(service, account string) string {
	return service + "\x00" + account
}

func (s *MemoryService) items() map[string]*memoryItem {
	kc, ok := s.keychains[s.current]
	if !ok {
		kc = make(map[string]*memoryItem)
		s.keychains[s.current] = kc
	}
	return kc
}

func (s *MemoryService) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Open"); err != nil {
		return fmt.Errorf("open keychain %q: %w", path, err)
	}
	s.opened = append(s.opened, path)
	s.current = path
	return nil
}

func (s *MemoryService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	s.current = ""
	return nil
}

func (s *MemoryService) Find(service, account string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("Find"); err != nil {
		return Item{}, err
	}
	it, ok := s.keychains[s.current][itemKey(service, account)]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s/%s", ErrNotFound, service, account)
	}
	return it.item, nil
}

func (s *MemoryService) Add(item Item, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Add"); err != nil {
		return err
	}
	items := s.items()
	key := itemKey(item.Service, item.Account)
	if _, ok := items[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, item)
	}
	items[key] = &memoryItem{
		item:   item,
		data:   slices.Clone(data),
		access: defaultAccess(),
	}
	return nil
}

func (s *MemoryService) Update(item Item, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Update"); err != nil {
		return err
	}
	it, ok := s.items()[itemKey(item.Service, item.Account)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	clear(it.data)
	it.data = slices.Clone(data)
	it.item.Description = item.Description
	return nil
}

func (s *MemoryService) Delete(item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Delete"); err != nil {
		return err
	}
	items := s.items()
	key := itemKey(item.Service, item.Account)
	it, ok := items[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	clear(it.data)
	delete(items, key)
	return nil
}

func (s *MemoryService) Query(q Query) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("Query"); err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range s.keychains[s.current] {
		if q.Matches(it.item) {
			out = append(out, it.item)
		}
	}
	return out, nil
}

func (s *MemoryService) Data(item Item) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("Data"); err != nil {
		return nil, err
	}
	it, ok := s.keychains[s.current][itemKey(item.Service, item.Account)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	return slices.Clone(it.data), nil
}

func (s *MemoryService) CopyAccess(item Item) (*Access, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("CopyAccess"); err != nil {
		return nil, err
	}
	it, ok := s.keychains[s.current][itemKey(item.Service, item.Account)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	return it.access.clone(), nil
}

func (s *MemoryService) SetAccess(item Item, access *Access) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetAccess"); err != nil {
		return err
	}
	it, ok := s.items()[itemKey(item.Service, item.Account)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	for _, r := range access.Rules {
		if !r.modified {
			continue
		}
		if r.index < 0 || r.index >= len(it.access.Rules) {
			return fmt.Errorf("access rule %d of %s no longer exists", r.index, item)
		}
		dst := it.access.Rules[r.index]
		dst.TrustedApps = slices.Clone(r.TrustedApps)
		dst.Prompt = r.Prompt
	}
	return nil
}

// SetRules replaces the stored access rules of an item. Tests use it to model
// items whose rules were edited outside envchain.
func (s *MemoryService) SetRules(item Item, rules ...*Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items()[itemKey(item.Service, item.Account)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, item)
	}
	it.access = (&Access{Rules: rules}).clone()
	return nil
}

// defaultAccess mirrors the rules the Keychain gives a new generic password:
// anyone may encrypt, the creating application may decrypt, and changing the
// rules prompts.
func defaultAccess() *Access {
	return &Access{Rules: []*Rule{
		{Authorizations: []Authorization{AuthorizationEncrypt}, index: 0},
		{Authorizations: []Authorization{AuthorizationDecrypt}, TrustedApps: []string{"creator"}, index: 1},
		{Authorizations: []Authorization{AuthorizationChangeACL}, TrustedApps: []string{}, Prompt: PromptEnabled, index: 2},
	}}
}
