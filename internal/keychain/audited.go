package keychain

import (
	"github.com/benaskins/envchain/internal/audit"
)

// AuditedService wraps a Service and records every secret access to an
// audit log.
type AuditedService struct {
	inner Service
	audit *audit.Logger
	actor string
	path  string
}

// NewAuditedService wraps inner with audit logging.
func NewAuditedService(inner Service, auditLog *audit.Logger, actor string) *AuditedService {
	return &AuditedService{
		inner: inner,
		audit: auditLog,
		actor: actor,
	}
}

// record appends an entry. Audit logging is best-effort: a failure to log
// never blocks the operation.
func (s *AuditedService) record(action audit.Action, item Item, err error) {
	e := audit.Entry{
		Action:   action,
		Service:  item.Service,
		Key:      item.Account,
		Keychain: s.path,
		Actor:    s.actor,
	}
	if err != nil {
		e.Error = err.Error()
	}
	_ = s.audit.Log(e)
}

func (s *AuditedService) Open(path string) error {
	if err := s.inner.Open(path); err != nil {
		return err
	}
	s.path = path
	return nil
}

func (s *AuditedService) Close() error {
	s.path = ""
	return s.inner.Close()
}

func (s *AuditedService) Find(service, account string) (Item, error) {
	return s.inner.Find(service, account)
}

func (s *AuditedService) Add(item Item, data []byte) error {
	err := s.inner.Add(item, data)
	s.record(audit.ActionSecretWrite, item, err)
	return err
}

func (s *AuditedService) Update(item Item, data []byte) error {
	err := s.inner.Update(item, data)
	s.record(audit.ActionSecretWrite, item, err)
	return err
}

func (s *AuditedService) Delete(item Item) error {
	err := s.inner.Delete(item)
	s.record(audit.ActionSecretDelete, item, err)
	return err
}

func (s *AuditedService) Query(q Query) ([]Item, error) {
	return s.inner.Query(q)
}

func (s *AuditedService) Data(item Item) ([]byte, error) {
	data, err := s.inner.Data(item)
	s.record(audit.ActionSecretRead, item, err)
	return data, err
}

func (s *AuditedService) CopyAccess(item Item) (*Access, error) {
	return s.inner.CopyAccess(item)
}

func (s *AuditedService) SetAccess(item Item, access *Access) error {
	err := s.inner.SetAccess(item, access)
	s.record(audit.ActionAccessChange, item, err)
	return err
}
