// Package keychain is envchain's binding to the secure credential service.
//
// Secrets are stored as generic passwords with:
//   - Service: the encoded namespace (e.g. "envchain-aws")
//   - Account: the key, i.e. the environment variable name
//   - Description: a fixed tag marking the item as envchain's
//
// On macOS the service is the Keychain (SystemService). MemoryService is a
// faithful in-process stand-in used by unit tests.
package keychain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an item does not exist in the selected keychain.
var ErrNotFound = errors.New("item not found")

// ErrDuplicate is returned by Add when the item already exists.
var ErrDuplicate = errors.New("item already exists")

// ErrUnsupported is returned on platforms without a Keychain.
var ErrUnsupported = errors.New("keychain is only supported on macOS")

// Item identifies a generic password by its service and account attributes.
type Item struct {
	Service     string
	Account     string
	Label       string
	Description string
}

func (i Item) String() string {
	return i.Service + "/" + i.Account
}

// Query selects items. Empty fields match anything.
type Query struct {
	Service     string
	Description string
}

// Matches reports whether item satisfies q.
func (q Query) Matches(item Item) bool {
	if q.Service != "" && item.Service != q.Service {
		return false
	}
	if q.Description != "" && item.Description != q.Description {
		return false
	}
	return true
}

// Service is the secure credential service. Every call is synchronous and
// reflects the service's state at call time.
type Service interface {
	// Open selects the keychain used by later calls. An empty path selects
	// the default search list. Opening releases the previous selection.
	Open(path string) error
	// Close releases the selected keychain.
	Close() error

	// Find returns the item's attributes, or ErrNotFound.
	Find(service, account string) (Item, error)
	// Add creates item holding data, or returns ErrDuplicate.
	Add(item Item, data []byte) error
	// Update replaces the data of an existing item and rewrites its
	// description.
	Update(item Item, data []byte) error
	// Delete removes the item, or returns ErrNotFound.
	Delete(item Item) error
	// Query returns the attributes of every matching item.
	Query(q Query) ([]Item, error)
	// Data returns the decrypted payload of item. The caller owns the slice
	// and is responsible for wiping it.
	Data(item Item) ([]byte, error)

	// CopyAccess reads the item's access rules.
	CopyAccess(item Item) (*Access, error)
	// SetAccess writes back every rule of access marked modified.
	SetAccess(item Item, access *Access) error
}

// StatusError is a non-success OSStatus returned by Security.framework.
type StatusError struct {
	Op      string
	Status  int32
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: OSStatus %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s (OSStatus %d)", e.Op, e.Message, e.Status)
}
