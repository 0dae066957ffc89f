//go:build darwin && integration

package keychain

import (
	"errors"
	"testing"
)

// Integration tests use the real macOS Keychain.
// Run with: go test -tags integration ./internal/keychain/
//
// Requires an unlocked login Keychain and an interactive session
// (first run may prompt for Keychain access approval).

const integrationService = "envchain-envchain-integration-test"

func integrationItem(account string) Item {
	return Item{
		Service:     integrationService,
		Account:     account,
		Label:       integrationService,
		Description: "envchain",
	}
}

func cleanupIntegration(t *testing.T, s *SystemService, accounts ...string) {
	t.Helper()
	for _, a := range accounts {
		s.Delete(integrationItem(a))
	}
}

func TestKeychainAddAndData(t *testing.T) {
	s := NewSystemService()
	defer cleanupIntegration(t, s, "SET_GET")

	if err := s.Add(integrationItem("SET_GET"), []byte("hello-keychain")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	val, err := s.Data(integrationItem("SET_GET"))
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(val) != "hello-keychain" {
		t.Errorf("expected 'hello-keychain', got %q", val)
	}
}

func TestKeychainUpdate(t *testing.T) {
	s := NewSystemService()
	defer cleanupIntegration(t, s, "OVERWRITE")

	s.Add(integrationItem("OVERWRITE"), []byte("first"))
	if err := s.Update(integrationItem("OVERWRITE"), []byte("second")); err != nil {
		t.Fatalf("Update: %v", err)
	}

	val, err := s.Data(integrationItem("OVERWRITE"))
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(val) != "second" {
		t.Errorf("expected 'second', got %q", val)
	}
}

func TestKeychainDelete(t *testing.T) {
	s := NewSystemService()

	s.Add(integrationItem("DELETE"), []byte("to-delete"))
	s.Delete(integrationItem("DELETE"))

	if _, err := s.Find(integrationService, "DELETE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeychainQuery(t *testing.T) {
	s := NewSystemService()
	accounts := []string{"LIST_A", "LIST_B"}
	defer cleanupIntegration(t, s, accounts...)

	for _, a := range accounts {
		s.Add(integrationItem(a), []byte("val"))
	}

	items, err := s.Query(Query{Service: integrationService})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	found := make(map[string]bool)
	for _, it := range items {
		found[it.Account] = true
	}
	for _, a := range accounts {
		if !found[a] {
			t.Errorf("expected %q in query result, not found", a)
		}
	}
}

func TestKeychainCopyAccess(t *testing.T) {
	s := NewSystemService()
	defer cleanupIntegration(t, s, "ACL")

	s.Add(integrationItem("ACL"), []byte("val"))

	access, err := s.CopyAccess(integrationItem("ACL"))
	if err != nil {
		t.Fatalf("CopyAccess: %v", err)
	}
	if len(access.Matching(AuthorizationDecrypt)) == 0 {
		t.Error("expected a decrypt rule on a new item")
	}
}

func TestKeychainOpenMissing(t *testing.T) {
	s := NewSystemService()
	if err := s.Open(t.TempDir() + "/missing.keychain-db"); err == nil {
		t.Error("expected error opening a missing keychain")
	}
}
