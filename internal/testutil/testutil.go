// Package testutil provides shared test helpers for setting up vaults and
// indexes.
package testutil

import (
	"testing"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// TestIndex creates an empty in-memory index.
func TestIndex(t *testing.T) *index.Index {
	t.Helper()
	return index.New()
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
