// Package testutil provides shared test helpers for setting up family trees
// and index databases.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/kinship/internal/familytree"
	"github.com/starford/kinship/internal/index"
	"github.com/starford/kinship/internal/storage"
)

// FamilyFile is the file name used for trees created by TestTree.
const FamilyFile = "family_tree.csv"

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite index that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "kinship-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestTree creates an empty, loaded tree backed by a temporary directory.
func TestTree(t *testing.T) (*familytree.Tree, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tree := familytree.New(store, FamilyFile, Logger())
	tree.Load()
	return tree, store
}
