package testsupport

import (
	"testing"

	"highlighter/internal/config"
	"highlighter/internal/ledger"
)

// MustOpenLedger opens the SQLite ledger under the config's state dir for
// tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
