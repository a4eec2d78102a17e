package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jacentio/trove/memory"
	"github.com/jacentio/trove/store"
)

// --- Test Entity Types ---

// Customer is a registered entity.
type Customer struct {
	store.Entity `bson:",inline"`
	Name         string `json:"name" dynamodbav:"name" bson:"name"`
	Tier         string `json:"tier" dynamodbav:"tier" bson:"tier"`
}

// Invoice is an entity bound to its own collection.
type Invoice struct {
	store.Entity `bson:",inline"`
	CustomerID   string `json:"customer_id" dynamodbav:"customer_id" bson:"customer_id"`
	Amount       int64  `json:"amount" dynamodbav:"amount" bson:"amount"`
}

// Orphan is never registered.
type Orphan struct {
	store.Entity
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() store.Config {
	cfg := store.DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	return cfg
}

// newTestRepo creates a Customer repository over a fresh in-memory backend.
func newTestRepo(t *testing.T) (*store.Repository[*Customer], *memory.Backend) {
	t.Helper()
	backend := memory.New(nil)
	reg := store.NewRegistry()
	store.MustRegister[*Customer](reg, "customers")
	store.MustRegister[*Invoice](reg, "invoices")

	repo, err := store.New[*Customer](backend, reg, testConfig())
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo, backend
}

// mustAdd adds c and fails the test on error.
func mustAdd(t *testing.T, repo *store.Repository[*Customer], c *Customer) *Customer {
	t.Helper()
	if err := repo.Add(context.Background(), c); err != nil {
		t.Fatalf("unexpected error adding %q: %v", c.Name, err)
	}
	return c
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
