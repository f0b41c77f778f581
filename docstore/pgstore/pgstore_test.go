package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/ereiarrus/complementsbot/docstore"
	"github.com/ereiarrus/complementsbot/docstore/docstoretest"
	"github.com/ereiarrus/complementsbot/docstore/pgstore"
)

func TestConformance(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	new := func(ctx context.Context) docstore.Store {
		db, err := pgstore.Connect(dsn)
		if err != nil {
			t.Fatal(err)
		}
		s, err := pgstore.Open(ctx, db)
		if err != nil {
			db.Close()
			t.Fatal(err)
		}
		// Each store starts empty.
		if err := s.Delete(ctx, ""); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}
	docstoretest.Test(context.Background(), t, new)
}
