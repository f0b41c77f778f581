package kvstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Open opens a Badger database in dir. If dir is empty, the database is held
// in memory. flags is a Badger superflag string applied after the defaults.
func Open(dir, flags string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	opts = opts.WithCompression(options.None)
	db, err := badger.Open(opts.FromSuperFlag(flags))
	if err != nil {
		return nil, fmt.Errorf("couldn't open badger db: %w", err)
	}
	return New(db), nil
}
