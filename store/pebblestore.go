// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package store implements the consensus core's persistence contract:
// atomic batched writes and prefix iteration over a key-value store, plus
// a deterministic state-root computation over the account state.
package store

import (
	"bytes"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is a concrete adapter over cockroachdb/pebble implementing
// the batched-write and prefix-iteration contract the node requires of
// its database.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (or creates) a pebble database at path.
func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Put writes key/value, fsyncing per pebble's WriteOptions default.
func (s *PebbleStore) Put(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

// Get reads the value for key. The returned bool is false if the key is
// absent.
func (s *PebbleStore) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	closer.Close()
	return out, true, nil
}

// Delete removes key.
func (s *PebbleStore) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// Batch is an atomic group of writes, applied all-or-nothing.
type Batch struct {
	b *pebble.Batch
}

// NewBatch starts a new atomic write batch.
func (s *PebbleStore) NewBatch() *Batch {
	return &Batch{b: s.db.NewBatch()}
}

// Put stages a key/value write in the batch.
func (b *Batch) Put(key, value []byte) error {
	return b.b.Set(key, value, nil)
}

// Delete stages a key deletion in the batch.
func (b *Batch) Delete(key []byte) error {
	return b.b.Delete(key, nil)
}

// Commit atomically applies every staged write.
func (b *Batch) Commit() error {
	return b.b.Commit(pebble.Sync)
}

// IteratePrefix calls fn for every key with the given prefix, in key
// order, stopping early if fn returns an error.
func (s *PebbleStore) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// upperBound computes the lexicographically smallest key greater than
// every key sharing prefix, used to bound a prefix iteration. Returns nil
// (unbounded) if prefix is all 0xff bytes.
func upperBound(prefix []byte) []byte {
	ub := bytes.Clone(prefix)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] != 0xff {
			ub[i]++
			return ub[:i+1]
		}
	}
	return nil
}
