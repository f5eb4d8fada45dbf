package bbolt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TecharoHQ/numcaptcha/lib/store"
	"go.etcd.io/bbolt"
)

// Sentinel error values used for testing and in admin-visible error messages.
var (
	ErrBucketDoesNotExist = errors.New("bbolt: bucket does not exist")
	ErrNotExists          = errors.New("bbolt: value does not exist in store")
)

// Store implements store.Interface backed by bbolt[1].
//
// Every value gets its own bucket with two keys:
//
// 1. data - The raw data, usually encrypted challenge state
// 2. expiry - The expiry time formatted as a time.RFC3339Nano timestamp string
//
// The cleanup phase iterates over every bucket and only parses expiry times.
//
// bbolt holds an exclusive lock on its file, so it is not suitable when
// multiple numcaptcha instances must share state. Use valkey for that.
//
// [1]: https://github.com/etcd-io/bbolt
type Store struct {
	bdb          *bbolt.DB
	cleanupEvery time.Duration
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.bdb.Close()
}

// Delete a key from the datastore. If the key does not exist, return an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.bdb.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(key)) == nil {
			return fmt.Errorf("%w: %w: %q", store.ErrNotFound, ErrNotExists, key)
		}

		return tx.DeleteBucket([]byte(key))
	})
}

// Get a value from the datastore. Expired values are deleted in the
// background and reported as not found.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		result  []byte
		expired bool
	)

	if err := s.bdb.View(func(tx *bbolt.Tx) error {
		var err error
		result, expired, err = read(tx, key)
		return err
	}); err != nil {
		return nil, err
	}

	if expired {
		go s.Delete(context.Background(), key)
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return result, nil
}

// Take reads and deletes a value inside one write transaction. bbolt
// serializes write transactions, so concurrent takes of one key see the
// value at most once.
func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	var (
		result  []byte
		expired bool
	)

	// an error returned from the closure rolls back the delete, so expiry is
	// reported after the transaction commits.
	if err := s.bdb.Update(func(tx *bbolt.Tx) error {
		var err error
		result, expired, err = read(tx, key)
		if err != nil {
			return err
		}

		if err := tx.DeleteBucket([]byte(key)); err != nil {
			return fmt.Errorf("%w: %w", ErrBucketDoesNotExist, err)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	if expired {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return result, nil
}

// read copies the value out of its bucket. The returned slice is valid after
// tx ends.
func read(tx *bbolt.Tx, key string) ([]byte, bool, error) {
	itemBucket := tx.Bucket([]byte(key))
	if itemBucket == nil {
		return nil, false, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	expiryStr := itemBucket.Get([]byte("expiry"))
	if expiryStr == nil {
		return nil, false, fmt.Errorf("[unexpected] %w: %q (expiry is nil)", store.ErrNotFound, key)
	}

	expiry, err := time.Parse(time.RFC3339Nano, string(expiryStr))
	if err != nil {
		return nil, false, fmt.Errorf("[unexpected] %w: %w", store.ErrCantDecode, err)
	}

	if time.Now().After(expiry) {
		return nil, true, nil
	}

	dataStr := itemBucket.Get([]byte("data"))
	if dataStr == nil {
		return nil, false, fmt.Errorf("[unexpected] %w: %q (data is nil)", store.ErrNotFound, key)
	}

	result := make([]byte, len(dataStr))
	copy(result, dataStr)

	return result, false, nil
}

// Set a value into the store with a given expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	expires := time.Now().Add(expiry)

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		valueBkt, err := tx.CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return fmt.Errorf("%w: %w: %q (create bucket)", store.ErrCantEncode, err, key)
		}

		if err := valueBkt.Put([]byte("expiry"), []byte(expires.Format(time.RFC3339Nano))); err != nil {
			return fmt.Errorf("%w: %q (expiry)", store.ErrCantEncode, key)
		}

		if err := valueBkt.Put([]byte("data"), value); err != nil {
			return fmt.Errorf("%w: %q (data)", store.ErrCantEncode, key)
		}

		return nil
	})
}

func (s *Store) cleanup(ctx context.Context) error {
	now := time.Now()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		var expired [][]byte

		if err := tx.ForEach(func(key []byte, valueBkt *bbolt.Bucket) error {
			expiryStr := valueBkt.Get([]byte("expiry"))
			if expiryStr == nil {
				slog.Warn("while running cleanup, expiry is not set somehow, file a bug?", "key", string(key))
				return nil
			}

			expiry, err := time.Parse(time.RFC3339Nano, string(expiryStr))
			if err != nil {
				return fmt.Errorf("[unexpected] %w in bucket %q: %w", store.ErrCantDecode, string(key), err)
			}

			if now.After(expiry) {
				expired = append(expired, append([]byte(nil), key...))
			}

			return nil
		}); err != nil {
			return err
		}

		for _, key := range expired {
			if err := tx.DeleteBucket(key); err != nil {
				return fmt.Errorf("can't delete expired bucket %q: %w", string(key), err)
			}
		}

		slog.Debug("bbolt cleanup finished", "expired", len(expired))

		return nil
	})
}

func (s *Store) cleanupThread(ctx context.Context) {
	every := s.cleanupEvery
	if every <= 0 {
		every = DefaultCleanupInterval
	}

	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.cleanup(ctx); err != nil {
				slog.Error("error during bbolt cleanup", "err", err)
			}
		}
	}
}
