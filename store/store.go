// Package store persists session snapshots in a bbolt database so a device does not have to be
// bootstrapped again to answer commands.
package store

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/viam-modules/onvifcore/session"
)

const (
	bucketSessions = "sessions" // key: session id -> session.Snapshot JSON
	bucketXaddrs   = "xaddrs"   // key: device xaddr -> session id
)

// ErrNotFound means no snapshot is stored under the key.
var ErrNotFound = errors.New("session not found")

// Store is a bbolt backed snapshot store. It is safe for concurrent use.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening session store %s", path)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketSessions, bucketXaddrs} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}
		return nil
	}); err != nil {
		//nolint:errcheck
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores snap, replacing any earlier snapshot of the same device.
func (s *Store) Put(snap session.Snapshot) error {
	if snap.ID == "" {
		return errors.New("snapshot has no id")
	}
	if snap.Xaddr == "" {
		return errors.Errorf("snapshot %s has no xaddr", snap.ID)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrapf(err, "encoding snapshot %s", snap.ID)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket([]byte(bucketSessions))
		xaddrs := tx.Bucket([]byte(bucketXaddrs))

		if prev := xaddrs.Get([]byte(snap.Xaddr)); prev != nil && string(prev) != snap.ID {
			if err := sessions.Delete(prev); err != nil {
				return errors.Wrapf(err, "replacing session %s", prev)
			}
		}
		if err := sessions.Put([]byte(snap.ID), data); err != nil {
			return errors.Wrapf(err, "storing session %s", snap.ID)
		}
		return errors.Wrapf(xaddrs.Put([]byte(snap.Xaddr), []byte(snap.ID)), "indexing session %s", snap.ID)
	})
}

// Get returns the snapshot stored under id.
func (s *Store) Get(id string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		return decode(tx.Bucket([]byte(bucketSessions)).Get([]byte(id)), id, &snap)
	})
	return snap, err
}

// GetByXaddr returns the snapshot of the device at xaddr.
func (s *Store) GetByXaddr(xaddr string) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(bucketXaddrs)).Get([]byte(xaddr))
		if id == nil {
			return errors.Wrap(ErrNotFound, xaddr)
		}
		return decode(tx.Bucket([]byte(bucketSessions)).Get(id), string(id), &snap)
	})
	return snap, err
}

// List returns every stored snapshot ordered by xaddr.
func (s *Store) List() ([]session.Snapshot, error) {
	var out []session.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).ForEach(func(k, v []byte) error {
			var snap session.Snapshot
			if err := decode(v, string(k), &snap); err != nil {
				return err
			}
			out = append(out, snap)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b session.Snapshot) int {
		return strings.Compare(a.Xaddr, b.Xaddr)
	})
	return out, nil
}

// Delete removes the snapshot stored under id.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket([]byte(bucketSessions))
		var snap session.Snapshot
		if err := decode(sessions.Get([]byte(id)), id, &snap); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketXaddrs)).Delete([]byte(snap.Xaddr)); err != nil {
			return errors.Wrapf(err, "removing index of session %s", id)
		}
		return errors.Wrapf(sessions.Delete([]byte(id)), "deleting session %s", id)
	})
}

func decode(data []byte, id string, snap *session.Snapshot) error {
	if data == nil {
		return errors.Wrap(ErrNotFound, id)
	}
	return errors.Wrapf(json.Unmarshal(data, snap), "decoding session %s", id)
}
