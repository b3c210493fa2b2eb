// Package store persists engine state records between runs. The engine
// defines the record shapes, this package owns the storage mechanism, a
// bolt key-value file with one bucket per record kind.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/medisense/pillslot-monitor/engine"
	"github.com/medisense/pillslot-monitor/identity"
)

var (
	pairingsBucket    = []byte("pairings")
	slotConfigsBucket = []byte("slotconfigs")
)

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{pairingsBucket, slotConfigsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SavePairings replaces the persisted pairing table with the given snapshot.
func (s *Store) SavePairings(pairings []identity.Pairing) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(pairingsBucket); err != nil {
			return err
		}
		b, err := tx.CreateBucket(pairingsBucket)
		if err != nil {
			return err
		}
		for _, p := range pairings {
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(p.DeviceAddress), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPairings returns all persisted pairings.
func (s *Store) LoadPairings() ([]identity.Pairing, error) {
	var pairings []identity.Pairing
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(pairingsBucket).ForEach(func(k, v []byte) error {
			var p identity.Pairing
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("failed to unmarshal pairing for %s: %v", k, err)
			}
			pairings = append(pairings, p)
			return nil
		})
	})
	return pairings, err
}

// SaveSlotConfig persists one slot configuration record.
func (s *Store) SaveSlotConfig(cfg engine.SlotConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(slotConfigsBucket).Put([]byte{cfg.SlotID}, data)
	})
}

// SaveSlotConfigs persists every given slot configuration record.
func (s *Store) SaveSlotConfigs(configs []engine.SlotConfig) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(slotConfigsBucket)
		for _, cfg := range configs {
			data, err := json.Marshal(cfg)
			if err != nil {
				return err
			}
			if err := b.Put([]byte{cfg.SlotID}, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSlotConfigs returns all persisted slot configuration records.
func (s *Store) LoadSlotConfigs() ([]engine.SlotConfig, error) {
	var configs []engine.SlotConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(slotConfigsBucket).ForEach(func(k, v []byte) error {
			var cfg engine.SlotConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("failed to unmarshal slot config %v: %v", k, err)
			}
			configs = append(configs, cfg)
			return nil
		})
	})
	return configs, err
}
