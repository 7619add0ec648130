package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/fluxrun/fluxrun/pkg/types"
)

var pscoBucket = []byte("psco_locations")

// BoltPSCOStore persists PSCO id -> location/version records across worker
// restarts, using a bucket-per-entity JSON marshal pattern narrowed to
// this domain's single entity kind.
type BoltPSCOStore struct {
	db *bbolt.DB
}

type pscoRecord struct {
	PSCOID  string `json:"pscoId"`
	Host    string `json:"host"`
	Version string `json:"version"`
}

// Init opens (creating if absent) the bbolt file at cfgPath.
func (s *BoltPSCOStore) Init(cfgPath string) error {
	db, err := bbolt.Open(cfgPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pscoBucket)
		return err
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

// Finish closes the underlying bbolt file.
func (s *BoltPSCOStore) Finish() error {
	return s.db.Close()
}

// GetByID returns the current replica location for pscoID.
func (s *BoltPSCOStore) GetByID(pscoID string) (Location, error) {
	var rec pscoRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(pscoBucket).Get([]byte(pscoID))
		if raw == nil {
			return types.ErrStorageBackend
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return Location{}, err
	}
	return Location{PSCOID: rec.PSCOID, Host: rec.Host}, nil
}

// NewReplica records that pscoID now also lives on host.
func (s *BoltPSCOStore) NewReplica(pscoID, host string) error {
	rec := pscoRecord{PSCOID: pscoID, Host: host}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pscoBucket).Put([]byte(pscoID), raw)
	})
}

// NewVersion mints and persists the next version label for pscoID.
func (s *BoltPSCOStore) NewVersion(pscoID string) (string, error) {
	var next string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(pscoBucket)
		var rec pscoRecord
		if raw := b.Get([]byte(pscoID)); raw != nil {
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
		}
		seq, _ := b.NextSequence()
		next = fmt.Sprintf("v%d", seq)
		rec.PSCOID = pscoID
		rec.Version = next
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(pscoID), raw)
	})
	return next, err
}
