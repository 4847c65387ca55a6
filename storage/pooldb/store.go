package pooldb

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	bolt "go.etcd.io/bbolt"

	"stakepool/native/rewards"
)

var (
	bucketMeta         = []byte("meta")
	bucketParticipants = []byte("participants")

	keyAccumulator = []byte("accumulator")
	keyTotalStaked = []byte("totalStaked")
)

// Store persists the pool accumulator, the total staked balance and the
// per-participant ledger in a single bbolt file. It implements
// rewards.EngineState; every getter decodes a fresh copy, so callers may
// mutate returned values freely.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the pool database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("pooldb: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketParticipants)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pooldb: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PoolAccumulator loads the persisted accumulator, or nil when none exists.
func (s *Store) PoolAccumulator() (*rewards.Accumulator, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(bucketMeta).Get(keyAccumulator); value != nil {
			raw = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	acc := &rewards.Accumulator{}
	if err := json.Unmarshal(raw, acc); err != nil {
		return nil, fmt.Errorf("pooldb: decode accumulator: %w", err)
	}
	return acc, nil
}

// PutPoolAccumulator persists the accumulator.
func (s *Store) PutPoolAccumulator(acc *rewards.Accumulator) error {
	if acc == nil {
		return fmt.Errorf("pooldb: nil accumulator")
	}
	payload, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("pooldb: encode accumulator: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyAccumulator, payload)
	})
}

// PoolTotalStaked loads the persisted total, or nil when none exists.
func (s *Store) PoolTotalStaked() (*big.Int, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(bucketMeta).Get(keyTotalStaked); value != nil {
			raw = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	total, ok := new(big.Int).SetString(string(raw), 10)
	if !ok || total.Sign() < 0 {
		return nil, fmt.Errorf("pooldb: decode total staked %q", raw)
	}
	return total, nil
}

// PutPoolTotalStaked persists the total staked balance.
func (s *Store) PutPoolTotalStaked(total *big.Int) error {
	if total == nil || total.Sign() < 0 {
		return fmt.Errorf("pooldb: invalid total staked")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyTotalStaked, []byte(total.String()))
	})
}

// Participant loads the ledger record for addr, or nil when unseen.
func (s *Store) Participant(addr [20]byte) (*rewards.Participant, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(bucketParticipants).Get(addr[:]); value != nil {
			raw = append([]byte(nil), value...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	participant := &rewards.Participant{}
	if err := json.Unmarshal(raw, participant); err != nil {
		return nil, fmt.Errorf("pooldb: decode participant: %w", err)
	}
	return participant, nil
}

// PutParticipant persists the ledger record for addr.
func (s *Store) PutParticipant(addr [20]byte, participant *rewards.Participant) error {
	if participant == nil {
		return fmt.Errorf("pooldb: nil participant")
	}
	payload, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("pooldb: encode participant: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketParticipants).Put(addr[:], payload)
	})
}
