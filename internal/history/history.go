package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	AttemptsBucket = []byte("attempts") // append-only attempt log, sequence-keyed
	MetaBucket     = []byte("meta")     // last outcome, timestamps
)

// Meta keys
var (
	MetaVersion    = []byte("version")
	MetaLastResult = []byte("last_result")
)

// Outcome classifies how an unlock attempt ended
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Attempt is one recorded unlock attempt. It never carries credential
// material, only the outcome and a coarse failure reason.
type Attempt struct {
	Timestamp time.Time `json:"timestamp"`
	Outcome   Outcome   `json:"outcome"`
	Strategy  string    `json:"strategy,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Log provides BBolt-based storage for the unlock attempt history
type Log struct {
	db *bolt.DB
}

// Open opens or creates the history database and its bucket structure
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{AttemptsBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		meta := tx.Bucket(MetaBucket)
		if meta.Get(MetaVersion) == nil {
			if err := meta.Put(MetaVersion, []byte("1")); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Log{db: db}, nil
}

// Close closes the database
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends an attempt and updates the last-result marker
func (l *Log) Record(a Attempt) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		attempts := tx.Bucket(AttemptsBucket)
		seq, err := attempts.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := attempts.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(MetaBucket).Put(MetaLastResult, data)
	})
}

// LastResult returns the most recently recorded attempt, or nil when
// nothing has been recorded yet.
func (l *Log) LastResult() (*Attempt, error) {
	var attempt *Attempt
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(MetaBucket).Get(MetaLastResult)
		if data == nil {
			return nil
		}
		attempt = &Attempt{}
		return json.Unmarshal(data, attempt)
	})
	return attempt, err
}

// Recent returns up to n attempts, newest first
func (l *Log) Recent(n int) ([]Attempt, error) {
	var attempts []Attempt
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(AttemptsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(attempts) < n; k, v = c.Prev() {
			var a Attempt
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			attempts = append(attempts, a)
		}
		return nil
	})
	return attempts, err
}

// Prune drops the oldest entries so at most keep remain
func (l *Log) Prune(keep int) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		attempts := tx.Bucket(AttemptsBucket)
		total := attempts.Stats().KeyN
		excess := total - keep
		if excess <= 0 {
			return nil
		}
		// Collect keys first, deleting during iteration confuses the cursor
		var doomed [][]byte
		c := attempts.Cursor()
		for k, _ := c.First(); k != nil && len(doomed) < excess; k, _ = c.Next() {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		for _, k := range doomed {
			if err := attempts.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
