package mail

import (
	"fmt"
	"strconv"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var bucketPendingAcks = []byte("pending_acks")

// AckJournal remembers messages that were persisted locally but not yet
// acknowledged on the mail server, so a later sync can finish the job.
type AckJournal interface {
	Record(mailboxID uint, uid, messageID string) error
	Pending(mailboxID uint) (map[string]string, error)
	Clear(mailboxID uint, uids ...string) error
}

// BoltJournal is an AckJournal backed by a bbolt file. Each mailbox has its
// own nested bucket mapping server UID to Message-ID.
type BoltJournal struct {
	db *bbolt.DB
}

// OpenAckJournal opens or creates the journal file
func OpenAckJournal(path string) (*BoltJournal, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("ack journal: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPendingAcks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ack journal: create bucket: %w", err)
	}

	return &BoltJournal{db: db}, nil
}

func mailboxKey(mailboxID uint) []byte {
	return []byte(strconv.FormatUint(uint64(mailboxID), 10))
}

// Record marks uid as persisted but unacknowledged
func (j *BoltJournal) Record(mailboxID uint, uid, messageID string) error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketPendingAcks).CreateBucketIfNotExists(mailboxKey(mailboxID))
		if err != nil {
			return err
		}
		return b.Put([]byte(uid), []byte(messageID))
	})
}

// Pending returns the unacknowledged UIDs of a mailbox with their Message-IDs
func (j *BoltJournal) Pending(mailboxID uint) (map[string]string, error) {
	pending := make(map[string]string)
	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPendingAcks).Bucket(mailboxKey(mailboxID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			pending[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ack journal: read pending: %w", err)
	}
	return pending, nil
}

// Clear removes acknowledged UIDs. An empty mailbox bucket is dropped.
func (j *BoltJournal) Clear(mailboxID uint, uids ...string) error {
	return j.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketPendingAcks)
		b := root.Bucket(mailboxKey(mailboxID))
		if b == nil {
			return nil
		}
		for _, uid := range uids {
			if err := b.Delete([]byte(uid)); err != nil {
				return err
			}
		}
		if k, _ := b.Cursor().First(); k == nil {
			return root.DeleteBucket(mailboxKey(mailboxID))
		}
		return nil
	})
}

// Close closes the journal file
func (j *BoltJournal) Close() error {
	return j.db.Close()
}
