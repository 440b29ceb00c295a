package nodestore

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"symres/internal/symbol"
)

const nodesBucketName = "nodes"

var nodesBucketNameBytes = []byte(nodesBucketName)

var ErrClosed = errors.New("node store is closed")

// Bolt persists nodes in a bbolt file, one key per node in a single bucket.
type Bolt struct {
	db   *bbolt.DB
	path string
}

var _ symbol.Store = (*Bolt)(nil)

// OpenBolt opens or creates the store file at path.
func OpenBolt(path string) (*Bolt, error) {
	opts := *bbolt.DefaultOptions
	opts.Timeout = time.Second
	db, err := bbolt.Open(path, 0644, &opts)
	if err != nil {
		return nil, fmt.Errorf("open node store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(nodesBucketNameBytes)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", nodesBucketName, err)
	}
	return &Bolt{db: db, path: path}, nil
}

func (b *Bolt) Path() string { return b.path }

func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Open returns a handle to the node at key. Nodes come into existence on
// their first Set.
func (b *Bolt) Open(key string) (symbol.Node, error) {
	if b.db == nil {
		return nil, ErrClosed
	}
	return &boltNode{b: b, key: []byte(key)}, nil
}

// Keys lists every stored key in byte order.
func (b *Bolt) Keys() ([]string, error) {
	if b.db == nil {
		return nil, ErrClosed
	}
	var keys []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(nodesBucketNameBytes).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

type boltNode struct {
	b   *Bolt
	key []byte
}

func (n *boltNode) Get() (value string, ok bool, err error) {
	if n.b.db == nil {
		return "", false, ErrClosed
	}
	err = n.b.db.View(func(tx *bbolt.Tx) error {
		// Values are only valid inside the transaction.
		if v := tx.Bucket(nodesBucketNameBytes).Get(n.key); v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	return value, ok, err
}

func (n *boltNode) Set(value string) error {
	if n.b.db == nil {
		return ErrClosed
	}
	return n.b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(nodesBucketNameBytes).Put(n.key, []byte(value))
	})
}
