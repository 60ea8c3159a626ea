// Package ledger records which partition entries one write invocation has
// already filled, so that an entry reachable from several partition tables is
// written once.
package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
)

// Key identifies an entry by the image it lives in and the absolute address
// of its data.
type Key struct {
	Device string
	Addr   int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%x", k.Device, k.Addr)
}

func (k Key) encode() []byte {
	b := make([]byte, len(k.Device)+1+8)
	copy(b, k.Device)
	binary.BigEndian.PutUint64(b[len(k.Device)+1:], uint64(k.Addr))
	return b
}

func decode(b []byte) Key {
	i := bytes.IndexByte(b, 0)
	return Key{
		Device: string(b[:i]),
		Addr:   int64(binary.BigEndian.Uint64(b[i+1:])),
	}
}

// Ledger is a grow-only set of keys. It is not safe for concurrent use.
type Ledger struct {
	db *memdb.DB
}

func New() *Ledger {
	return &Ledger{
		db: memdb.New(comparer.DefaultComparer, 0),
	}
}

func (l *Ledger) Contains(k Key) bool {
	return l.db.Contains(k.encode())
}

// Add records k. Adding a key twice is not an error.
func (l *Ledger) Add(k Key) error {
	if bytes.IndexByte([]byte(k.Device), 0) >= 0 {
		return fmt.Errorf("device name %q contains NUL", k.Device)
	}
	return l.db.Put(k.encode(), nil)
}

func (l *Ledger) Len() int {
	return l.db.Len()
}

// Keys returns the recorded keys ordered by device then address.
func (l *Ledger) Keys() []Key {
	var keys []Key
	it := l.db.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		keys = append(keys, decode(it.Key()))
	}
	return keys
}
