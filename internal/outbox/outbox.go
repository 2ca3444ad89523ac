// Package outbox is a durable queue of ride events waiting to be published.
// Entries survive a crash between the registry change and the broker ack;
// the broadcaster deletes an entry only once the broker has taken it.
package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/example/gator-taxi/internal/models"
)

const keyPrefix = "event/"

// upperBound is the first key past every "event/" key.
var upperBound = []byte("event0")

// Entry is one pending event.
type Entry struct {
	ID       uint64
	Attempts uint32
	Event    models.RideEvent
}

type Outbox struct {
	db *pebble.DB

	mu     sync.Mutex
	nextID uint64
}

func Open(dir string) (*Outbox, error) {
	return OpenWithOptions(dir, &pebble.Options{})
}

// OpenWithOptions opens the outbox with caller-supplied pebble options,
// e.g. an in-memory vfs for tests.
func OpenWithOptions(dir string, opts *pebble.Options) (*Outbox, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	o := &Outbox{db: db, nextID: 1}
	last, err := o.lastID()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	o.nextID = last + 1
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Handle appends ev; it satisfies events.Handler.
func (o *Outbox) Handle(ctx context.Context, ev models.RideEvent) error {
	_, err := o.Put(ev)
	return err
}

// Put appends ev with the next outbox id and syncs it to disk.
func (o *Outbox) Put(ev models.RideEvent) (uint64, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	if err := o.db.Set(keyFor(id), encodeValue(0, payload), pebble.Sync); err != nil {
		return 0, fmt.Errorf("outbox put %d: %w", id, err)
	}
	o.nextID++
	return id, nil
}

// Scan calls fn for up to limit pending entries in id order. A limit of
// zero means no limit. Returning an error from fn stops the scan.
func (o *Outbox) Scan(limit int, fn func(Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: upperBound,
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && n == limit {
			break
		}
		e, err := decodeEntry(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		n++
	}
	return iter.Error()
}

// Ack removes a published entry.
func (o *Outbox) Ack(id uint64) error {
	return o.db.Delete(keyFor(id), pebble.Sync)
}

// Retry bumps the attempt counter of an entry that failed to publish.
func (o *Outbox) Retry(e Entry) error {
	payload, err := json.Marshal(e.Event)
	if err != nil {
		return err
	}
	return o.db.Set(keyFor(e.ID), encodeValue(e.Attempts+1, payload), pebble.Sync)
}

// Pending counts entries not yet acknowledged.
func (o *Outbox) Pending() (int, error) {
	n := 0
	err := o.Scan(0, func(Entry) error {
		n++
		return nil
	})
	return n, err
}

func (o *Outbox) lastID() (uint64, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: upperBound,
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

/******************** Encoding ********************/

// keys are "event/" + big-endian id so byte order is id order.
func keyFor(id uint64) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], id)
	return k
}

func parseKey(k []byte) (uint64, error) {
	if len(k) != len(keyPrefix)+8 {
		return 0, errors.New("outbox: invalid key length")
	}
	return binary.BigEndian.Uint64(k[len(keyPrefix):]), nil
}

// value layout: [attempts:4][json event]
func encodeValue(attempts uint32, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], attempts)
	copy(buf[4:], payload)
	return buf
}

func decodeEntry(k, v []byte) (Entry, error) {
	id, err := parseKey(k)
	if err != nil {
		return Entry{}, err
	}
	if len(v) < 4 {
		return Entry{}, errors.New("outbox: invalid value length")
	}
	e := Entry{ID: id, Attempts: binary.BigEndian.Uint32(v[:4])}
	if err := json.Unmarshal(v[4:], &e.Event); err != nil {
		return Entry{}, fmt.Errorf("outbox: decode entry %d: %w", id, err)
	}
	return e, nil
}
