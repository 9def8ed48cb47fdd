package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Options configures the JetStream-backed cache.
type Options struct {
	URL string // NATS server URL

	// Bucket holds sessions, entry sets and order queues. It never expires.
	Bucket string
	// ExpiringBucket holds the acknowledgment store. Every value in it
	// expires ExpiringTTL after it was written.
	ExpiringBucket string
	ExpiringTTL    time.Duration

	// Timeout bounds every store round-trip. An operation that has not
	// completed by then is treated as failed.
	Timeout time.Duration

	// FileStorage keeps bucket data on disk. The subsystem does not promise
	// durability, so buckets live in memory unless this is set.
	FileStorage bool

	// CASRetries bounds optimistic update loops on contended keys.
	CASRetries int
}

func (o *Options) setDefaults() {
	if o.Bucket == "" {
		o.Bucket = "hands"
	}
	if o.ExpiringBucket == "" {
		o.ExpiringBucket = "hands_acks"
	}
	if o.ExpiringTTL == 0 {
		o.ExpiringTTL = 30 * time.Second
	}
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Second
	}
	if o.CASRetries == 0 {
		o.CASRetries = 16
	}
}

// NATS implements Cache on two JetStream key-value buckets.
//
// A hash is stored as one key per field under the hash's key prefix; a list
// is a single key holding a JSON array, mutated with revision checks so a
// push and its trim land as one write.
type NATS struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	main     jetstream.KeyValue
	expiring jetstream.KeyValue
	opts     Options
}

var _ Cache = (*NATS)(nil)

// Open connects to NATS and creates (or updates) both buckets.
// Extra nats.Option values are appended to the reconnecting defaults.
func Open(ctx context.Context, opts Options, extra ...nats.Option) (*NATS, error) {
	opts.setDefaults()

	defaults := []nats.Option{
		nats.Name("hands-cache"),
		nats.Timeout(opts.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(opts.URL, append(defaults, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", opts.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	storage := jetstream.MemoryStorage
	if opts.FileStorage {
		storage = jetstream.FileStorage
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	main, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      opts.Bucket,
		Description: "hand-raise sessions, entries and order queues",
		History:     1,
		Storage:     storage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", opts.Bucket, err)
	}

	expiring, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      opts.ExpiringBucket,
		Description: "hand-raise acknowledgment records",
		History:     1,
		TTL:         opts.ExpiringTTL,
		Storage:     storage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating bucket %s: %w", opts.ExpiringBucket, err)
	}

	return &NATS{conn: nc, js: js, main: main, expiring: expiring, opts: opts}, nil
}

func (n *NATS) Enabled() bool { return true }

func (n *NATS) Healthy() bool { return n.conn.IsConnected() }

// Close closes the underlying NATS connection.
func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}

func (n *NATS) bucket(key string) jetstream.KeyValue {
	if IsExpiring(key) {
		return n.expiring
	}
	return n.main
}

func (n *NATS) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, n.opts.Timeout)
}

// --- Records ---

func (n *NATS) GetRecord(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	e, err := n.bucket(key).Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return e.Value(), nil
}

func (n *NATS) PutRecord(ctx context.Context, key string, value []byte) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	if _, err := n.bucket(key).Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (n *NATS) UpdateRecord(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	kv := n.bucket(key)
	for range n.opts.CASRetries {
		e, err := kv.Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("get %s: %w", key, err)
		}
		next, err := fn(e.Value())
		if err != nil {
			return err
		}
		_, err = kv.Update(ctx, key, next, e.Revision())
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return fmt.Errorf("update %s: %w", key, err)
		}
	}
	return ErrConflict
}

func (n *NATS) DeleteRecord(ctx context.Context, key string) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	if err := n.bucket(key).Purge(ctx, key); err != nil {
		return fmt.Errorf("purge %s: %w", key, err)
	}
	return nil
}

// --- Hashes ---

func (n *NATS) HashSetNX(ctx context.Context, hash, field string, value []byte) (bool, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	key := fieldKey(hash, field)
	if _, err := n.bucket(hash).Create(ctx, key, value); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", key, err)
	}
	return true, nil
}

func (n *NATS) HashSet(ctx context.Context, hash, field string, value []byte) error {
	return n.PutRecord(ctx, fieldKey(hash, field), value)
}

func (n *NATS) HashGet(ctx context.Context, hash, field string) ([]byte, error) {
	return n.GetRecord(ctx, fieldKey(hash, field))
}

func (n *NATS) HashDelete(ctx context.Context, hash, field string) (bool, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	kv := n.bucket(hash)
	key := fieldKey(hash, field)
	for range n.opts.CASRetries {
		e, err := kv.Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("get %s: %w", key, err)
		}
		// Only the caller that deletes the revision it read reports true,
		// so two racing deletes cannot both claim the field.
		err = kv.Delete(ctx, key, jetstream.LastRevision(e.Revision()))
		if err == nil {
			return true, nil
		}
		if !isConflict(err) {
			return false, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return false, ErrConflict
}

func (n *NATS) HashLen(ctx context.Context, hash string) (int, error) {
	count := 0
	err := n.scan(ctx, hash, true, func(string, []byte) { count++ })
	return count, err
}

func (n *NATS) HashGetAll(ctx context.Context, hash string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := n.scan(ctx, hash, false, func(field string, value []byte) {
		out[field] = value
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (n *NATS) HashDeleteAll(ctx context.Context, hash string) (int, error) {
	count, err := n.HashLen(ctx, hash)
	if err != nil {
		return 0, err
	}

	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	// Purge the bucket's backing stream by subject: every field of the hash
	// goes in a single server-side operation.
	kv := n.bucket(hash)
	stream, err := n.js.Stream(ctx, "KV_"+kv.Bucket())
	if err != nil {
		return 0, fmt.Errorf("looking up stream for %s: %w", kv.Bucket(), err)
	}
	subject := "$KV." + kv.Bucket() + "." + hash + ".>"
	if err := stream.Purge(ctx, jetstream.WithPurgeSubject(subject)); err != nil {
		return 0, fmt.Errorf("purge %s: %w", hash, err)
	}
	return count, nil
}

// scan replays the current value of every live field under hash, calling fn
// for each, and returns once the initial replay is complete.
func (n *NATS) scan(ctx context.Context, hash string, metaOnly bool, fn func(field string, value []byte)) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	opts := []jetstream.WatchOpt{jetstream.IgnoreDeletes()}
	if metaOnly {
		opts = append(opts, jetstream.MetaOnly())
	}
	w, err := n.bucket(hash).Watch(ctx, hash+".*", opts...)
	if err != nil {
		return fmt.Errorf("watch %s: %w", hash, err)
	}
	defer w.Stop() //nolint:errcheck

	prefix := hash + "."
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("scan %s: %w", hash, ctx.Err())
		case e, ok := <-w.Updates():
			if !ok {
				return fmt.Errorf("scan %s: watcher closed", hash)
			}
			// A nil entry marks the end of the initial values.
			if e == nil {
				return nil
			}
			field, err := decodeSegment(strings.TrimPrefix(e.Key(), prefix))
			if err != nil {
				continue
			}
			fn(field, e.Value())
		}
	}
}

// --- Lists ---

func (n *NATS) ListPushTrim(ctx context.Context, key, value string, max int) ([]string, error) {
	var evicted []string
	err := n.mutateList(ctx, key, func(items []string) ([]string, bool) {
		evicted = nil
		items = slices.DeleteFunc(items, func(it string) bool { return it == value })
		items = append(items, value)
		if max > 0 && len(items) > max {
			cut := len(items) - max
			evicted = append([]string(nil), items[:cut]...)
			items = items[cut:]
		}
		return items, true
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func (n *NATS) ListRemove(ctx context.Context, key, value string) (int, error) {
	var removed int
	err := n.mutateList(ctx, key, func(items []string) ([]string, bool) {
		removed = 0
		kept := items[:0:0]
		for _, it := range items {
			if it == value {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		return kept, removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (n *NATS) ListRange(ctx context.Context, key string) ([]string, error) {
	data, err := n.GetRecord(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding list %s: %w", key, err)
	}
	return items, nil
}

func (n *NATS) ListDelete(ctx context.Context, key string) error {
	return n.DeleteRecord(ctx, key)
}

// mutateList runs fn against the current list and writes the result with a
// revision check, retrying when another writer got there first. fn may run
// more than once and must not keep state between calls.
func (n *NATS) mutateList(ctx context.Context, key string, fn func(items []string) ([]string, bool)) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	kv := n.bucket(key)
	for range n.opts.CASRetries {
		var (
			items []string
			rev   uint64
		)
		e, err := kv.Get(ctx, key)
		switch {
		case err == nil:
			rev = e.Revision()
			if err := json.Unmarshal(e.Value(), &items); err != nil {
				return fmt.Errorf("decoding list %s: %w", key, err)
			}
		case isNotFound(err):
		default:
			return fmt.Errorf("get %s: %w", key, err)
		}

		next, changed := fn(items)
		if !changed {
			return nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding list %s: %w", key, err)
		}

		if rev == 0 {
			_, err = kv.Create(ctx, key, data)
		} else {
			_, err = kv.Update(ctx, key, data, rev)
		}
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return ErrConflict
}

// PurgeDeleteMarkers drops delete markers older than olderThan from both
// buckets. Every lower, disposition and teardown leaves markers behind.
func (n *NATS) PurgeDeleteMarkers(ctx context.Context, olderThan time.Duration) error {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()

	for _, kv := range []jetstream.KeyValue{n.main, n.expiring} {
		if err := kv.PurgeDeletes(ctx, jetstream.DeleteMarkersOlderThan(olderThan)); err != nil {
			return fmt.Errorf("purging delete markers in %s: %w", kv.Bucket(), err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
