package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestCache starts an embedded JetStream server and opens a cache on it.
func openTestCache(t *testing.T, ttl time.Duration) *NATS {
	t.Helper()
	srv, err := StartEmbedded(t.TempDir(), -1)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	c, err := Open(context.Background(), Options{URL: srv.ClientURL(), ExpiringTTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session.bTE", SessionKey("m1"))
	assert.Equal(t, "entries.bTE", EntriesKey("m1"))
	assert.Equal(t, "queue.bTE", QueueKey("m1"))
	assert.Equal(t, "acks.bTE", AcksKey("m1"))

	assert.True(t, IsExpiring(AcksKey("m1")))
	assert.False(t, IsExpiring(EntriesKey("m1")))
	assert.False(t, IsExpiring("acksession.x"))

	// Ids with characters that are not valid in store keys round-trip.
	for _, id := range []string{"room 42", "a.b.c", "ünïcode/*>"} {
		got, err := decodeSegment(encodeSegment(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	var c Cache = Disabled{}

	assert.False(t, c.Enabled())
	assert.False(t, c.Healthy())

	_, err := c.GetRecord(ctx, "k")
	assert.ErrorIs(t, err, ErrDisabled)
	ok, err := c.HashSetNX(ctx, "h", "f", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrDisabled)
	n, err := c.HashLen(ctx, "h")
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = c.ListPushTrim(ctx, "l", "v", 10)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, c.Close())
}

func TestOpenOrDisabled_Unreachable(t *testing.T) {
	c := OpenOrDisabled(context.Background(), Options{
		URL:     "nats://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})
	assert.False(t, c.Enabled())
}

func TestRecords(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()

	_, err := c.GetRecord(ctx, "session.x")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.PutRecord(ctx, "session.x", []byte("one")))
	got, err := c.GetRecord(ctx, "session.x")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	err = c.UpdateRecord(ctx, "session.x", func(cur []byte) ([]byte, error) {
		return append(cur, "+two"...), nil
	})
	require.NoError(t, err)
	got, err = c.GetRecord(ctx, "session.x")
	require.NoError(t, err)
	assert.Equal(t, "one+two", string(got))

	require.NoError(t, c.DeleteRecord(ctx, "session.x"))
	_, err = c.GetRecord(ctx, "session.x")
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.UpdateRecord(ctx, "session.x", func(cur []byte) ([]byte, error) { return cur, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRecord_Concurrent(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()
	require.NoError(t, c.PutRecord(ctx, "counter", []byte("0")))

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.UpdateRecord(ctx, "counter", func(cur []byte) ([]byte, error) {
				n, err := strconv.Atoi(string(cur))
				if err != nil {
					return nil, err
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := c.GetRecord(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(got))
}

func TestHash(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()
	h := EntriesKey("m1")

	n, err := c.HashLen(ctx, h)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := c.HashSetNX(ctx, h, "u1", []byte("alice"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.HashSetNX(ctx, h, "u1", []byte("again"))
	require.NoError(t, err)
	assert.False(t, ok, "second create of the same field must fail")

	require.NoError(t, c.HashSet(ctx, h, "u2", []byte("bob")))

	v, err := c.HashGet(ctx, h, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", string(v))

	all, err := c.HashGetAll(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"u1": []byte("alice"), "u2": []byte("bob")}, all)

	removed, err := c.HashDelete(ctx, h, "u1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = c.HashDelete(ctx, h, "u1")
	require.NoError(t, err)
	assert.False(t, removed)

	n, err = c.HashLen(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A deleted field can be created again.
	ok, err = c.HashSetNX(ctx, h, "u1", []byte("alice-2"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Other hashes are untouched by a wholesale delete.
	require.NoError(t, c.HashSet(ctx, EntriesKey("m2"), "u9", []byte("zed")))

	cleared, err := c.HashDeleteAll(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	n, err = c.HashLen(ctx, h)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = c.HashGet(ctx, h, "u2")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err = c.HashLen(ctx, EntriesKey("m2"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHashSetNX_Concurrent(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.HashSetNX(ctx, "entries.race", "u1", []byte(strconv.Itoa(i)))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestList(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()
	q := QueueKey("m1")

	items, err := c.ListRange(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, items)

	for _, id := range []string{"u1", "u2", "u3"} {
		evicted, err := c.ListPushTrim(ctx, q, id, 3)
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}
	evicted, err := c.ListPushTrim(ctx, q, "u4", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, evicted)

	items, err = c.ListRange(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3", "u4"}, items)

	evicted, err = c.ListPushTrim(ctx, q, "u3", 3)
	require.NoError(t, err)
	assert.Empty(t, evicted, "re-pushing a present value must not trim")
	items, err = c.ListRange(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u4", "u3"}, items)

	removed, err := c.ListRemove(ctx, q, "u3")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	removed, err = c.ListRemove(ctx, q, "nobody")
	require.NoError(t, err)
	assert.Zero(t, removed)

	items, err = c.ListRange(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u4"}, items)

	require.NoError(t, c.ListDelete(ctx, q))
	items, err = c.ListRange(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestList_ConcurrentPush(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListPushTrim(ctx, "queue.race", "u"+strconv.Itoa(i), 100)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := c.ListRange(ctx, "queue.race")
	require.NoError(t, err)
	assert.Len(t, items, 8)
}

func TestExpiringHash(t *testing.T) {
	c := openTestCache(t, time.Second)
	ctx := context.Background()
	h := AcksKey("m1")

	require.NoError(t, c.HashSet(ctx, h, "u1", []byte("ack")))
	v, err := c.HashGet(ctx, h, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ack", string(v))

	// Non-expiring keys with the same meeting are unaffected.
	require.NoError(t, c.HashSet(ctx, EntriesKey("m1"), "u1", []byte("entry")))

	assert.Eventually(t, func() bool {
		_, err := c.HashGet(ctx, h, "u1")
		return err == ErrNotFound
	}, 10*time.Second, 100*time.Millisecond)

	_, err = c.HashGet(ctx, EntriesKey("m1"), "u1")
	assert.NoError(t, err)
}

func TestPurgeDeleteMarkers(t *testing.T) {
	c := openTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.HashSet(ctx, "entries.m", "u1", []byte("x")))
	_, err := c.HashDelete(ctx, "entries.m", "u1")
	require.NoError(t, err)

	require.NoError(t, c.PurgeDeleteMarkers(ctx, -1))
	ok, err := c.HashSetNX(ctx, "entries.m", "u1", []byte("y"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompactor_StartStop(t *testing.T) {
	c := openTestCache(t, 0)
	comp := c.StartCompactor(CompactorConfig{Interval: 10 * time.Millisecond})
	time.Sleep(50 * time.Millisecond)
	comp.Stop()
	comp.Stop()
}
