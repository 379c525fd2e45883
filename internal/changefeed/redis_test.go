package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"folio/api/internal/store"
	"folio/api/internal/store/storetest"
)

func setupTestRedis(t *testing.T) (*RedisNotifier, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	notifier, err := NewRedisNotifier("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis notifier: %v", err)
	}
	t.Cleanup(func() { _ = notifier.Close() })
	return notifier, s
}

func expectSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change signal")
	}
}

func expectQuiet(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected change signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewRedisNotifier(t *testing.T) {
	notifier, _ := setupTestRedis(t)
	if err := notifier.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisNotifierBadURL(t *testing.T) {
	if _, err := NewRedisNotifier("not a url"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestPublishReachesListenersOfThatCollection(t *testing.T) {
	notifier, _ := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pages, err := notifier.Listen(ctx, store.PagesCollection("w1"))
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	other, err := notifier.Listen(ctx, store.PagesCollection("w2"))
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	if err := notifier.Publish(ctx, store.PagesCollection("w1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	expectSignal(t, pages)
	expectQuiet(t, other)
}

func TestListenChannelClosesWithContext(t *testing.T) {
	notifier, _ := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := notifier.Listen(ctx, store.CollectionWorkspaces)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A stray signal is allowed; the close must follow.
			if _, ok := <-ch; ok {
				t.Fatal("expected channel to close")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

// Two stores sharing one database but not one process: only Redis links them.
func TestStoresShareChangesThroughRedis(t *testing.T) {
	s := miniredis.RunT(t)
	newNotifier := func() *RedisNotifier {
		n, err := NewRedisNotifier("redis://" + s.Addr())
		if err != nil {
			t.Fatalf("NewRedisNotifier failed: %v", err)
		}
		t.Cleanup(func() { _ = n.Close() })
		return n
	}

	writer := storetest.New(t, store.WithNotifier(newNotifier()))
	reader := store.NewSQLStore(writer.DB(), store.DialectSQLite, store.WithNotifier(newNotifier()))

	ctx := context.Background()
	snaps := make(chan store.Snapshot, 8)
	sub, err := reader.Subscribe(ctx, store.Query{Collection: store.PagesCollection("w1")}, func(snap store.Snapshot, err error) {
		if err == nil {
			snaps <- snap
		}
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()
	<-snaps

	page := store.Page{ID: "p1", Title: "Home"}
	if err := writer.Commit(ctx, store.NewBatch().Set(store.PagePath("w1", page.ID), page.Fields())); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	select {
	case snap := <-snaps:
		if len(snap.Records) != 1 || snap.Records[0].ID != "p1" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reader never saw the write")
	}
}
