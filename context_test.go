package tabular

import (
	"context"
	"testing"
	"time"
)

func TestWatcherClosesSocketOnCancel(t *testing.T) {
	client, server := pipe(t)
	w := newWatcher(client)

	ctx, cancel := context.WithCancel(context.Background())
	finish := w.watch(ctx)
	cancel()

	buf := make([]byte, 1)
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Read(buf)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected the blocked read to fail once the watched context is cancelled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelling the context should have unblocked the read by closing the socket")
	}

	if fErr := finish(); fErr != context.Canceled {
		t.Errorf("finish() = %v, want context.Canceled", fErr)
	}
	server.Close()
}

func TestWatcherFinishWithoutCancelIsClean(t *testing.T) {
	client, server := pipe(t)
	defer server.Close()
	w := newWatcher(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finish := w.watch(ctx)
	if err := finish(); err != nil {
		t.Errorf("finish() = %v, want nil when the context was never cancelled", err)
	}

	// The socket must still be usable: watch/finish without cancellation
	// must not have closed it.
	done := make(chan struct{})
	go func() {
		client.Write([]byte("x"))
		close(done)
	}()
	buf := make([]byte, 1)
	if _, err := server.Read(buf); err != nil {
		t.Errorf("socket should remain open after an uncancelled watch: %v", err)
	}
	<-done
}

func TestWatcherNoopWithoutDeadline(t *testing.T) {
	client, _ := pipe(t)
	w := newWatcher(client)
	finish := w.watch(context.Background())
	if err := finish(); err != nil {
		t.Errorf("finish() = %v, want nil for a context with no Done channel", err)
	}
}
