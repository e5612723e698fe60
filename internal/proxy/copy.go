package proxy

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional splices left and right together until either side
// closes or the context is canceled. Both conns are closed before it
// returns.
//
// Graceful termination returns nil: when one direction finishes, both conns
// are torn down to unblock the other, and the read error that wakeup causes
// is not a failure.
func CopyBidirectional(ctx context.Context, left, right net.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	var closed atomic.Bool
	closeBoth := func() {
		closeOnce.Do(func() {
			closed.Store(true)
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	copyHalf := func(dst, src net.Conn) error {
		_, err := io.Copy(dst, src)
		if closed.Load() {
			err = nil
		}
		closeBoth()
		return err
	}

	g.Go(func() error {
		return copyHalf(left, right)
	})

	g.Go(func() error {
		return copyHalf(right, left)
	})

	// If the context is canceled, close both sides to unblock the copies.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-gctx.Done():
			closeBoth()
		case <-done:
		}
	}()

	return g.Wait()
}
