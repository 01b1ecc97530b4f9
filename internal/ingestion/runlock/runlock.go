// Package runlock keeps at most one ingestion run in flight.
package runlock

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
)

var ErrBusy = failure.Wrap(failure.KindBusy, errors.New("an ingestion run is already in progress"))

type Lock interface {
	// TryAcquire never waits: it returns ErrBusy while another run holds the lock.
	TryAcquire(ctx context.Context) (release func(), err error)
}

// Remote is a lease shared across processes.
type Remote interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local { return &Local{} }

func (l *Local) TryAcquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(failure.KindCanceled, err)
	}
	if !l.mu.TryLock() {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}

// Composite takes the in-process lock first, then the remote lease.
type Composite struct {
	local  *Local
	remote Remote
}

func NewComposite(remote Remote) *Composite {
	return &Composite{local: NewLocal(), remote: remote}
}

func (c *Composite) TryAcquire(ctx context.Context) (func(), error) {
	releaseLocal, err := c.local.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if c.remote == nil {
		return releaseLocal, nil
	}
	releaseRemote, ok, err := c.remote.TryAcquire(ctx)
	if err != nil {
		releaseLocal()
		return nil, failure.Wrap(failure.KindInternal, err)
	}
	if !ok {
		releaseLocal()
		return nil, ErrBusy
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseRemote()
			releaseLocal()
		})
	}, nil
}
