package cache

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Buffer holds the contents of a single resource, read once from its Source.
// A successful read is kept for the lifetime of the Buffer; a failed read is
// not, so the next Load tries again.
type Buffer struct {
	src  Source
	name string

	data atomic.Pointer[[]byte]
	sf   singleflight.Group
}

// NewBuffer creates an empty buffer for the resource name in src
func NewBuffer(src Source, name string) *Buffer {
	return &Buffer{
		src:  src,
		name: name,
	}
}

// Name returns the resource name the buffer loads
func (b *Buffer) Name() string {
	return b.name
}

// Loaded reports whether the contents are already in memory
func (b *Buffer) Loaded() bool {
	return b.data.Load() != nil
}

// Load returns the resource contents, reading them from the source on first use.
// Concurrent callers during the first read share a single read. A caller whose
// context ends stops waiting, the read itself keeps going for the others.
func (b *Buffer) Load(ctx context.Context) ([]byte, error) {
	if data := b.data.Load(); data != nil {
		return *data, nil
	}

	ch := b.sf.DoChan(b.name, func() (interface{}, error) {
		if data := b.data.Load(); data != nil {
			return *data, nil
		}
		// Detached so that one waiter giving up does not fail the others.
		data, err := b.src.Read(context.WithoutCancel(ctx), b.name)
		if err != nil {
			return nil, err
		}
		b.data.Store(&data)
		logrus.Debugf("Cached %s (%d bytes)", b.name, len(data))
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
