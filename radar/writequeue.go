package radar

import (
	"errors"
	"fmt"

	"fmcw/stats"
)

// Outbound configuration writes. The queue belongs to the control
// thread alone, so it needs no locking; the underlying bridge is
// full duplex and tolerates writes while the producer streams reads.

var ErrShortWrite = errors.New("radar: short device write")

// EnqueueWrite appends nbytes little-endian bytes of val to the
// pending configuration buffer. nbytes must be 1..4.
func (r *Radar) EnqueueWrite(val uint32, nbytes int) error {
	if nbytes < 1 || nbytes > 4 {
		return fmt.Errorf("radar: write size %d out of range 1..4", nbytes)
	}
	for i := 0; i < nbytes; i++ {
		r.pending = append(r.pending, byte(val>>(8*i)))
	}
	return nil
}

// FlushWrites sends the pending bytes as one device write. The buffer
// is cleared only on full success; on a short write it is preserved so
// the caller can retry the whole flush.
func (r *Radar) FlushWrites() error {
	if r.dev == nil {
		return ErrNotOpen
	}
	if len(r.pending) == 0 {
		return nil
	}
	n, err := r.dev.Write(r.pending)
	if err != nil {
		return fmt.Errorf("radar: flush writes: %w", err)
	}
	if n != len(r.pending) {
		return ErrShortWrite
	}
	r.pending = r.pending[:0]
	stats.WritesFlushed.Inc()
	return nil
}

// PendingWrites reports how many bytes are queued for the next flush.
func (r *Radar) PendingWrites() int { return len(r.pending) }
