// Package radar is the acquisition supervisor: it owns the USB
// transport, the producer goroutine running the frame parser, the
// single-sweep slot handed to the consumer, raw-stream logging, and
// the outbound configuration write queue.
package radar

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"fmcw/frame"
	"fmcw/ftdi"
	"fmcw/stats"
)

// Transport is the streaming USB bridge the supervisor drives. The
// production implementation is ftdi.Device; tests substitute a fake.
type Transport interface {
	// ReadStream delivers payload chunks to fn until fn returns a
	// non-nil error, which ReadStream passes back to the caller.
	ReadStream(fn func(chunk []byte) error) error
	Write(p []byte) (int, error)
	Close() error
}

var (
	ErrNotOpen = errors.New("radar: device not open")
	ErrOpen    = errors.New("radar: device already open")
	ErrRunning = errors.New("radar: acquisition already running")

	// errCancelled unwinds the streaming read after Close sets the
	// cancel flag. Never escapes to callers.
	errCancelled = errors.New("radar: acquisition cancelled")
)

// Radar is one acquisition session. The mutex guards the parser, the
// sweep slot fused into it, the cancel flag and the raw log sink; it
// is held for the full duration of each stream callback, so a reader
// either sees a complete committed sweep or none.
type Radar struct {
	mu      sync.Mutex
	dev     Transport
	parser  *frame.Parser
	logFile *os.File
	cancel  bool
	running bool
	done    chan struct{}

	// Outbound write queue. Control-thread only; not guarded.
	pending []byte

	log *log.Logger
}

// New returns an unopened Radar.
func New() *Radar {
	return &Radar{log: log.Default().WithPrefix("radar")}
}

// Open claims the FT2232H and configures it for synchronous FIFO
// streaming.
func (r *Radar) Open() error {
	if r.dev != nil {
		return ErrOpen
	}
	dev, err := ftdi.Open(ftdi.VendorID, ftdi.ProductID)
	if err != nil {
		r.log.Error("device open failed", "err", err)
		return err
	}
	r.dev = dev
	r.log.Info("device opened", "vid", fmt.Sprintf("%04x", ftdi.VendorID), "pid", fmt.Sprintf("%04x", ftdi.ProductID))
	return nil
}

// OpenTransport attaches an already-open transport. Used by tests and
// by callers that bring their own bridge.
func (r *Radar) OpenTransport(t Transport) error {
	if r.dev != nil {
		return ErrOpen
	}
	r.dev = t
	return nil
}

// StartAcquisition validates the stream parameters, opens the raw log
// sink if requested, and starts the producer goroutine. logPath == ""
// disables raw logging.
func (r *Radar) StartAcquisition(logPath string, sampleBits, sweepLen int, fft bool) error {
	if r.dev == nil {
		return ErrNotOpen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}

	parser, err := frame.NewParser(sampleBits, sweepLen, fft)
	if err != nil {
		r.log.Error("bad stream config", "err", err)
		return fmt.Errorf("radar: %w", err)
	}

	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			r.log.Error("raw log open failed", "path", logPath, "err", err)
			return fmt.Errorf("radar: open raw log: %w", err)
		}
		r.logFile = f
	}

	r.parser = parser
	r.cancel = false
	r.running = true
	r.done = make(chan struct{})
	go r.produce()

	r.log.Info("acquisition started",
		"sample_bits", sampleBits, "sweep_len", sweepLen, "fft", fft,
		"sample_bytes", parser.SampleBytes(), "nflags", parser.NumFlags())
	return nil
}

// produce blocks inside the transport's streaming read for the life of
// the session.
func (r *Radar) produce() {
	defer close(r.done)
	err := r.dev.ReadStream(r.callback)
	if err != nil && !errors.Is(err, errCancelled) {
		r.log.Error("stream read failed", "err", err)
	}
}

// callback consumes one chunk from the stream. It runs the parser and
// the raw log under the lock and never blocks on anything else.
func (r *Radar) callback(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel {
		return errCancelled
	}
	if len(chunk) == 0 {
		return nil
	}

	before := r.parser.Stats()
	r.parser.Feed(chunk)
	after := r.parser.Stats()

	stats.Callbacks.Inc()
	stats.BytesRead.Add(float64(len(chunk)))
	stats.SweepsPublished.Add(float64(after.Published - before.Published))
	stats.SweepsDropped.Add(float64(after.Dropped - before.Dropped))
	stats.FramesDiscarded.Add(float64(after.Discarded - before.Discarded))

	if r.logFile != nil {
		// Always the full chunk, byte-exact and in receive order,
		// so the file replays offline as the device sent it.
		if _, err := r.logFile.Write(chunk); err != nil {
			r.log.Error("raw log write failed, disabling sink", "err", err)
			r.logFile.Close()
			r.logFile = nil
		}
	}
	return nil
}

// ReadSweep copies the sweep held in the slot into out and clears the
// slot. While the slot is unread, newer sweeps are dropped, so this is
// the first sweep completed since the previous read. Never blocks;
// returns false when no unread sweep is available. out must hold
// sweep_len samples.
func (r *Radar) ReadSweep(out []frame.Sample) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parser == nil {
		return false
	}
	return r.parser.TryTake(out)
}

// Stats returns the parser's counters for the current session.
func (r *Radar) Stats() frame.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parser == nil {
		return frame.Stats{}
	}
	return r.parser.Stats()
}

// Close stops the producer, closes the raw log, releases the device
// and clears all session state. Best-effort and idempotent.
func (r *Radar) Close() {
	r.mu.Lock()
	r.cancel = true
	done := r.done
	running := r.running
	r.mu.Unlock()

	if running {
		// The next callback observes the flag and unwinds the
		// stream; bounded by one latency-timer period.
		<-done
	}

	r.mu.Lock()
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
	r.parser = nil
	r.running = false
	r.cancel = false
	r.done = nil
	r.mu.Unlock()

	if r.dev != nil {
		if err := r.dev.Close(); err != nil {
			r.log.Error("device close failed", "err", err)
		}
		r.dev = nil
	}
	r.pending = nil
	r.log.Info("closed")
}
