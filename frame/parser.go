package frame

import (
	"fmt"
)

// Parser phases. Exactly one is active at a time.
type phase int

const (
	awaitStart phase = iota // scanning for a run of NumFlags start bytes
	readSamples             // accumulating sample words, MSB first
	awaitStop               // validating the trailing stop run
)

// Stats are monotonic counters describing what the parser has done
// with the stream so far.
type Stats struct {
	Published uint64 // sweeps committed to the slot
	Dropped   uint64 // complete sweeps discarded because the slot was full
	Discarded uint64 // framed sweeps thrown away on a bad stop run
}

// Parser is the resumable framing state machine. It consumes the raw
// byte stream in arbitrary-sized chunks and assembles complete,
// stop-validated sweeps into a single-entry slot.
//
// All state survives across Feed calls, so a chunk may end mid-flag,
// mid-sample or mid-byte and the next chunk resumes seamlessly. The
// Parser itself is not goroutine safe: the owner serializes Feed and
// TryTake under one lock.
type Parser struct {
	sampleBits  int
	sweepLen    int
	fft         bool
	sampleBytes int
	nflags      int

	phase    phase
	startRun int    // consecutive start flags seen in the current run
	stopRun  int    // consecutive stop flags seen in the current run
	sweepIdx int    // samples decoded into the current sweep
	byteIdx  int    // byte position within the accumulating sample
	accum    uint64 // sample word under assembly, MSB first
	last     Sample // final sample, held back until the stop run validates

	work  []Sample // sweep under assembly
	sweep []Sample // slot: most recently published sweep
	valid bool     // slot holds an unread sweep

	stats Stats
}

// NewParser validates the stream parameters and returns a fresh parser
// in the await-start phase.
//
// Widths whose padded sample word has no spare top bit (the payload is
// a whole number of bytes and already a power of two, e.g. 8-, 16- or
// 32-bit real samples) are rejected: without at least one zero padding
// bit a flag run cannot be told apart from sample data.
func NewParser(sampleBits, sweepLen int, fft bool) (*Parser, error) {
	if sampleBits < 1 || sampleBits > 32 {
		return nil, fmt.Errorf("sample width %d bits out of range 1..32", sampleBits)
	}
	if sweepLen < 1 {
		return nil, fmt.Errorf("sweep length %d must be positive", sweepLen)
	}
	bits := payloadBits(sampleBits, fft)
	if bits%8 == 0 && Pow2Ceil(bits/8) == bits/8 {
		return nil, fmt.Errorf("%d-bit payload leaves no zero padding bit; flags would be ambiguous", bits)
	}

	return &Parser{
		sampleBits:  sampleBits,
		sweepLen:    sweepLen,
		fft:         fft,
		sampleBytes: SampleBytes(sampleBits, fft),
		nflags:      NumFlags(sampleBits, fft),
		work:        make([]Sample, sweepLen),
		sweep:       make([]Sample, sweepLen),
	}, nil
}

// SampleBytes returns the on-wire size of one sample for this stream.
func (p *Parser) SampleBytes() int { return p.sampleBytes }

// NumFlags returns the flag run length for this stream.
func (p *Parser) NumFlags() int { return p.nflags }

// SweepLen returns the number of samples per sweep.
func (p *Parser) SweepLen() int { return p.sweepLen }

// Feed advances the state machine over chunk, left to right. It never
// fails: every byte either advances the current frame or resyncs the
// parser. The whole chunk is always consumed, even while the slot is
// full, so the parser stays aligned with the live stream; sweeps that
// complete while the slot holds an unread one are counted and dropped.
//
// Returns the number of bytes consumed, which is len(chunk). The
// return value is advisory and only feeds raw-stream logging.
func (p *Parser) Feed(chunk []byte) int {
	for _, b := range chunk {
		switch p.phase {
		case awaitStart:
			if b != StartFlag {
				// A broken partial run is discarded entirely.
				p.startRun = 0
				continue
			}
			p.startRun++
			if p.startRun == p.nflags {
				p.startRun = 0
				p.sweepIdx = 0
				p.byteIdx = 0
				p.accum = 0
				p.phase = readSamples
			}

		case readSamples:
			p.accum |= uint64(b) << (8 * (p.sampleBytes - 1 - p.byteIdx))
			p.byteIdx++
			if p.byteIdx < p.sampleBytes {
				continue
			}
			s := Decode(p.accum, p.sampleBits, p.fft)
			if p.sweepIdx < p.sweepLen-1 {
				p.work[p.sweepIdx] = s
			} else {
				// Held back until the stop run proves the
				// frame valid; a consumer must never see a
				// sweep whose tail was never confirmed.
				p.last = s
			}
			p.sweepIdx++
			p.byteIdx = 0
			p.accum = 0
			if p.sweepIdx == p.sweepLen {
				p.phase = awaitStop
			}

		case awaitStop:
			if b != StopFlag {
				// Trailing junk: the device de-synced, so the
				// whole sweep is invalid. The bad byte is
				// consumed; the next byte is the first
				// candidate of a new start run.
				p.stats.Discarded++
				p.stopRun = 0
				p.sweepIdx = 0
				p.startRun = 0
				p.phase = awaitStart
				continue
			}
			p.stopRun++
			if p.stopRun == p.nflags {
				p.commit()
				p.stopRun = 0
				p.sweepIdx = 0
				p.phase = awaitStart
			}
		}
	}
	return len(chunk)
}

// commit publishes the assembled sweep into the slot. If the consumer
// has not drained the previous sweep the new one is dropped whole: the
// slot is never overwritten while valid.
func (p *Parser) commit() {
	if p.valid {
		p.stats.Dropped++
		return
	}
	copy(p.sweep, p.work[:p.sweepLen-1])
	p.sweep[p.sweepLen-1] = p.last
	p.valid = true
	p.stats.Published++
}

// TryTake copies the slot into out and clears it. Returns false when
// no unread sweep is available. out must hold SweepLen samples.
func (p *Parser) TryTake(out []Sample) bool {
	if !p.valid {
		return false
	}
	copy(out, p.sweep)
	p.valid = false
	return true
}

// Stats returns a snapshot of the parser's counters.
func (p *Parser) Stats() Stats { return p.stats }
