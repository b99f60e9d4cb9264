package frame

import (
	"math"
)

// Framing flag bytes. Both have the top bit set, which is what makes a
// flag run distinguishable from sample data: every sample word is
// zero-padded so the top bit of its high byte is zero.
const (
	StartFlag = 0xFF
	StopFlag  = 0x8F
)

// Sample is one decoded radar sample: the two's-complement value of
// the payload in real mode, or the rounded magnitude of the packed
// complex pair in FFT mode.
type Sample int32

// Pow2Ceil returns the smallest power of two greater than or equal to n.
// Pow2Ceil(0) is 1.
func Pow2Ceil(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// payloadBits is the effective payload width in bits: FFT mode packs
// two sampleBits-wide components into one word.
func payloadBits(sampleBits int, fft bool) int {
	if fft {
		return sampleBits * 2
	}
	return sampleBits
}

// SampleBytes returns the on-wire size of one sample in bytes: the
// minimum byte count for the payload, rounded up to a power of two.
// The rounding pads the word with high-order zero bits.
func SampleBytes(sampleBits int, fft bool) int {
	bits := payloadBits(sampleBits, fft)
	bytes := bits / 8
	if bits%8 != 0 {
		bytes++
	}
	return Pow2Ceil(bytes)
}

// NumFlags returns the length of a start or stop flag run in bytes:
// one byte longer than the minimum payload byte count, rounded up to a
// power of two. A complete run is therefore strictly longer than any
// sample, so no sequence of sample bytes can produce one.
func NumFlags(sampleBits int, fft bool) int {
	bits := payloadBits(sampleBits, fft)
	return Pow2Ceil((bits+7)/8 + 1)
}

// signed interprets the low bits of u as a two's-complement integer of
// the given width.
func signed(u uint64, bits int) int64 {
	signMask := uint64(1) << (bits - 1)
	return int64(u&^signMask) - int64(u&signMask)
}

// Decode converts a raw unsigned sample word into a Sample.
//
// In real mode the word carries a single two's-complement value in its
// low sampleBits bits. In FFT mode it carries two such values, the
// lower component in the low sampleBits bits and the upper component
// in the next sampleBits bits; the result is the rounded Euclidean
// magnitude of the pair.
func Decode(accum uint64, sampleBits int, fft bool) Sample {
	if !fft {
		return Sample(signed(accum, sampleBits))
	}

	fieldMask := uint64(1)<<sampleBits - 1
	lo := signed(accum&fieldMask, sampleBits)
	hi := signed(accum>>sampleBits&fieldMask, sampleBits)
	return Sample(math.Round(math.Sqrt(float64(lo)*float64(lo) + float64(hi)*float64(hi))))
}
