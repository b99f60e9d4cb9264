package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPow2Ceil(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{1000, 1024},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Pow2Ceil(c.in), "Pow2Ceil(%d)", c.in)
	}
}

func TestSampleBytesAndNumFlags(t *testing.T) {
	cases := []struct {
		bits      int
		fft       bool
		wantBytes int
		wantFlags int
	}{
		{7, false, 1, 2},   // W=7: one byte, two-byte flag run
		{12, false, 2, 4},  // W=12
		{14, false, 2, 4},  // W=14, the front-end's native ADC width
		{12, true, 4, 4},   // W=24: three bytes padded to four
		{14, true, 4, 8},   // W=28
		{17, false, 4, 4},  // W=17
		{25, false, 4, 8},  // W=25
		{20, true, 8, 8},   // W=40: five bytes padded to eight
		{31, true, 8, 16},  // W=62
		{32, true, 8, 16},  // W=64: eight bytes, flag run padded past it
	}
	for _, c := range cases {
		assert.Equal(t, c.wantBytes, SampleBytes(c.bits, c.fft), "SampleBytes(%d, %v)", c.bits, c.fft)
		assert.Equal(t, c.wantFlags, NumFlags(c.bits, c.fft), "NumFlags(%d, %v)", c.bits, c.fft)
	}
}

// The flag run must always be strictly longer than the minimum byte
// count of a sample, for every width the parser accepts. This is what
// makes a complete run unmistakable for payload.
func TestFlagRunExceedsPayload(t *testing.T) {
	for bits := 1; bits <= 32; bits++ {
		for _, fft := range []bool{false, true} {
			w := bits
			if fft {
				w *= 2
			}
			minBytes := (w + 7) / 8
			assert.Greater(t, NumFlags(bits, fft), minBytes, "bits=%d fft=%v", bits, fft)
			assert.GreaterOrEqual(t, SampleBytes(bits, fft), minBytes, "bits=%d fft=%v", bits, fft)
		}
	}
}

// Real-mode decode round-trips two's complement: encode v in the low
// bits of a zero-padded word, decode, and get v back.
func TestDecodeRealRoundTrip(t *testing.T) {
	for bits := 1; bits <= 32; bits++ {
		fieldMask := uint64(1)<<bits - 1
		lo := -(int64(1) << (bits - 1))
		hi := int64(1)<<(bits-1) - 1

		// Exhaustive for narrow widths, corner values otherwise.
		values := []int64{lo, lo + 1, -1, 0, 1, hi - 1, hi}
		if bits <= 10 {
			values = values[:0]
			for v := lo; v <= hi; v++ {
				values = append(values, v)
			}
		}
		for _, v := range values {
			if v < lo || v > hi {
				continue
			}
			accum := uint64(v) & fieldMask
			assert.Equal(t, Sample(v), Decode(accum, bits, false), "bits=%d v=%d", bits, v)
		}
	}
}

func TestDecodeFFTMagnitude(t *testing.T) {
	pack := func(lo, hi int64, bits int) uint64 {
		fieldMask := uint64(1)<<bits - 1
		return uint64(lo)&fieldMask | (uint64(hi)&fieldMask)<<bits
	}

	cases := []struct {
		bits   int
		lo, hi int64
	}{
		{7, 0, 0},
		{7, 3, 4},
		{7, -3, 4},
		{7, -64, -64},
		{7, 63, -64},
		{12, 100, -200},
		{12, -2048, 2047},
		{16, 30000, -30000},
	}
	for _, c := range cases {
		want := Sample(math.Round(math.Sqrt(float64(c.lo)*float64(c.lo) + float64(c.hi)*float64(c.hi))))
		got := Decode(pack(c.lo, c.hi, c.bits), c.bits, true)
		assert.Equal(t, want, got, "bits=%d lo=%d hi=%d", c.bits, c.lo, c.hi)
	}
}

// Exhaustive magnitude check for a narrow width.
func TestDecodeFFTMagnitudeExhaustive(t *testing.T) {
	const bits = 4
	fieldMask := uint64(1)<<bits - 1
	for lo := int64(-8); lo <= 7; lo++ {
		for hi := int64(-8); hi <= 7; hi++ {
			accum := uint64(lo)&fieldMask | (uint64(hi)&fieldMask)<<bits
			want := Sample(math.Round(math.Sqrt(float64(lo*lo + hi*hi))))
			require.Equal(t, want, Decode(accum, bits, true), "lo=%d hi=%d", lo, hi)
		}
	}
}
