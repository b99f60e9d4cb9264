package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) *Config {
	t.Helper()
	var conf Config
	require.NoError(t, toml.Unmarshal(data, &conf))
	return &conf
}

// The embedded default must always be loadable: it is what a fresh
// install runs with.
func TestEmbeddedDefaultIsValid(t *testing.T) {
	conf := decode(t, defaultConfigData)
	require.NoError(t, apply(conf))
	assert.Equal(t, "bench", ProfileName)
	assert.Equal(t, 12, SampleBits)
	assert.Equal(t, 20480, SweepLen)
	assert.False(t, FFT)
}

func TestApplyMissingDefault(t *testing.T) {
	conf := decode(t, []byte(`
[[radar]]
name = "x"
sample_bits = 12
sweep_len = 100
`))
	assert.Error(t, apply(conf))
}

func TestApplyUnknownProfile(t *testing.T) {
	conf := decode(t, []byte(`
default = "nope"

[[radar]]
name = "x"
sample_bits = 12
sweep_len = 100
`))
	assert.Error(t, apply(conf))
}

func TestApplyRejectsUnparsableProfile(t *testing.T) {
	// 8-bit real samples leave no zero padding bit; the parser
	// rejects them and so must the config layer.
	conf := decode(t, []byte(`
default = "bad"

[[radar]]
name = "bad"
sample_bits = 8
sweep_len = 100
`))
	assert.Error(t, apply(conf))

	conf = decode(t, []byte(`
default = "bad"

[[radar]]
name = "bad"
sample_bits = 12
sweep_len = 0
`))
	assert.Error(t, apply(conf))
}
