package core

// EngineConfig defines the settings shared by every processing graph:
// the sample rate audio arrives at and the largest block a single
// process call may carry.
type EngineConfig struct {
	SampleRate float64
	BlockSize  int
}

// EngineOption mutates an EngineConfig.
type EngineOption func(*EngineConfig)

// DefaultEngineConfig returns the defaults used by the standalone host
// and the package tests.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate: 48000,
		BlockSize:  512,
	}
}

// WithSampleRate sets the engine sample rate. Non-positive values are
// ignored so callers can pass unvalidated flag input.
func WithSampleRate(sampleRate float64) EngineOption {
	return func(cfg *EngineConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the maximum processing block size. Non-positive
// values are ignored.
func WithBlockSize(blockSize int) EngineOption {
	return func(cfg *EngineConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// ApplyEngineOptions applies zero or more options to the default config.
func ApplyEngineOptions(opts ...EngineOption) EngineConfig {
	cfg := DefaultEngineConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
