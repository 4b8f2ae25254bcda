package export

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Config controls the export manager. Values come from CROPENGINE_*
// environment variables with CLI flags layered on top by the caller.
type Config struct {
	// MaxConcurrentJobs bounds simultaneously encoding exports. Encoders
	// saturate quickly, so the default is serial.
	MaxConcurrentJobs int `envconfig:"MAX_CONCURRENT_JOBS" default:"1"`
	// MaskWorkers bounds parallel mask rasterization per job. Zero means
	// one worker per logical CPU.
	MaskWorkers int `envconfig:"MASK_WORKERS"`
	// KeepTempAssets leaves per-job temp directories behind for
	// inspection instead of removing them.
	KeepTempAssets bool `envconfig:"KEEP_TEMP_ASSETS"`
	// FFmpegBinary overrides the encoder binary on PATH.
	FFmpegBinary string `envconfig:"FFMPEG_BINARY" default:"ffmpeg"`
}

// LoadConfig reads configuration from the environment and fills in
// CPU-derived defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("cropengine", &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 1
	}
	if c.MaskWorkers <= 0 {
		n, err := cpu.Counts(true)
		if err != nil || n < 1 {
			n = 1
		}
		c.MaskWorkers = n
	}
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
}
