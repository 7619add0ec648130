package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig controls the Scheduler (component D).
type SchedulerConfig struct {
	Policy           string        `yaml:"policy"`             // "fifo", "data-locality", "full-graph"
	MaxRetries       int           `yaml:"maxRetries"`
	CancelTimeout    time.Duration `yaml:"cancelTimeout"`
	StarvationWait   time.Duration `yaml:"starvationWait"`
	StarvationBump   int           `yaml:"starvationBump"`
	StarvationCap    int           `yaml:"starvationCap"`
	FailureScanEvery time.Duration `yaml:"failureScanEvery"`
	ProfileDecaySpec string        `yaml:"profileDecaySpec"` // cron spec
	ProfileMaxAge    time.Duration `yaml:"profileMaxAge"`
}

// TransferConfig controls the Worker Data Manager's transfer behavior.
type TransferConfig struct {
	Parallelism        int  `yaml:"parallelism"`
	AllowNonAtomicMove bool `yaml:"allowNonAtomicMove"`
}

// StorageConfig controls the Storage collaborator (PSCO backend).
type StorageConfig struct {
	ConfigPath string `yaml:"configPath"` // empty disables PSCO support
}

// APIConfig controls the gRPC listener.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// Config is the full runtime configuration surface.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Storage   StorageConfig   `yaml:"storage"`
	API       APIConfig       `yaml:"api"`
	LogLevel  string          `yaml:"logLevel"`
	LogJSON   bool            `yaml:"logJSON"`
}

// Default returns the zero-config startup configuration: a starvation cap
// of submitPriority+10 and allowNonAtomicMove enabled by default.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Policy:           "fifo",
			MaxRetries:       3,
			CancelTimeout:    10 * time.Second,
			StarvationWait:   30 * time.Second,
			StarvationBump:   1,
			StarvationCap:    10,
			FailureScanEvery: 5 * time.Second,
			ProfileDecaySpec: "0 */15 * * * *",
			ProfileMaxAge:    1 * time.Hour,
		},
		Transfer: TransferConfig{
			Parallelism:        4,
			AllowNonAtomicMove: true,
		},
		Storage: StorageConfig{},
		API: APIConfig{
			ListenAddr: ":7979",
		},
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Load reads a YAML config file, decoding it over Default(), so any field
// the file leaves unset keeps its default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
