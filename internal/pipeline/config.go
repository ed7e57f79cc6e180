package pipeline

import (
	"context"
	"time"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	DefaultWeightsDir     = "/weights"
	defaultMaxConcurrent  = 1
	defaultBackend        = BackendSubprocess
	defaultWorkerBin      = "fashn-vton-worker"
	defaultWorkerHost     = "127.0.0.1"
	defaultStartTimeout   = 5 * time.Minute
	defaultRequestTimeout = 0 // no additional deadline
)

// Backend names accepted by LoadPipeline.
const (
	BackendSubprocess = "subprocess"
	BackendRemote     = "remote"
)

// LoaderFunc constructs a pipeline from the weights directory.
type LoaderFunc func(ctx context.Context, cfg LoadConfig) (Pipeline, error)

// LoadConfig carries everything a runtime needs to come up.
type LoadConfig struct {
	WeightsDir string
	Backend    string
	// Subprocess backend
	WorkerBin       string
	WorkerHost      string
	WorkerPortStart int
	WorkerPortEnd   int
	WorkerExtraArgs []string
	StartTimeout    time.Duration
	// Remote backend
	WorkerURL string
	// Applied to every runtime call via context (0 disables).
	RequestTimeout time.Duration

	Publisher EventPublisher
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	LoadConfig
	// MaxConcurrent bounds simultaneous runtime invocations.
	MaxConcurrent int
	// Loader overrides LoadPipeline (tests inject fakes here).
	Loader    LoaderFunc
	Publisher EventPublisher
}

// withDefaults returns a copy of cfg with unset fields replaced by defaults.
func (cfg ManagerConfig) withDefaults() ManagerConfig {
	if cfg.WeightsDir == "" {
		cfg.WeightsDir = DefaultWeightsDir
	}
	if cfg.Backend == "" {
		cfg.Backend = defaultBackend
	}
	if cfg.WorkerBin == "" {
		cfg.WorkerBin = defaultWorkerBin
	}
	if cfg.WorkerHost == "" {
		cfg.WorkerHost = defaultWorkerHost
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.RequestTimeout < 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Loader == nil {
		cfg.Loader = LoadPipeline
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	cfg.LoadConfig.Publisher = cfg.Publisher
	return cfg
}
