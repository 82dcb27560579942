package module

import (
	"time"

	"codefrog/internal/platform/config"
	"codefrog/internal/services/pipeline/service"
)

// FromConfig reads orchestrator tuning from the environment.
// TASK_EXPIRATION is in seconds and bounds how long a task may sit queued.
func FromConfig(cfg config.Conf) service.Config {
	return service.Config{
		TaskTTL: time.Duration(cfg.MayInt("TASK_EXPIRATION", 21600)) * time.Second,
	}
}

// WorkerFromConfig reads claim loop tuning from the environment
func WorkerFromConfig(cfg config.Conf) service.WorkerConfig {
	return service.WorkerConfig{
		Name:         cfg.MayString("WORKER_NAME", ""),
		PollInterval: time.Duration(cfg.MayInt("WORKER_POLL_SECONDS", 2)) * time.Second,
		Concurrency:  cfg.MayInt("WORKER_CONCURRENCY", 4),
	}
}
