package module

import (
	"codefrog/internal/platform/config"
	"codefrog/internal/services/history/service"
)

// FromConfig reads history tuning from the environment.
// CHUNK_SIZE bounds commits per worker batch, HISTORY_WORKERS caps fan out.
func FromConfig(cfg config.Conf) service.Config {
	return service.Config{
		ChunkSize: cfg.MayInt("CHUNK_SIZE", 100),
		Workers:   cfg.MayInt("HISTORY_WORKERS", 4),
	}
}
