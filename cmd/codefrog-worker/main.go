package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"codefrog/internal/modkit"
	"codefrog/internal/modkit/module"
	"codefrog/internal/modkit/repokit"
	"codefrog/internal/platform/config"
	"codefrog/internal/platform/logger"
	"codefrog/internal/platform/store"

	histmod "codefrog/internal/services/history/module"
	metmod "codefrog/internal/services/metrics/module"
	pipemod "codefrog/internal/services/pipeline/module"
	projmod "codefrog/internal/services/projects/module"
	treemod "codefrog/internal/services/sourcetree/module"
	trackmod "codefrog/internal/services/tracker/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("PG_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		AppName: "codefrog",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 8)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			Migrate:     pgCfg.MayBool("MIGRATE", true),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(context.Background(), st)

	deps := modkit.Deps{Cfg: root, PG: st.PG, Log: *l}

	pm := projmod.New(deps)
	hm := histmod.New(deps)
	tm := trackmod.New(deps)
	mm := metmod.New(deps)
	sm := treemod.New(deps)

	projPorts := pm.Ports().(projmod.Ports)
	plm := pipemod.New(deps, modkit.WithPorts(pipemod.Wiring{
		Projects: projPorts.Reader,
		Writer:   projPorts.Writer,
		History:  hm.Ports().(histmod.Ports).Ingester,
		Tracker:  tm.Ports().(trackmod.Ports).Ingester,
		Metrics:  mm.Ports().(metmod.Ports).Aggregator,
		Trees:    sm.Ports().(treemod.Ports).Builder,
	}))

	for _, m := range []modkit.Module{pm, hm, tm, mm, sm, plm} {
		module.Register(m.Name(), m.Ports())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := plm.Worker().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal().Err(err).Msg("worker stopped")
	}
}
