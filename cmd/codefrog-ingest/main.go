package main

import (
	"context"
	"flag"
	"strings"

	"github.com/google/uuid"

	"codefrog/internal/modkit"
	"codefrog/internal/modkit/module"
	"codefrog/internal/modkit/repokit"
	"codefrog/internal/platform/config"
	perr "codefrog/internal/platform/errors"
	"codefrog/internal/platform/logger"
	"codefrog/internal/platform/store"

	histmod "codefrog/internal/services/history/module"
	metmod "codefrog/internal/services/metrics/module"
	pipemod "codefrog/internal/services/pipeline/module"
	projdom "codefrog/internal/services/projects/domain"
	projmod "codefrog/internal/services/projects/module"
	treemod "codefrog/internal/services/sourcetree/module"
	trackmod "codefrog/internal/services/tracker/module"
)

func main() {
	var (
		fSlug   = flag.String("slug", "", "project slug to operate on")
		fName   = flag.String("name", "", "register a new project with this name")
		fGitURL = flag.String("git-url", "", "clone url for -name")
		fUpdate = flag.Bool("update", false, "queue an incremental update instead of a full ingest")
		fAll    = flag.Bool("all", false, "queue an incremental update for every active project")
		fPurge  = flag.Bool("purge", false, "delete all derived data for -slug and exit")
	)
	flag.Parse()

	root := config.New()
	pgCfg := root.Prefix("PG_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		AppName: "codefrog",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
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

	pipe := plm.Ports().(pipemod.Ports).Orchestrator
	ctx := context.Background()

	if *fAll {
		projects, err := projPorts.Reader.ListActive(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("list projects failed")
		}
		for _, p := range projects {
			if _, err := pipe.EnqueueUpdate(ctx, p.ID); err != nil {
				if perr.IsCode(err, perr.ErrorCodeConflict) {
					l.Info().Str("slug", p.Slug).Msg("pipeline already active, skipped")
					continue
				}
				l.Fatal().Err(err).Str("slug", p.Slug).Msg("enqueue failed")
			}
			l.Info().Str("slug", p.Slug).Msg("queued update")
		}
		return
	}

	project, err := resolveProject(ctx, projPorts, *fSlug, *fName, *fGitURL)
	if err != nil {
		l.Fatal().Err(err).Msg("resolve project failed")
	}

	if *fPurge {
		if err := projPorts.Writer.Purge(ctx, project.ID); err != nil {
			l.Fatal().Err(err).Str("slug", project.Slug).Msg("purge failed")
		}
		l.Info().Str("slug", project.Slug).Msg("purged derived data")
		return
	}

	var runID uuid.UUID
	if *fUpdate {
		runID, err = pipe.EnqueueUpdate(ctx, project.ID)
	} else {
		runID, err = pipe.EnqueueIngest(ctx, project.ID)
	}
	if err != nil {
		l.Fatal().Err(err).Str("slug", project.Slug).Msg("enqueue failed")
	}
	l.Info().Str("slug", project.Slug).Str("run_id", runID.String()).Msg("pipeline queued")
}

// resolveProject looks up -slug, registering first when -name is given
func resolveProject(ctx context.Context, ports projmod.Ports, slug, name, gitURL string) (projdom.Project, error) {
	if name != "" {
		if gitURL == "" {
			return projdom.Project{}, perr.Newf(perr.ErrorCodeValidation, "-name requires -git-url")
		}
		if slug == "" {
			slug = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
		}
		return ports.Writer.Create(ctx, projdom.CreateInput{
			Name:   name,
			Slug:   slug,
			GitURL: gitURL,
		})
	}
	if slug == "" {
		return projdom.Project{}, perr.Newf(perr.ErrorCodeValidation, "provide -slug, -name, or -all")
	}
	return ports.Reader.BySlug(ctx, slug)
}
