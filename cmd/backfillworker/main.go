// Command backfillworker drives application/backfill.UseCase for a
// single project: re-analyzing and re-ingesting any chapter that has a
// selected version but is missing analysis_data, generalized
// from the same straight-line wiring style as cmd/generateworker but
// trimmed to only the repositories that use case needs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/adapters/db/postgres"
	"github.com/novelforge/engine/internal/adapters/embeddings/ollama"
	"github.com/novelforge/engine/internal/adapters/embeddings/openai"
	"github.com/novelforge/engine/internal/adapters/llm/gemini"
	"github.com/novelforge/engine/internal/adapters/llmgateway"
	redisadapter "github.com/novelforge/engine/internal/adapters/redis"
	vectormemory "github.com/novelforge/engine/internal/adapters/vectorstore/memory"
	vectorpostgres "github.com/novelforge/engine/internal/adapters/vectorstore/postgres"
	"github.com/novelforge/engine/internal/application/analysis"
	"github.com/novelforge/engine/internal/application/backfill"
	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/application/ingest"
	"github.com/novelforge/engine/internal/platform/config"
	"github.com/novelforge/engine/internal/platform/database"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

func main() {
	projectID := flag.String("project", "", "project id to backfill")
	userID := flag.String("user", "", "user id attributed to the backfill run")
	maxParallel := flag.Int("max-parallel", backfill.DefaultMaxParallel, "max chapters backfilled concurrently")
	flag.Parse()

	if *projectID == "" {
		fmt.Fprintln(os.Stderr, "usage: backfillworker -project <id> [-user <id>] [-max-parallel N]")
		os.Exit(1)
	}
	pid, err := uuid.Parse(*projectID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid project id %q: %v\n", *projectID, err)
		os.Exit(1)
	}

	ctx := context.Background()
	cfg := config.Load()
	log := logger.New()

	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("connect postgres: %w", err))
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := redisadapter.NewClient(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("connect redis: %w", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	pgDB := postgres.NewDB(db)

	var store vectorstore.Store
	if cfg.VectorStore.Enabled {
		store = vectorpostgres.NewStore(vectorpostgres.NewDB(db))
	} else {
		store = vectormemory.NewStore(false)
	}

	completer := gemini.NewClient()

	var embedder interface {
		Embed(ctx context.Context, apiKey, model, text string) ([]float32, error)
		Dimension() int
	}
	switch cfg.Embedding.Provider {
	case "ollama":
		embedder = ollama.NewClient(cfg.Embedding.BaseURL)
	default:
		embedder = openai.NewClient(cfg.Embedding.BaseURL)
	}

	userConfigRepo := postgres.NewUserLLMConfigRepository(pgDB)
	quota := redisadapter.NewQuotaCounter(redisClient, cfg.LLM.DailyQuotaDefault)
	gateway := llmgateway.New(completer, embedder, cfg.Embedding.Model, userConfigRepo, quota, llmgateway.SystemDefaults{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
	})

	chapterRepo := postgres.NewChapterRepository(pgDB)
	chapterOutlineRepo := postgres.NewChapterOutlineRepository(pgDB)
	versionRepo := postgres.NewChapterVersionRepository(pgDB)
	blueprintRepo := postgres.NewBlueprintRepository(pgDB)
	tx := postgres.NewTransaction(pgDB)

	characterIdx := indices.NewCharacterStateIndex(postgres.NewCharacterStateIndexRepository(pgDB))
	foreshadow := indices.NewForeshadowingIndex(postgres.NewForeshadowingIndexRepository(pgDB))
	analyzer := analysis.NewAnalyzer(gateway)
	ingestor := ingest.NewChapterIngestor(store, gateway, ingest.DefaultSplitOptions())

	uc := backfill.New(chapterRepo, chapterOutlineRepo, versionRepo, blueprintRepo, tx, analyzer, characterIdx, foreshadow, ingestor, log, *maxParallel)

	results, err := uc.Execute(ctx, pid, *userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(results)

	for _, r := range results {
		if r.Err != nil {
			os.Exit(1)
		}
	}
}
