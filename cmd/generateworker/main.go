// Command generateworker wires the engine's dependency graph and
// dispatches the twelve core operations of §6 (plus the two supplemental
// read operations) as subcommands, generalized from the teacher's
// cmd/api-offline straight-line wiring (repos, then use cases, then
// dispatch) without its HTTP transport layer, since routing/schemas are
// explicitly out of scope (§1).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/adapters/db/postgres"
	"github.com/novelforge/engine/internal/adapters/embeddings/ollama"
	"github.com/novelforge/engine/internal/adapters/embeddings/openai"
	"github.com/novelforge/engine/internal/adapters/llm/gemini"
	"github.com/novelforge/engine/internal/adapters/llmgateway"
	"github.com/novelforge/engine/internal/adapters/notify"
	redisadapter "github.com/novelforge/engine/internal/adapters/redis"
	vectormemory "github.com/novelforge/engine/internal/adapters/vectorstore/memory"
	vectorpostgres "github.com/novelforge/engine/internal/adapters/vectorstore/postgres"
	"github.com/novelforge/engine/internal/application/analysis"
	"github.com/novelforge/engine/internal/application/generation"
	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/application/ingest"
	"github.com/novelforge/engine/internal/application/rag"
	"github.com/novelforge/engine/internal/platform/config"
	"github.com/novelforge/engine/internal/platform/database"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/vectorstore"
)

type app struct {
	cfg     *config.Config
	log     *logger.Logger
	gateway llm.Gateway

	projectRepo        *postgres.ProjectRepository
	blueprintRepo      *postgres.BlueprintRepository
	partOutlineRepo    *postgres.PartOutlineRepository
	chapterOutlineRepo *postgres.ChapterOutlineRepository
	chapterRepo        *postgres.ChapterRepository
	versionRepo        *postgres.ChapterVersionRepository
	evaluationRepo     *postgres.ChapterEvaluationRepository
	characterIdxRepo   *postgres.CharacterStateIndexRepository
	foreshadowingRepo  *postgres.ForeshadowingIndexRepository
	tx                 *postgres.Transaction

	characterIdx *indices.CharacterStateIndex
	foreshadow   *indices.ForeshadowingIndex
	analyzer     *analysis.Analyzer
	ingestor     *ingest.ChapterIngestor
	retriever    *rag.TemporalRetriever
	notifier     *notify.HTTPNotifier

	cascade *generation.Cascade
}

func buildApp(ctx context.Context) (*app, func(), error) {
	cfg := config.Load()
	log := logger.New()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := redisadapter.NewClient(cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	pgDB := postgres.NewDB(db)

	var store vectorstore.Store
	if cfg.VectorStore.Enabled {
		store = vectorpostgres.NewStore(vectorpostgres.NewDB(db))
	} else {
		store = vectormemory.NewStore(false)
	}

	var completer *gemini.Client = gemini.NewClient()

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

	a := &app{
		cfg:                cfg,
		log:                log,
		gateway:            gateway,
		projectRepo:        postgres.NewProjectRepository(pgDB),
		blueprintRepo:      postgres.NewBlueprintRepository(pgDB),
		partOutlineRepo:    postgres.NewPartOutlineRepository(pgDB),
		chapterOutlineRepo: postgres.NewChapterOutlineRepository(pgDB),
		chapterRepo:        postgres.NewChapterRepository(pgDB),
		versionRepo:        postgres.NewChapterVersionRepository(pgDB),
		evaluationRepo:     postgres.NewChapterEvaluationRepository(pgDB),
		characterIdxRepo:   postgres.NewCharacterStateIndexRepository(pgDB),
		foreshadowingRepo:  postgres.NewForeshadowingIndexRepository(pgDB),
		tx:                 postgres.NewTransaction(pgDB),
		notifier:           notify.NewHTTPNotifier(cfg.Notify.BaseURL),
	}
	a.characterIdx = indices.NewCharacterStateIndex(a.characterIdxRepo)
	a.foreshadow = indices.NewForeshadowingIndex(a.foreshadowingRepo)
	a.analyzer = analysis.NewAnalyzer(gateway)
	a.ingestor = ingest.NewChapterIngestor(store, gateway, ingest.DefaultSplitOptions())
	a.retriever = rag.NewTemporalRetriever(store, rag.DefaultRetrieverWeights())
	a.cascade = generation.NewCascade(
		a.partOutlineRepo, a.chapterOutlineRepo, a.chapterRepo, a.versionRepo,
		a.evaluationRepo, a.characterIdxRepo, a.foreshadowingRepo, store,
	)

	cleanup := func() {
		db.Close()
		_ = redisClient.Close()
	}
	return a, cleanup, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	a, cleanup, err := buildApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	op := os.Args[1]
	args := os.Args[2:]

	var result any
	switch op {
	case "create_project":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		tenantID := fs.String("tenant", "", "tenant id")
		userID := fs.String("user", "", "user id")
		title := fs.String("title", "", "project title")
		prompt := fs.String("prompt", "", "initial prompt")
		fs.Parse(args)
		uc := generation.NewCreateProjectUseCase(a.projectRepo, a.log)
		result, err = uc.Execute(ctx, mustUUID(*tenantID), *userID, *title, *prompt)

	case "generate_blueprint":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		tenantID := fs.String("tenant", "", "tenant id")
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		totalChapters := fs.Int("total-chapters", 100, "total chapters")
		chaptersPerPart := fs.Int("chapters-per-part", 10, "chapters per part")
		fs.Parse(args)
		uc := generation.NewGenerateBlueprintUseCase(a.projectRepo, a.blueprintRepo, a.cascade, a.gateway, a.tx, a.log)
		result, err = uc.Execute(ctx, mustUUID(*tenantID), mustUUID(*projectID), *userID, *totalChapters, *chaptersPerPart)

	case "refine_blueprint":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		instruction := fs.String("instruction", "", "refinement instruction")
		fs.Parse(args)
		uc := generation.NewRefineBlueprintUseCase(a.blueprintRepo, a.gateway, a.log)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *instruction)

	case "generate_part_outlines":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		totalChapters := fs.Int("total-chapters", 100, "total chapters")
		chaptersPerPart := fs.Int("chapters-per-part", 10, "chapters per part")
		optimizationPrompt := fs.String("optimization-prompt", "", "optional optimization prompt")
		fs.Parse(args)
		staleThreshold := time.Duration(a.cfg.Generation.StaleGeneratingMins) * time.Minute
		uc := generation.NewGeneratePartOutlinesUseCase(a.blueprintRepo, a.partOutlineRepo, a.projectRepo, a.gateway, staleThreshold, a.log)
		var optPrompt *string
		if *optimizationPrompt != "" {
			optPrompt = optimizationPrompt
		}
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *totalChapters, *chaptersPerPart, optPrompt)

	case "generate_chapter_outlines":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		tenantID := fs.String("tenant", "", "tenant id")
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		count := fs.Int("count", 10, "chapter outlines to generate")
		fs.Parse(args)
		uc := generation.NewGenerateChapterOutlinesUseCase(a.projectRepo, a.blueprintRepo, a.partOutlineRepo, a.chapterOutlineRepo, a.gateway, a.cfg.Generation.OutlineBatchSize, a.log)
		result, err = uc.Execute(ctx, mustUUID(*tenantID), mustUUID(*projectID), *userID, *count)

	case "generate_part_chapters":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		partNumber := fs.Int("part", 1, "part number")
		regenerate := fs.Bool("regenerate", false, "regenerate existing outlines")
		fs.Parse(args)
		uc := generation.NewGeneratePartChaptersUseCase(a.blueprintRepo, a.partOutlineRepo, a.chapterOutlineRepo, a.gateway, a.cascade, a.cfg.Generation.OutlineBatchSize, a.log)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *partNumber, *regenerate)

	case "regenerate_chapter_outline":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		chapterNumber := fs.Int("chapter", 1, "chapter number")
		cascadeDelete := fs.Bool("cascade-delete", false, "confirm cascade delete")
		prompt := fs.String("prompt", "", "regeneration prompt")
		fs.Parse(args)
		uc := generation.NewRegenerateChapterOutlineUseCase(a.blueprintRepo, a.partOutlineRepo, a.chapterOutlineRepo, a.gateway, a.cascade, a.log)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *chapterNumber, *cascadeDelete, *prompt)

	case "delete_chapter_outlines":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		countFromEnd := fs.Int("count-from-end", 1, "number of trailing outlines to delete")
		fs.Parse(args)
		uc := generation.NewDeleteChapterOutlinesUseCase(a.chapterOutlineRepo, a.log)
		err = uc.Execute(ctx, mustUUID(*projectID), *userID, *countFromEnd)

	case "generate_chapter":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		tenantID := fs.String("tenant", "", "tenant id")
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		chapterNumber := fs.Int("chapter", 1, "chapter number")
		writingNotes := fs.String("notes", "", "writing notes")
		versionCount := fs.Int("versions", a.cfg.Generation.DefaultVersionCount, "candidate version count")
		fs.Parse(args)
		chapterTimeout := time.Duration(a.cfg.LLM.ChapterTimeoutSecs) * time.Second
		uc := generation.NewGenerateChapterUseCase(
			a.blueprintRepo, a.chapterOutlineRepo, a.chapterRepo, a.versionRepo, a.projectRepo,
			a.gateway, a.retriever, a.foreshadow,
			a.cfg.Generation.MaxParallelVersions, a.cfg.Generation.TokenBudget, a.cfg.Generation.RetrievalTopK, chapterTimeout, a.log,
		)
		var chap any
		var versions any
		chap, versions, err = uc.Execute(ctx, mustUUID(*tenantID), mustUUID(*projectID), *userID, *chapterNumber, *writingNotes, *versionCount)
		result = map[string]any{"chapter": chap, "versions": versions}

	case "retry_chapter_version":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		chapterNumber := fs.Int("chapter", 1, "chapter number")
		versionIndex := fs.Int("version-index", 0, "failed version index to retry")
		customPrompt := fs.String("prompt", "", "custom retry prompt")
		fs.Parse(args)
		chapterTimeout := time.Duration(a.cfg.LLM.ChapterTimeoutSecs) * time.Second
		generator := generation.NewGenerateChapterUseCase(
			a.blueprintRepo, a.chapterOutlineRepo, a.chapterRepo, a.versionRepo, a.projectRepo,
			a.gateway, a.retriever, a.foreshadow,
			a.cfg.Generation.MaxParallelVersions, a.cfg.Generation.TokenBudget, a.cfg.Generation.RetrievalTopK, chapterTimeout, a.log,
		)
		uc := generation.NewRetryChapterVersionUseCase(a.chapterRepo, a.versionRepo, generator, a.log)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *chapterNumber, *versionIndex, *customPrompt)

	case "select_chapter_version":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		chapterNumber := fs.Int("chapter", 1, "chapter number")
		versionIndex := fs.Int("version-index", 0, "version index to select")
		fs.Parse(args)
		uc := generation.NewSelectChapterVersionUseCase(a.chapterRepo, a.chapterOutlineRepo, a.versionRepo, a.blueprintRepo, a.analyzer, a.characterIdx, a.foreshadow, a.ingestor, a.log)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *chapterNumber, *versionIndex)
		if err == nil {
			notifyErr := a.notifier.NotifyChapterReady(ctx, *projectID, *chapterNumber)
			if notifyErr != nil {
				a.log.Warn("chapter notify failed", "error", notifyErr)
			}
		}

	case "update_chapter_content":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		userID := fs.String("user", "", "user id")
		chapterNumber := fs.Int("chapter", 1, "chapter number")
		newContent := fs.String("content", "", "replacement chapter content")
		fs.Parse(args)
		uc := generation.NewUpdateChapterContentUseCase(a.chapterRepo, a.chapterOutlineRepo, a.versionRepo, a.blueprintRepo, a.analyzer, a.characterIdx, a.foreshadow, a.ingestor, a.log)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *userID, *chapterNumber, *newContent)

	case "get_character_timeline":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		character := fs.String("character", "", "character name")
		beforeChapter := fs.Int("before-chapter", 0, "exclusive upper chapter bound")
		limit := fs.Int("limit", 50, "max rows")
		fs.Parse(args)
		uc := generation.NewGetCharacterTimelineUseCase(a.characterIdx)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *character, *beforeChapter, *limit)

	case "list_pending_foreshadowing":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		currentChapter := fs.Int("current-chapter", 1, "current chapter number")
		includeOverdue := fs.Bool("include-overdue", true, "include overdue reminders")
		fs.Parse(args)
		uc := generation.NewListPendingForeshadowingUseCase(a.foreshadow)
		result, err = uc.Execute(ctx, mustUUID(*projectID), *currentChapter, *includeOverdue)

	case "delete_everything":
		fs := flag.NewFlagSet(op, flag.ExitOnError)
		projectID := fs.String("project", "", "project id")
		fs.Parse(args)
		err = a.cascade.DeleteEverything(ctx, mustUUID(*projectID))

	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	}
}

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid id %q: %v\n", s, err)
		os.Exit(1)
	}
	return id
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: generateworker <operation> [flags]

operations:
  create_project, generate_blueprint, refine_blueprint,
  generate_part_outlines, generate_chapter_outlines, generate_part_chapters,
  regenerate_chapter_outline, delete_chapter_outlines, generate_chapter,
  retry_chapter_version, select_chapter_version, update_chapter_content,
  get_character_timeline, list_pending_foreshadowing, delete_everything`)
}
