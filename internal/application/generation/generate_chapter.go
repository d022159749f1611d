package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/application/rag"
	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/core/memory"
	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/core/project"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// chapterVersionLLMResponse is the strict shape requested of every
// candidate completion (§4.12 step 6): `{"title": string, "content":
// string}`, tolerating wrapping under `content`, `chapter_content`, or a
// bare string.
type chapterVersionLLMResponse struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GenerateChapterUseCase implements C12 (§4.12): assemble the tiered,
// budget-compressed context, fan out N candidate completions, and
// persist every version, generalized from the teacher's
// entity_extraction/phase2_entrypoint.go bounded-fan-out-then-persist
// shape and main-service/internal/application/story/generate_chapter.go's
// prompt-assembly conventions.
type GenerateChapterUseCase struct {
	blueprintRepo      repositories.BlueprintRepository
	chapterOutlineRepo repositories.ChapterOutlineRepository
	chapterRepo        repositories.ChapterRepository
	versionRepo        repositories.ChapterVersionRepository
	projectRepo        repositories.ProjectRepository
	gateway            llm.Gateway
	retriever          *rag.TemporalRetriever
	foreshadowing      *indices.ForeshadowingIndex
	maxParallel        int
	tokenBudget        int
	chapterTimeout     time.Duration
	retrievalTopK      int
	logger             *logger.Logger
}

// NewGenerateChapterUseCase constructs a GenerateChapterUseCase.
func NewGenerateChapterUseCase(
	blueprintRepo repositories.BlueprintRepository,
	chapterOutlineRepo repositories.ChapterOutlineRepository,
	chapterRepo repositories.ChapterRepository,
	versionRepo repositories.ChapterVersionRepository,
	projectRepo repositories.ProjectRepository,
	gateway llm.Gateway,
	retriever *rag.TemporalRetriever,
	foreshadowing *indices.ForeshadowingIndex,
	maxParallel, tokenBudget, retrievalTopK int,
	chapterTimeout time.Duration,
	log *logger.Logger,
) *GenerateChapterUseCase {
	return &GenerateChapterUseCase{
		blueprintRepo:      blueprintRepo,
		chapterOutlineRepo: chapterOutlineRepo,
		chapterRepo:        chapterRepo,
		versionRepo:        versionRepo,
		projectRepo:        projectRepo,
		gateway:            gateway,
		retriever:          retriever,
		foreshadowing:      foreshadowing,
		maxParallel:        maxParallel,
		tokenBudget:        tokenBudget,
		retrievalTopK:      retrievalTopK,
		chapterTimeout:     chapterTimeout,
		logger:             log,
	}
}

// Execute implements generate_chapter(project_id, user_id,
// chapter_number, writing_notes?, version_count?) -> Chapter.
func (uc *GenerateChapterUseCase) Execute(ctx context.Context, tenantID, projectID uuid.UUID, userID string, chapterNumber int, writingNotes string, versionCount int) (*chapter.Chapter, []*chapter.Version, error) {
	if versionCount < 1 {
		versionCount = 1
	}

	co, err := uc.chapterOutlineRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, nil, err
	}
	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	prompt, err := uc.assemblePrompt(ctx, userID, b, co, chapterNumber, writingNotes, "")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := uc.gateway.ResolveConfig(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := uc.gateway.CheckQuota(ctx, userID); err != nil {
		return nil, nil, err
	}

	labels := make([]string, versionCount)
	for i := range labels {
		labels[i] = fmt.Sprintf("版本%d", i+1)
	}

	type versionResult struct {
		version *chapter.Version
		failed  bool
	}

	results := runBounded(ctx, labels, uc.maxParallel, func(ctx context.Context, label string, index int) versionResult {
		raw, err := uc.gateway.Complete(ctx, "你是一位长篇小说作者，请根据下列上下文续写本章正文。"+
			"只返回严格符合 {\"title\":\"\",\"content\":\"\"} 的 JSON 对象，不要包含任何解释性文字。", []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		}, llm.CompleteOptions{
			Temperature:       0.75,
			ResponseFormat:    llm.ResponseFormatJSONObject,
			MaxTokens:         8192,
			Timeout:           uc.chapterTimeout,
			UserID:            userID,
			SkipUsageTracking: true,
			SkipQuotaCheck:    true,
			CachedConfig:      cfg,
		})
		if err != nil {
			return versionResult{version: chapter.NewFailedVersion(uuid.Nil, label, err), failed: true}
		}

		content, err := parseChapterVersionResponse(raw)
		if err != nil {
			return versionResult{version: chapter.NewFailedVersion(uuid.Nil, label, err), failed: true}
		}
		return versionResult{version: chapter.NewVersion(uuid.Nil, label, content, map[string]any{"provider": cfg.Provider, "model": cfg.Model})}
	})

	ch, err := uc.chapterRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, nil, err
		}
		ch, err = chapter.New(projectID, chapterNumber)
		if err != nil {
			return nil, nil, err
		}
		if err := uc.chapterRepo.Create(ctx, ch); err != nil {
			return nil, nil, err
		}
	}

	versions := make([]*chapter.Version, 0, len(results))
	successCount := 0
	for _, r := range results {
		r.version.ChapterID = ch.ID
		if err := uc.versionRepo.Create(ctx, r.version); err != nil {
			return nil, nil, err
		}
		versions = append(versions, r.version)
		if !r.failed {
			successCount++
		}
	}

	if successCount > 0 {
		ch.MarkWaitingForConfirm()
	} else {
		ch.MarkFailed()
	}
	if err := uc.chapterRepo.Update(ctx, ch); err != nil {
		return nil, nil, err
	}

	if successCount > 0 {
		if err := uc.gateway.IncrementQuota(ctx, userID, successCount); err != nil {
			uc.logger.Warn("quota increment failed", "user_id", userID, "error", err)
		}
	}

	if chapterNumber == 1 {
		p, err := uc.projectRepo.GetByID(ctx, tenantID, projectID)
		if err == nil && p.Status == project.StatusChapterOutlinesReady {
			if applyErr := p.Apply(project.EventFirstChapterStarted, false); applyErr == nil {
				_ = uc.projectRepo.Update(ctx, p)
			}
		}
	}

	uc.logger.Info("chapter generated", "project_id", projectID, "chapter_number", chapterNumber, "versions", len(versions), "successes", successCount)
	return ch, versions, nil
}

// assemblePrompt implements §4.12 steps 1-5: load priors, build queries,
// retrieve and dedup, build and compress tiered context, assemble the
// seven labeled sections in order. customPrompt, when non-empty, is
// appended to [当前章节目标] for `retry_chapter_version`'s custom_prompt
// parameter (§4.12 "Retry of one version").
func (uc *GenerateChapterUseCase) assemblePrompt(ctx context.Context, userID string, b *blueprint.Blueprint, co *outline.ChapterOutline, chapterNumber int, writingNotes, customPrompt string) (string, error) {
	allChapters, err := uc.chapterRepo.ListByProject(ctx, b.ProjectID)
	if err != nil {
		return "", err
	}

	var priors []rag.PriorChapterSummary
	var prevAnalysis *chapter.AnalysisData
	var prevContent string
	for _, ch := range allChapters {
		if ch.ChapterNumber >= chapterNumber {
			continue
		}
		summary := ""
		if ch.RealSummary != nil {
			summary = *ch.RealSummary
		}
		priors = append(priors, rag.PriorChapterSummary{ChapterNumber: ch.ChapterNumber, Summary: summary})
		if ch.ChapterNumber == chapterNumber-1 {
			prevAnalysis = ch.AnalysisData
			if ch.SelectedVersionID != nil {
				if v, err := uc.versionRepo.GetByID(ctx, *ch.SelectedVersionID); err == nil {
					prevContent = v.Content
				}
			}
		}
	}
	sort.Slice(priors, func(i, j int) bool { return priors[i].ChapterNumber < priors[j].ChapterNumber })

	pending, err := uc.foreshadowing.Pending(ctx, b.ProjectID.String(), chapterNumber, true)
	if err != nil {
		return "", err
	}
	resolutionTargets, err := uc.foreshadowing.SuggestResolutionChapters(ctx, b.ProjectID.String(), b.TotalChapters)
	if err != nil {
		return "", err
	}

	queries := rag.BuildQueries(rag.BuildQueriesInput{
		CurrentOutline:       co,
		Blueprint:            b,
		WritingNotes:         writingNotes,
		PendingForeshadowing: pending,
		ResolutionTargets:    resolutionTargets,
		CurrentChapter:       chapterNumber,
	})

	allQueries := []string{queries.MainQuery}
	allQueries = append(allQueries, queries.CharacterQueries...)
	allQueries = append(allQueries, queries.ForeshadowQueries...)
	if queries.LocationQuery != "" {
		allQueries = append(allQueries, queries.LocationQuery)
	}

	chunksByKey := map[string]*memory.Chunk{}
	summariesByChapter := map[int]*memory.Summary{}
	for _, q := range allQueries {
		if q == "" {
			continue
		}
		embedding, err := uc.gateway.Embed(ctx, q, llm.EmbedOptions{UserID: userID})
		if err != nil {
			return "", err
		}
		chunks, err := uc.retriever.RetrieveChunks(ctx, b.ProjectID.String(), embedding, chapterNumber, b.TotalChapters, uc.retrievalTopK)
		if err != nil {
			return "", err
		}
		for _, c := range chunks {
			key := fmt.Sprintf("%d:%d", c.ChapterNumber, c.ChunkIndex)
			if existing, ok := chunksByKey[key]; !ok || c.Score > existing.Score {
				chunksByKey[key] = c
			}
		}
		summaries, err := uc.retriever.RetrieveSummaries(ctx, b.ProjectID.String(), embedding, chapterNumber, b.TotalChapters, uc.retrievalTopK)
		if err != nil {
			return "", err
		}
		for _, s := range summaries {
			if existing, ok := summariesByChapter[s.ChapterNumber]; !ok || s.Score > existing.Score {
				summariesByChapter[s.ChapterNumber] = s
			}
		}
	}

	retrievedChunks := make([]*memory.Chunk, 0, len(chunksByKey))
	for _, c := range chunksByKey {
		retrievedChunks = append(retrievedChunks, c)
	}
	sort.Slice(retrievedChunks, func(i, j int) bool { return retrievedChunks[i].Score > retrievedChunks[j].Score })

	retrievedSummaries := make([]*memory.Summary, 0, len(summariesByChapter))
	for _, s := range summariesByChapter {
		retrievedSummaries = append(retrievedSummaries, s)
	}
	sort.Slice(retrievedSummaries, func(i, j int) bool { return retrievedSummaries[i].Score > retrievedSummaries[j].Score })

	var recentKeyEvents []chapter.KeyEvent
	if prevAnalysis != nil {
		recentKeyEvents = prevAnalysis.KeyEvents
	}

	layered := rag.BuildLayeredSummary(priors, chapterNumber)

	tieredCtx := rag.BuildContext(rag.BuildContextInput{
		Blueprint:              b,
		CurrentOutline:         co,
		PreviousVersionContent: prevContent,
		PreviousAnalysis:       prevAnalysis,
		PendingForeshadowing:   pending,
		RetrievedSummaries:     retrievedSummaries,
		RetrievedChunks:        retrievedChunks,
		RecentKeyEvents:        recentKeyEvents,
		LayeredSummary:         layered,
	})

	counter := func(s string) int { return len([]rune(s)) }

	var layeredText strings.Builder
	for _, entry := range layered {
		fmt.Fprintf(&layeredText, "第%d章: %s\n", entry.ChapterNumber, entry.Text)
	}

	prevSummary := ""
	if len(priors) > 0 {
		prevSummary = priors[len(priors)-1].Summary
	}

	var chunksText strings.Builder
	for _, c := range tieredCtx.Reference.TopChunks {
		fmt.Fprintf(&chunksText, "第%d章片段: %s\n", c.ChapterNumber, c.Content)
	}

	var summariesText strings.Builder
	for _, s := range tieredCtx.Important.TopSummaries {
		fmt.Fprintf(&summariesText, "第%d章摘要: %s\n", s.ChapterNumber, s.Summary)
	}

	goal := fmt.Sprintf("第%d章《%s》：%s", chapterNumber, co.Title, co.Summary)
	if writingNotes != "" {
		goal += "\n写作提示：" + writingNotes
	}
	if customPrompt != "" {
		goal += "\n额外要求：" + customPrompt
	}

	// §4.11's budget-fit pass applied to the labeled-section prompt
	// rather than rag.Compress directly: [世界蓝图] and [当前章节目标] carry
	// the blueprint identity and the chapter's own goal, so they fill the
	// Required role (never dropped, per C11's contract) and are excluded
	// from the truncation budget entirely. [前情摘要]/[上一章摘要]/
	// [上一章结尾]/[检索到的章节摘要] play Important (capped at 0.7× what's
	// left) and [检索到的剧情上下文] plays Reference (fills the remainder),
	// mirroring rag.Compress's tier ordering exactly.
	required := fmt.Sprintf("[世界蓝图]\n%s\n", rag.RenderRequired(tieredCtx.Required, true, true))
	goalSection := fmt.Sprintf("[当前章节目标]\n%s\n", goal)
	remaining := uc.tokenBudget - counter(required) - counter(goalSection)
	if remaining < 0 {
		remaining = 0
	}

	important := fmt.Sprintf("[前情摘要]\n%s\n[上一章摘要]\n%s\n[上一章结尾]\n%s\n[检索到的章节摘要]\n%s\n",
		layeredText.String(), prevSummary, tieredCtx.Required.PreviousEndingExcerpt, summariesText.String())
	importantBudget := int(0.7 * float64(remaining))
	important = rag.TruncateToBudget(important, importantBudget, counter)
	remaining -= counter(important)
	if remaining < 0 {
		remaining = 0
	}

	reference := fmt.Sprintf("[检索到的剧情上下文]\n%s\n", chunksText.String())
	reference = rag.TruncateToBudget(reference, remaining, counter)

	return required + important + reference + goalSection, nil
}

// RetryVersion regenerates a single candidate using the same assembled
// context as Execute, optionally appending customPrompt to the
// [当前章节目标] section (§4.12 "Retry of one version"). It does not
// touch quota tracking beyond the single completion it performs.
func (uc *GenerateChapterUseCase) RetryVersion(ctx context.Context, projectID uuid.UUID, userID, label string, chapterNumber int, writingNotes, customPrompt string) (*chapter.Version, error) {
	co, err := uc.chapterOutlineRepo.GetByNumber(ctx, projectID, chapterNumber)
	if err != nil {
		return nil, err
	}
	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	prompt, err := uc.assemblePrompt(ctx, userID, b, co, chapterNumber, writingNotes, customPrompt)
	if err != nil {
		return nil, err
	}

	cfg, err := uc.gateway.ResolveConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.gateway.CheckQuota(ctx, userID); err != nil {
		return nil, err
	}

	raw, err := uc.gateway.Complete(ctx, "你是一位长篇小说作者，请根据下列上下文续写本章正文。"+
		"只返回严格符合 {\"title\":\"\",\"content\":\"\"} 的 JSON 对象，不要包含任何解释性文字。", []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.CompleteOptions{
		Temperature:    0.75,
		ResponseFormat: llm.ResponseFormatJSONObject,
		MaxTokens:      8192,
		Timeout:        uc.chapterTimeout,
		UserID:         userID,
		CachedConfig:   cfg,
	})
	if err != nil {
		return chapter.NewFailedVersion(uuid.Nil, label, err), nil
	}

	content, err := parseChapterVersionResponse(raw)
	if err != nil {
		return chapter.NewFailedVersion(uuid.Nil, label, err), nil
	}
	return chapter.NewVersion(uuid.Nil, label, content, map[string]any{"provider": cfg.Provider, "model": cfg.Model}), nil
}

func parseChapterVersionResponse(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	var resp chapterVersionLLMResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err == nil && resp.Content != "" {
		return resp.Content, nil
	}

	var wrapper map[string]any
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil {
		for _, key := range []string{"content", "chapter_content"} {
			if v, ok := wrapper[key].(string); ok && v != "" {
				return v, nil
			}
		}
	}

	var bare string
	if err := json.Unmarshal([]byte(trimmed), &bare); err == nil && bare != "" {
		return bare, nil
	}

	if trimmed != "" && trimmed[0] != '{' && trimmed[0] != '[' {
		return trimmed, nil
	}

	return "", &apperrors.LLMEmptyError{}
}
