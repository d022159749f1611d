package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/outline"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// ProgressReport summarizes a batch/serial generation run for callers
// that poll rather than block on the full pipeline (§6
// generate_part_outlines return type).
type ProgressReport struct {
	TotalParts     int
	CompletedParts int
	Parts          []*outline.PartOutline
}

// partOutlineLLMResponse is the strict JSON shape requested per part
// (§4.13 "Part outline generation").
type partOutlineLLMResponse struct {
	Title         string            `json:"title"`
	Summary       string            `json:"summary"`
	Theme         string            `json:"theme"`
	KeyEvents     []string          `json:"key_events"`
	Conflicts     []string          `json:"conflicts"`
	CharacterArcs map[string]string `json:"character_arcs"`
	EndingHook    string            `json:"ending_hook"`
}

// GeneratePartOutlinesUseCase implements `generate_part_outlines` (§6):
// serial part-by-part generation, each part seeing every previously
// produced part, with staleness cleanup and cooperative cancellation
// checkpoints (§4.13, §5), generalized from the teacher's
// llm-gateway-service/internal/application/extract/phase2_entrypoint.go
// checkpointed-loop shape.
type GeneratePartOutlinesUseCase struct {
	blueprintRepo   repositories.BlueprintRepository
	partOutlineRepo repositories.PartOutlineRepository
	projectRepo     repositories.ProjectRepository
	gateway         llm.Gateway
	staleThreshold  time.Duration
	logger          *logger.Logger
}

// NewGeneratePartOutlinesUseCase constructs a GeneratePartOutlinesUseCase.
func NewGeneratePartOutlinesUseCase(
	blueprintRepo repositories.BlueprintRepository,
	partOutlineRepo repositories.PartOutlineRepository,
	projectRepo repositories.ProjectRepository,
	gateway llm.Gateway,
	staleThreshold time.Duration,
	log *logger.Logger,
) *GeneratePartOutlinesUseCase {
	return &GeneratePartOutlinesUseCase{
		blueprintRepo:   blueprintRepo,
		partOutlineRepo: partOutlineRepo,
		projectRepo:     projectRepo,
		gateway:         gateway,
		staleThreshold:  staleThreshold,
		logger:          log,
	}
}

// Execute implements generate_part_outlines(project_id, user_id,
// total_chapters, chapters_per_part, optimization_prompt?) -> ProgressReport.
func (uc *GeneratePartOutlinesUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID string, totalChapters, chaptersPerPart int, optimizationPrompt *string) (*ProgressReport, error) {
	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := uc.cleanStale(ctx, projectID); err != nil {
		return nil, err
	}

	existing, err := uc.partOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[int]*outline.PartOutline, len(existing))
	for _, p := range existing {
		byNumber[p.PartNumber] = p
	}

	numParts := int(math.Ceil(float64(totalChapters) / float64(chaptersPerPart)))
	report := &ProgressReport{TotalParts: numParts}

	var completedParts []*outline.PartOutline
	for k := 1; k <= numParts; k++ {
		start := (k-1)*chaptersPerPart + 1
		end := k * chaptersPerPart
		if end > totalChapters {
			end = totalChapters
		}

		p, ok := byNumber[k]
		if ok && p.GenerationStatus == outline.GenStatusCompleted {
			completedParts = append(completedParts, p)
			report.Parts = append(report.Parts, p)
			report.CompletedParts++
			continue
		}
		if !ok {
			p, err = outline.New(projectID, k, start, end)
			if err != nil {
				return report, err
			}
			if err := uc.partOutlineRepo.Create(ctx, p); err != nil {
				return report, err
			}
		}

		if err := p.StartGenerating(); err != nil {
			return report, err
		}
		if err := uc.partOutlineRepo.Update(ctx, p); err != nil {
			return report, err
		}

		if err := uc.checkpoint(ctx, p, "before_prompt_build"); err != nil {
			report.Parts = append(report.Parts, p)
			return report, err
		}

		prompt := buildPartOutlinePrompt(b, completedParts, k, start, end, optimizationPrompt)

		if err := uc.checkpoint(ctx, p, "before_llm_call"); err != nil {
			report.Parts = append(report.Parts, p)
			return report, err
		}

		resp, callErr := uc.callLLM(ctx, userID, prompt)
		if callErr != nil {
			p.Fail()
			_ = uc.partOutlineRepo.Update(ctx, p)
			report.Parts = append(report.Parts, p)
			return report, callErr
		}

		if err := uc.checkpoint(ctx, p, "after_llm_call"); err != nil {
			report.Parts = append(report.Parts, p)
			return report, err
		}

		applyPartOutlineResponse(p, resp)
		p.Complete()
		if err := uc.partOutlineRepo.Update(ctx, p); err != nil {
			return report, err
		}

		completedParts = append(completedParts, p)
		report.Parts = append(report.Parts, p)
		report.CompletedParts++
	}

	uc.logger.Info("part outlines generated", "project_id", projectID, "completed", report.CompletedParts, "total", report.TotalParts)
	return report, nil
}

// checkpoint re-fetches the row to observe an externally-set cancelling
// state (§4.13, §5's three cancellation checkpoints) and converts it to
// cancelled before returning CancelledError.
func (uc *GeneratePartOutlinesUseCase) checkpoint(ctx context.Context, p *outline.PartOutline, name string) error {
	latest, err := uc.partOutlineRepo.GetByNumber(ctx, p.ProjectID, p.PartNumber)
	if err != nil {
		return err
	}
	if !latest.IsCancelling() {
		return nil
	}
	latest.Cancel()
	if err := uc.partOutlineRepo.Update(ctx, latest); err != nil {
		return err
	}
	*p = *latest
	return &apperrors.CancelledError{Checkpoint: name}
}

// cleanStale forces any part stuck in `generating` past the staleness
// threshold to `failed` (§4.13 "Stale-state cleanup").
func (uc *GeneratePartOutlinesUseCase) cleanStale(ctx context.Context, projectID uuid.UUID) error {
	parts, err := uc.partOutlineRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, p := range parts {
		if p.IsStaleGenerating(uc.staleThreshold, now) {
			p.Fail()
			if err := uc.partOutlineRepo.Update(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// partOutlinePrompt is a built system/user prompt pair, split out of
// callLLM so Execute can checkpoint between prompt assembly and the LLM
// call itself (§4.13/§5's "before LLM call" checkpoint).
type partOutlinePrompt struct {
	system string
	user   string
}

func buildPartOutlinePrompt(b *blueprint.Blueprint, prior []*outline.PartOutline, partNumber, startChapter, endChapter int, optimizationPrompt *string) partOutlinePrompt {
	systemPrompt := "你是一位长篇小说结构策划师。请仅为指定的“部分”生成细纲，并只返回严格符合下列 JSON Schema 的 JSON 对象：\n" +
		`{"title":"","summary":"","theme":"","key_events":[],"conflicts":[],"character_arcs":{"角色名":""},"ending_hook":""}`

	var sb strings.Builder
	fmt.Fprintf(&sb, "书名:《%s》 类型:%s 基调:%s\n一句话简介:%s\n", b.Title, b.Genre, b.Tone, b.OneSentenceSummary)
	fmt.Fprintf(&sb, "当前生成第 %d 部分，覆盖第 %d 章至第 %d 章。\n", partNumber, startChapter, endChapter)
	if len(prior) > 0 {
		sb.WriteString("已生成的前序部分：\n")
		for _, p := range prior {
			fmt.Fprintf(&sb, "- 第%d部分《%s》：%s（结尾钩子：%s）\n", p.PartNumber, p.Title, p.Summary, p.EndingHook)
		}
	}
	if optimizationPrompt != nil && *optimizationPrompt != "" {
		fmt.Fprintf(&sb, "优化指示：%s\n", *optimizationPrompt)
	}

	return partOutlinePrompt{system: systemPrompt, user: sb.String()}
}

func (uc *GeneratePartOutlinesUseCase) callLLM(ctx context.Context, userID string, prompt partOutlinePrompt) (*partOutlineLLMResponse, error) {
	raw, err := uc.gateway.Complete(ctx, prompt.system, []llm.Message{
		{Role: llm.RoleUser, Content: prompt.user},
	}, llm.CompleteOptions{
		Temperature:    0.75,
		ResponseFormat: llm.ResponseFormatJSONObject,
		MaxTokens:      4096,
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}

	resp, parseErr := parsePartOutlineResponse(raw)
	if parseErr == nil {
		return resp, nil
	}
	resp, parseErr = parsePartOutlineResponse(stripFences(raw))
	if parseErr != nil {
		return nil, &apperrors.ParseError{Context: "part outline", Cause: parseErr}
	}
	return resp, nil
}

func parsePartOutlineResponse(raw string) (*partOutlineLLMResponse, error) {
	var resp partOutlineLLMResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal part outline json: %w", err)
	}
	if resp.Title == "" {
		return nil, fmt.Errorf("part outline response missing title")
	}
	return &resp, nil
}

func applyPartOutlineResponse(p *outline.PartOutline, resp *partOutlineLLMResponse) {
	p.Title = resp.Title
	p.Summary = resp.Summary
	p.Theme = resp.Theme
	p.KeyEvents = resp.KeyEvents
	p.Conflicts = resp.Conflicts
	if resp.CharacterArcs != nil {
		p.CharacterArcs = resp.CharacterArcs
	}
	p.EndingHook = resp.EndingHook
}
