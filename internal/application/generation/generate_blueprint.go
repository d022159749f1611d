package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/project"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// blueprintLLMResponse is the strict JSON shape the blueprint prompts
// request back from the gateway (§4.13 "Blueprint generation").
type blueprintLLMResponse struct {
	Title              string                 `json:"title"`
	Genre              string                 `json:"genre"`
	Style              string                 `json:"style"`
	Tone               string                 `json:"tone"`
	TargetAudience     string                 `json:"target_audience"`
	OneSentenceSummary string                 `json:"one_sentence_summary"`
	FullSynopsis       string                 `json:"full_synopsis"`
	WorldSetting       map[string]any         `json:"world_setting"`
	Characters         []blueprintLLMCharacter `json:"characters"`
	Relationships      []blueprintLLMRelation  `json:"relationships"`
}

type blueprintLLMCharacter struct {
	Name                      string `json:"name"`
	Identity                  string `json:"identity"`
	Personality               string `json:"personality"`
	Goals                     string `json:"goals"`
	Abilities                 string `json:"abilities"`
	RelationshipToProtagonist string `json:"relationship_to_protagonist"`
}

type blueprintLLMRelation struct {
	CharacterFrom string `json:"character_from"`
	CharacterTo   string `json:"character_to"`
	Description   string `json:"description"`
}

// GenerateBlueprintUseCase implements `generate_blueprint` (§6): draft a
// full Blueprint (identity, world setting, characters, relationships)
// from the project's initial prompt, generalized from the teacher's
// main-service/internal/application/story/generate_outline.go
// single-shot-JSON prompting pattern.
type GenerateBlueprintUseCase struct {
	projectRepo   repositories.ProjectRepository
	blueprintRepo repositories.BlueprintRepository
	cascade       *Cascade
	gateway       llm.Gateway
	tx            repositories.Transaction
	logger        *logger.Logger
}

// NewGenerateBlueprintUseCase constructs a GenerateBlueprintUseCase.
func NewGenerateBlueprintUseCase(
	projectRepo repositories.ProjectRepository,
	blueprintRepo repositories.BlueprintRepository,
	cascade *Cascade,
	gateway llm.Gateway,
	tx repositories.Transaction,
	log *logger.Logger,
) *GenerateBlueprintUseCase {
	return &GenerateBlueprintUseCase{
		projectRepo:   projectRepo,
		blueprintRepo: blueprintRepo,
		cascade:       cascade,
		gateway:       gateway,
		tx:            tx,
		logger:        log,
	}
}

// Execute implements generate_blueprint(project_id, user_id) -> Blueprint.
// Regenerating an existing blueprint cascades: every PartOutline,
// ChapterOutline, Chapter, and dependent index/vector record is deleted
// first (§4.13 "Regenerating Blueprint").
func (uc *GenerateBlueprintUseCase) Execute(ctx context.Context, tenantID, projectID uuid.UUID, userID string, totalChapters, chaptersPerPart int) (*blueprint.Blueprint, error) {
	p, err := uc.projectRepo.GetByID(ctx, tenantID, projectID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	regenerating := existing != nil

	resp, err := uc.callLLM(ctx, userID, p.InitialPrompt, p.Title, nil)
	if err != nil {
		return nil, err
	}

	b, err := blueprint.New(projectID, firstNonEmpty(resp.Title, p.Title), totalChapters, chaptersPerPart)
	if err != nil {
		return nil, err
	}
	applyBlueprintResponse(b, resp)

	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if regenerating {
			if err := uc.cascade.DeleteEverything(ctx, projectID); err != nil {
				return err
			}
			if err := uc.blueprintRepo.Replace(ctx, b); err != nil {
				return err
			}
		} else {
			if err := uc.blueprintRepo.Create(ctx, b); err != nil {
				return err
			}
		}
		event := project.EventBlueprintGenerated
		if regenerating {
			event = project.EventRegenerateBlueprint
		}
		if err := p.Apply(event, false); err != nil {
			return err
		}
		return uc.projectRepo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("blueprint generated", "project_id", projectID, "regenerated", regenerating)
	return b, nil
}

func (uc *GenerateBlueprintUseCase) callLLM(ctx context.Context, userID, initialPrompt, title string, instruction *string) (*blueprintLLMResponse, error) {
	systemPrompt := buildBlueprintSystemPrompt()
	userMsg := buildBlueprintUserMessage(title, initialPrompt, instruction)

	raw, err := uc.gateway.Complete(ctx, systemPrompt, []llm.Message{
		{Role: llm.RoleUser, Content: userMsg},
	}, llm.CompleteOptions{
		Temperature:    0.8,
		ResponseFormat: llm.ResponseFormatJSONObject,
		MaxTokens:      8192,
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}

	resp, parseErr := parseBlueprintResponse(raw)
	if parseErr == nil {
		return resp, nil
	}
	resp, parseErr = parseBlueprintResponse(stripFences(raw))
	if parseErr != nil {
		return nil, &apperrors.ParseError{Context: "blueprint", Cause: parseErr}
	}
	return resp, nil
}

func parseBlueprintResponse(raw string) (*blueprintLLMResponse, error) {
	var resp blueprintLLMResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal blueprint json: %w", err)
	}
	if resp.Title == "" {
		return nil, fmt.Errorf("blueprint response missing title")
	}
	return &resp, nil
}

func applyBlueprintResponse(b *blueprint.Blueprint, resp *blueprintLLMResponse) {
	b.Genre = resp.Genre
	b.Style = resp.Style
	b.Tone = resp.Tone
	b.TargetAudience = resp.TargetAudience
	b.OneSentenceSummary = resp.OneSentenceSummary
	b.FullSynopsis = resp.FullSynopsis
	if resp.WorldSetting != nil {
		b.WorldSetting = resp.WorldSetting
	}

	chars := make([]*blueprint.Character, 0, len(resp.Characters))
	for i, c := range resp.Characters {
		char, err := blueprint.NewCharacter(b.ID, c.Name, i)
		if err != nil {
			continue
		}
		char.Identity = c.Identity
		char.Personality = c.Personality
		char.Goals = c.Goals
		char.Abilities = c.Abilities
		char.RelationshipToProtagonist = c.RelationshipToProtagonist
		chars = append(chars, char)
	}
	b.ReplaceCharacters(chars)

	rels := make([]*blueprint.Relationship, 0, len(resp.Relationships))
	for i, r := range resp.Relationships {
		rel, err := blueprint.NewRelationship(b.ID, r.CharacterFrom, r.CharacterTo, r.Description, i)
		if err != nil {
			continue
		}
		rels = append(rels, rel)
	}
	b.ReplaceRelationships(rels)
}

func buildBlueprintSystemPrompt() string {
	return "你是一位专业的长篇小说策划。请根据用户提供的初始创意，构思一份完整的小说蓝图，" +
		"并只返回严格符合下列 JSON Schema 的 JSON 对象，不要包含任何解释性文字：\n" +
		`{"title":"","genre":"","style":"","tone":"","target_audience":"","one_sentence_summary":"",` +
		`"full_synopsis":"","world_setting":{},"characters":[{"name":"","identity":"","personality":"",` +
		`"goals":"","abilities":"","relationship_to_protagonist":""}],` +
		`"relationships":[{"character_from":"","character_to":"","description":""}]}`
}

func buildBlueprintUserMessage(title, initialPrompt string, instruction *string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "项目名：%s\n", title)
	}
	fmt.Fprintf(&b, "初始创意：%s\n", initialPrompt)
	if instruction != nil && *instruction != "" {
		fmt.Fprintf(&b, "修改指示：%s\n", *instruction)
	}
	return b.String()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
