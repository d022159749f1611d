package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/platform/apperrors"
	"github.com/novelforge/engine/internal/platform/logger"
	"github.com/novelforge/engine/internal/ports/llm"
	"github.com/novelforge/engine/internal/ports/repositories"
)

// RefineBlueprintUseCase implements `refine_blueprint` (§6): apply a
// targeted natural-language instruction to the existing Blueprint
// without cascading any downstream deletes, since the blueprint's
// identity/fields are patched in place rather than replaced wholesale.
type RefineBlueprintUseCase struct {
	blueprintRepo repositories.BlueprintRepository
	gateway       llm.Gateway
	logger        *logger.Logger
}

// NewRefineBlueprintUseCase constructs a RefineBlueprintUseCase.
func NewRefineBlueprintUseCase(blueprintRepo repositories.BlueprintRepository, gateway llm.Gateway, log *logger.Logger) *RefineBlueprintUseCase {
	return &RefineBlueprintUseCase{blueprintRepo: blueprintRepo, gateway: gateway, logger: log}
}

// Execute implements refine_blueprint(project_id, user_id, instruction) -> Blueprint.
func (uc *RefineBlueprintUseCase) Execute(ctx context.Context, projectID uuid.UUID, userID, instruction string) (*blueprint.Blueprint, error) {
	if instruction == "" {
		return nil, &apperrors.ValidationError{Field: "instruction", Message: "instruction is required"}
	}

	b, err := uc.blueprintRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	systemPrompt := buildBlueprintSystemPrompt()
	userMsg := buildBlueprintUserMessage(b.Title, b.FullSynopsis, &instruction)

	raw, err := uc.gateway.Complete(ctx, systemPrompt, []llm.Message{
		{Role: llm.RoleUser, Content: userMsg},
	}, llm.CompleteOptions{
		Temperature:    0.7,
		ResponseFormat: llm.ResponseFormatJSONObject,
		MaxTokens:      8192,
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}

	resp, parseErr := parseBlueprintResponse(raw)
	if parseErr != nil {
		resp, parseErr = parseBlueprintResponse(stripFences(raw))
		if parseErr != nil {
			return nil, &apperrors.ParseError{Context: "blueprint refinement", Cause: parseErr}
		}
	}

	applyBlueprintResponse(b, resp)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := uc.blueprintRepo.Update(ctx, b); err != nil {
		return nil, err
	}

	uc.logger.Info("blueprint refined", "project_id", projectID, "instruction", instruction)
	return b, nil
}
