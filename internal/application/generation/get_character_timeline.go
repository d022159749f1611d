package generation

import (
	"context"

	"github.com/google/uuid"

	"github.com/novelforge/engine/internal/application/indices"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/platform/apperrors"
)

// GetCharacterTimelineUseCase implements the supplemental
// `get_character_timeline` read operation: C6's state history for one
// character, exposed as its own external interface rather than only as
// internal context-builder plumbing.
type GetCharacterTimelineUseCase struct {
	characterIdx *indices.CharacterStateIndex
}

// NewGetCharacterTimelineUseCase constructs a GetCharacterTimelineUseCase.
func NewGetCharacterTimelineUseCase(characterIdx *indices.CharacterStateIndex) *GetCharacterTimelineUseCase {
	return &GetCharacterTimelineUseCase{characterIdx: characterIdx}
}

// Execute implements get_character_timeline(project_id, character_name,
// before_chapter?, limit?) -> list<CharacterStateRow>, ordered by
// chapter_number descending.
func (uc *GetCharacterTimelineUseCase) Execute(ctx context.Context, projectID uuid.UUID, characterName string, beforeChapter, limit int) ([]*index.CharacterStateRow, error) {
	if characterName == "" {
		return nil, &apperrors.ValidationError{Field: "character_name", Message: "must not be empty"}
	}
	if beforeChapter <= 0 {
		beforeChapter = 1 << 30
	}
	if limit <= 0 {
		limit = 50
	}
	return uc.characterIdx.History(ctx, projectID.String(), characterName, beforeChapter, limit)
}
