// Package rag implements C8 (query builder), C9 (temporal retriever),
// C10 (context builder), and C11 (context compressor), generalized from
// ingestion-service/internal/application/search/search_memory.go's
// query -> embed -> retrieve -> assemble shape.
package rag

import (
	"fmt"
	"strings"

	"github.com/novelforge/engine/internal/core/blueprint"
	"github.com/novelforge/engine/internal/core/index"
	"github.com/novelforge/engine/internal/core/outline"
)

// Queries is the output structure of C8 (§4.8).
type Queries struct {
	MainQuery        string
	CharacterQueries []string
	ForeshadowQueries []string
	LocationQuery    string
}

// BuildQueriesInput bundles the C8 inputs of §4.8.
type BuildQueriesInput struct {
	CurrentOutline      *outline.ChapterOutline
	Blueprint           *blueprint.Blueprint
	WritingNotes        string
	PendingForeshadowing []*index.ForeshadowingRow
	// ResolutionTargets maps a foreshadowing row id to its advisory
	// target chapter (C7's SuggestResolutionChapters), used for the
	// "advisory target chapter <= current_chapter" clause of §4.8.
	ResolutionTargets map[string]int
	CurrentChapter    int
}

// BuildQueries implements C8 (§4.8).
func BuildQueries(in BuildQueriesInput) Queries {
	q := Queries{}

	parts := []string{in.CurrentOutline.Title, in.CurrentOutline.Summary}
	if in.WritingNotes != "" {
		parts = append(parts, in.WritingNotes)
	}
	q.MainQuery = normalizeWhitespace(strings.Join(parts, " "))

	outlineText := in.CurrentOutline.Title + " " + in.CurrentOutline.Summary
	for _, c := range in.Blueprint.Characters {
		if c.Name != "" && strings.Contains(outlineText, c.Name) {
			q.CharacterQueries = append(q.CharacterQueries, fmt.Sprintf("角色 %s 的行动和状态变化", c.Name))
		}
	}

	for _, row := range in.PendingForeshadowing {
		target, hasTarget := in.ResolutionTargets[row.ID.String()]
		if row.Priority == "high" || (hasTarget && target <= in.CurrentChapter) {
			q.ForeshadowQueries = append(q.ForeshadowQueries, fmt.Sprintf("伏笔: %s", row.Description))
		}
	}

	if locations, ok := in.Blueprint.WorldSetting["key_locations"]; ok {
		if names, ok := locations.([]string); ok {
			for _, name := range names {
				if name != "" && strings.Contains(outlineText, name) {
					q.LocationQuery = fmt.Sprintf("场景 %s 中发生的事件", name)
					break
				}
			}
		} else if names, ok := locations.([]any); ok {
			for _, v := range names {
				name, _ := v.(string)
				if name != "" && strings.Contains(outlineText, name) {
					q.LocationQuery = fmt.Sprintf("场景 %s 中发生的事件", name)
					break
				}
			}
		}
	}

	return q
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
