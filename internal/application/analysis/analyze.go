// Package analysis implements C5: calling the LLM to extract structured
// data from a chapter, with tolerant parsing that degrades gracefully
// rather than failing the overall chapter flow (§4.5), generalized from
// llm-gateway-service/internal/application/extract/orchestrator.go and
// entity_extraction/phase2_entrypoint.go's tolerant-JSON handling.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novelforge/engine/internal/core/chapter"
	"github.com/novelforge/engine/internal/ports/llm"
)

// Analyzer calls the LLM gateway with the analysis prompt and tolerantly
// parses its JSON response into chapter.AnalysisData.
type Analyzer struct {
	gateway llm.Gateway
}

// NewAnalyzer constructs an Analyzer.
func NewAnalyzer(gateway llm.Gateway) *Analyzer {
	return &Analyzer{gateway: gateway}
}

// Analyze implements the C5 contract of §4.5. It never returns an error
// representing a parse failure: on unparseable JSON it degrades to a
// minimal AnalysisData containing only summaries.one_line (the content's
// first 200 characters), with empty collections elsewhere. A gateway
// error (transport/quota/etc.) still propagates, since that is not the
// tolerant-parsing case the degrade path is carved out for.
func (a *Analyzer) Analyze(ctx context.Context, userID, content, title string, chapterNumber int, novelTitle string) (*chapter.AnalysisData, error) {
	systemPrompt := buildAnalysisSystemPrompt(novelTitle)
	userMsg := buildAnalysisUserMessage(title, chapterNumber, content)

	raw, err := a.gateway.Complete(ctx, systemPrompt, []llm.Message{
		{Role: llm.RoleUser, Content: userMsg},
	}, llm.CompleteOptions{
		Temperature:    0.2,
		ResponseFormat: llm.ResponseFormatJSONObject,
		MaxTokens:      4096,
		UserID:         userID,
	})
	if err != nil {
		return nil, err
	}

	data, parseErr := parseAnalysis(raw)
	if parseErr == nil {
		return data, nil
	}

	// Tolerant retry: strip markdown fences once and try again (§4.5).
	stripped := stripCodeFences(raw)
	data, parseErr = parseAnalysis(stripped)
	if parseErr == nil {
		return data, nil
	}

	// Continued failure: degrade rather than fail the chapter flow.
	degraded := chapter.Empty()
	degraded.Summaries.OneLine = firstNRunes(content, 200)
	return degraded, nil
}

func parseAnalysis(raw string) (*chapter.AnalysisData, error) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("unmarshal analysis json: %w", err)
	}
	var data chapter.AnalysisData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("unmarshal analysis struct: %w", err)
	}
	data.Raw = generic
	if data.CharacterStates == nil {
		data.CharacterStates = map[string]chapter.CharacterStateDelta{}
	}
	return &data, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func firstNRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func buildAnalysisSystemPrompt(novelTitle string) string {
	return fmt.Sprintf(
		"你是小说《%s》的剧情分析助手。请仔细阅读给定章节正文，提取结构化信息，"+
			"并只返回严格符合下列 JSON Schema 的 JSON 对象，不要包含任何解释性文字：\n"+
			`{"metadata":{"characters":[],"locations":[],"items":[],"tags":[],"tone":"","timeline_marker":""},`+
			`"summaries":{"compressed":"","one_line":"","keywords":[]},`+
			`"character_states":{"角色名":{"location":"","status":"","changes":[]}},`+
			`"foreshadowing":{"planted":[{"description":"","original_text":"","category":"","priority":"high|medium|low","related_entities":[]}],"resolved":[{"id":"","resolution":""}],"tensions":[]},`+
			`"key_events":[{"type":"","description":"","importance":""}]}`,
		novelTitle,
	)
}

func buildAnalysisUserMessage(title string, chapterNumber int, content string) string {
	return fmt.Sprintf("第%d章《%s》正文：\n\n%s", chapterNumber, title, content)
}
