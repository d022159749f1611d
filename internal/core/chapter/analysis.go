package chapter

// AnalysisData is the structured extraction produced by C5 (§3, §4.5).
// Per the design notes (§9), dynamic LLM JSON is modeled as a tagged
// struct with a Raw bag for anything the schema does not (yet) name, so
// downstream code can render unknown fields without a schema migration.
type AnalysisData struct {
	Metadata        Metadata             `json:"metadata"`
	Summaries       Summaries            `json:"summaries"`
	CharacterStates map[string]CharacterStateDelta `json:"character_states"`
	Foreshadowing   ForeshadowingBlock   `json:"foreshadowing"`
	KeyEvents       []KeyEvent           `json:"key_events"`
	Raw             map[string]any       `json:"-"`
}

// Metadata is analysis_data.metadata (§3).
type Metadata struct {
	Characters     []string `json:"characters"`
	Locations      []string `json:"locations"`
	Items          []string `json:"items"`
	Tags           []string `json:"tags"`
	Tone           string   `json:"tone"`
	TimelineMarker string   `json:"timeline_marker"`
}

// Summaries is analysis_data.summaries (§3).
type Summaries struct {
	Compressed string   `json:"compressed"`
	OneLine    string   `json:"one_line"`
	Keywords   []string `json:"keywords"`
}

// CharacterStateDelta is one entry of analysis_data.character_states (§3).
type CharacterStateDelta struct {
	Location string   `json:"location"`
	Status   string   `json:"status"`
	Changes  []string `json:"changes"`
}

// ForeshadowingPriority is the priority of a planted foreshadowing hook.
type ForeshadowingPriority string

const (
	PriorityHigh   ForeshadowingPriority = "high"
	PriorityMedium ForeshadowingPriority = "medium"
	PriorityLow    ForeshadowingPriority = "low"
)

// PlantedForeshadowing is one entry of analysis_data.foreshadowing.planted (§3).
type PlantedForeshadowing struct {
	Description     string                `json:"description"`
	OriginalText    string                `json:"original_text"`
	Category        string                `json:"category"`
	Priority        ForeshadowingPriority `json:"priority"`
	RelatedEntities []string              `json:"related_entities"`
}

// ResolvedForeshadowing is one entry of analysis_data.foreshadowing.resolved (§3).
type ResolvedForeshadowing struct {
	ID         string `json:"id,omitempty"`
	Resolution string `json:"resolution"`
}

// ForeshadowingBlock is analysis_data.foreshadowing (§3).
type ForeshadowingBlock struct {
	Planted  []PlantedForeshadowing  `json:"planted"`
	Resolved []ResolvedForeshadowing `json:"resolved"`
	Tensions []string                `json:"tensions"`
}

// KeyEvent is one entry of analysis_data.key_events (§3).
type KeyEvent struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Importance  string `json:"importance"`
}

// Empty returns a zero-value AnalysisData with empty (not nil) slices and
// maps, used as the base for C5's degrade-on-parse-failure path (§4.5).
func Empty() *AnalysisData {
	return &AnalysisData{
		Metadata: Metadata{
			Characters: []string{},
			Locations:  []string{},
			Items:      []string{},
			Tags:       []string{},
		},
		Summaries: Summaries{
			Keywords: []string{},
		},
		CharacterStates: map[string]CharacterStateDelta{},
		Foreshadowing: ForeshadowingBlock{
			Planted:  []PlantedForeshadowing{},
			Resolved: []ResolvedForeshadowing{},
			Tensions: []string{},
		},
		KeyEvents: []KeyEvent{},
	}
}
