// Package index holds the structured continuity indices of §3/§4.6/§4.7:
// CharacterStateIndex and ForeshadowingIndex.
package index

// CharacterStateRow is a row of the CharacterStateIndex (§3, §4.6):
// one row per (project, chapter, character) — P3.
type CharacterStateRow struct {
	ProjectID     string
	ChapterNumber int
	CharacterName string
	Location      string
	Status        string
	Changes       []string
}
