// Package cue detects explicit cues in interaction content: urgency phrases,
// life events, and FORD topics. Detection is deliberately simple keyword
// matching — the cue that fired is returned verbatim so reasoning strings can
// quote it rather than citing an opaque model score.
package cue

import "strings"

// Match is a detected cue: which phrase fired and the label it maps to.
type Match struct {
	Phrase string
	Label  string
}

var urgencyPhrases = []string{
	"asap",
	"as soon as possible",
	"urgent",
	"right away",
	"this week",
	"by friday",
	"before the end of the month",
	"deadline",
	"running out of time",
	"need to move fast",
}

var lifeEventPhrases = map[string]string{
	"new baby":      "new_baby",
	"having a baby": "new_baby",
	"expecting":     "new_baby",
	"got married":   "marriage",
	"engaged":       "marriage",
	"new job":       "job_change",
	"changing jobs": "job_change",
	"got promoted":  "job_change",
	"retiring":      "retirement",
	"moving to":     "move",
	"relocating":    "move",
	"passed away":   "loss",
	"graduated":     "graduation",
}

var fordTopics = map[string]string{
	"family":   "family",
	"kids":     "family",
	"daughter": "family",
	"son":      "family",
	"wife":     "family",
	"husband":  "family",
	"work":     "occupation",
	"job":      "occupation",
	"business": "occupation",
	"golf":     "recreation",
	"vacation": "recreation",
	"travel":   "recreation",
	"fishing":  "recreation",
	"dream":    "dreams",
	"someday":  "dreams",
	"goal":     "dreams",
}

// Urgency returns the first urgency phrase found in content.
func Urgency(content string) (Match, bool) {
	return scanList(content, urgencyPhrases)
}

// LifeEvent returns the first life-event phrase found in content with its
// event kind as the label.
func LifeEvent(content string) (Match, bool) {
	return scanMap(content, lifeEventPhrases)
}

// FORDTopic returns the first FORD topic mention found in content with the
// taxonomy bucket as the label.
func FORDTopic(content string) (Match, bool) {
	return scanMap(content, fordTopics)
}

func scanList(content string, phrases []string) (Match, bool) {
	lower := strings.ToLower(content)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return Match{Phrase: p, Label: p}, true
		}
	}
	return Match{}, false
}

func scanMap(content string, phrases map[string]string) (Match, bool) {
	lower := strings.ToLower(content)
	// Deterministic order keeps reasoning strings stable across runs.
	var best Match
	bestIdx := -1
	for p, label := range phrases {
		idx := strings.Index(lower, p)
		if idx < 0 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx || (idx == bestIdx && p < best.Phrase) {
			best = Match{Phrase: p, Label: label}
			bestIdx = idx
		}
	}
	return best, bestIdx >= 0
}
