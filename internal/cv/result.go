package cv

// RecognitionResult is returned by every recognition query.
// Text never carries decoded characters, only a diagnostic note.
type RecognitionResult struct {
	Found       bool    `json:"found"`
	Confidence  float64 `json:"confidence"`
	Position    *Point  `json:"position,omitempty"`
	MatchRegion *Region `json:"match_region,omitempty"`
	Text        string  `json:"text,omitempty"`
}

// NotFound is the negative result every failed query collapses to
func NotFound() RecognitionResult {
	return RecognitionResult{Found: false, Confidence: 0}
}

// TemplateMatchResult is the raw output of the sliding-window matcher
type TemplateMatchResult struct {
	Confidence float64
	Position   Point  // center of the matched window
	Region     Region // matched window
}

// toRecognition classifies a match against a threshold
func (m *TemplateMatchResult) toRecognition(threshold float64) RecognitionResult {
	pos := m.Position
	region := m.Region
	return RecognitionResult{
		Found:       m.Confidence >= threshold,
		Confidence:  m.Confidence,
		Position:    &pos,
		MatchRegion: &region,
	}
}
