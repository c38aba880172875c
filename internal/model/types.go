package model

import "time"

// VoiceSpec selects the voice used for synthesis, either by the name of a
// preset voice or by a URL pointing to a reference audio sample for cloning.
type VoiceSpec struct {
	Name      string  `json:"name,omitempty"`
	SampleURL string  `json:"sampleURL,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
}

// Metadata describes the reading a narration belongs to.
// It is only used to build the spoken introduction line.
type Metadata struct {
	Subjects    []string  `json:"subjects,omitempty"`
	ReadingType string    `json:"readingType,omitempty"`
	GeneratedAt time.Time `json:"generatedAt,omitempty"`
}

// Job is one narration synthesis request.
// Text holds the narration inline; TextFile points at a stored text artifact
// and is read when Text is empty. At least one of the two must be provided.
type Job struct {
	ID       string
	Text     string
	TextFile string
	Voice    VoiceSpec
	Meta     Metadata
}

// Result is the delivery artifact of a completed job.
type Result struct {
	RunID       string
	Audio       []byte
	ContentType string
	Chunks      int
	Duration    int // playback duration in seconds, ceiling-rounded
	Size        int // len(Audio)
}
