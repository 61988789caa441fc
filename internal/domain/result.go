package domain

import "time"

// Result is the payload a modality produces. Label is always set; the other
// fields depend on the modality (classifier confidence, questionnaire audit trail).
type Result struct {
	Label        string    `json:"label"`
	Confidence   *float64  `json:"confidence,omitempty"`
	PredictedBin string    `json:"predicted_bin,omitempty"`
	RawAnswers   []string  `json:"raw_answers,omitempty"`
	Category     string    `json:"category,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

func (r Result) Clone() Result {
	out := r
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	if r.RawAnswers != nil {
		out.RawAnswers = append([]string(nil), r.RawAnswers...)
	}
	return out
}
