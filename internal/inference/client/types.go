package client

import "strings"

// Paths are the prediction endpoints, relative to the base URL.
type Paths struct {
	Image string
	Iris  string
	Text  string
	Voice string
}

func DefaultPaths() Paths {
	return Paths{
		Image: "/predict-image",
		Iris:  "/predict-iris",
		Text:  "/predict-text",
		Voice: "/predict-audio",
	}
}

func (p Paths) withDefaults() Paths {
	def := DefaultPaths()
	pick := func(v, d string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return d
	}
	return Paths{
		Image: pick(p.Image, def.Image),
		Iris:  pick(p.Iris, def.Iris),
		Text:  pick(p.Text, def.Text),
		Voice: pick(p.Voice, def.Voice),
	}
}

// Prediction is a successful answer from one of the modality models.
type Prediction struct {
	Label        string
	PredictedBin string
	Confidence   *float64
}

type textPredictRequest struct {
	Text string `json:"text"`
}

// predictResponse covers every model endpoint. The text endpoint reports
// failures as a 200 with only "error" set.
type predictResponse struct {
	Label        string   `json:"label"`
	PredictedBin string   `json:"predicted_bin"`
	Confidence   *float64 `json:"confidence"`
	Error        string   `json:"error"`
}
