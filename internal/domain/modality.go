package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownModality = errors.New("unknown modality")

// Modality is one selectable input method for age prediction.
type Modality string

const (
	ModalityPsychological Modality = "psychological"
	ModalityImage         Modality = "image"
	ModalityIris          Modality = "iris"
	ModalityText          Modality = "text"
	ModalityVoice         Modality = "voice"
)

// Modalities lists every modality in enumeration order.
var Modalities = []Modality{
	ModalityPsychological,
	ModalityImage,
	ModalityIris,
	ModalityText,
	ModalityVoice,
}

func (m Modality) String() string { return string(m) }

func (m Modality) Valid() bool {
	switch m {
	case ModalityPsychological, ModalityImage, ModalityIris, ModalityText, ModalityVoice:
		return true
	default:
		return false
	}
}

// Upload reports whether the modality's adapter takes a file upload.
func (m Modality) Upload() bool {
	return m == ModalityImage || m == ModalityIris || m == ModalityVoice
}

// ParseModality accepts the wire name of a modality, case-insensitively.
func ParseModality(raw string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownModality, raw)
	}
	return m, nil
}

// ParseModalities parses a selection, keeping the caller's order.
func ParseModalities(raw []string) ([]Modality, error) {
	out := make([]Modality, 0, len(raw))
	for _, r := range raw {
		m, err := ParseModality(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
