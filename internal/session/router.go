package session

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/yungbote/agepredict-backend/internal/domain"
)

// Destination is where the client goes next: a modality, or the results view.
type Destination struct {
	Modality domain.Modality
}

// Terminal is the results view.
var Terminal = Destination{}

func (d Destination) Terminal() bool { return d.Modality == "" }

var routes = map[domain.Modality]string{
	domain.ModalityPsychological: "/psychological",
	domain.ModalityImage:         "/image-upload",
	domain.ModalityIris:          "/iris-scan",
	domain.ModalityText:          "/text-input",
	domain.ModalityVoice:         "/voice-input",
}

// Route is the client path for the destination.
func (d Destination) Route() string {
	if d.Terminal() {
		return "/result"
	}
	return routes[d.Modality]
}

func (d Destination) String() string {
	if d.Terminal() {
		return "terminal"
	}
	return string(d.Modality)
}

func (d Destination) MarshalJSON() ([]byte, error) {
	type wire struct {
		Modality domain.Modality `json:"modality,omitempty"`
		Terminal bool            `json:"terminal"`
		Route    string          `json:"route"`
	}
	return json.Marshal(wire{Modality: d.Modality, Terminal: d.Terminal(), Route: d.Route()})
}

// NextDestination returns the first selected modality that is neither completed
// nor justFinished, or Terminal when none is left. It is a pure function of its
// arguments. A justFinished outside selected is a caller bug and is reported as
// ErrNotSelected.
func NextDestination(selected, completed []domain.Modality, justFinished domain.Modality) (Destination, error) {
	if !slices.Contains(selected, justFinished) {
		return Destination{}, fmt.Errorf("%w: %s", ErrNotSelected, justFinished)
	}
	return next(selected, completed, justFinished), nil
}

// First is the destination for a flow with nothing completed yet.
func First(selected []domain.Modality) Destination {
	return next(selected, nil, "")
}

// Pending is the destination given the current progress, without a step that
// just finished.
func Pending(selected, completed []domain.Modality) Destination {
	return next(selected, completed, "")
}

func next(selected, completed []domain.Modality, justFinished domain.Modality) Destination {
	for _, m := range selected {
		if m == justFinished || slices.Contains(completed, m) {
			continue
		}
		return Destination{Modality: m}
	}
	return Terminal
}
