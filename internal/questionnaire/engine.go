package questionnaire

import (
	"errors"
	"fmt"
)

type Phase string

const (
	PhaseDiscovery Phase = "category-discovery"
	PhaseScoring   Phase = "category-scoring"
)

var (
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrFinished         = errors.New("questionnaire already finished")
)

// Outcome is what the engine hands back once the last scoring answer is in.
type Outcome struct {
	Label      string
	RawAnswers []string
	Category   Category
}

// Prompt is the question currently awaiting an answer, with its position.
type Prompt struct {
	Phase    Phase    `json:"phase"`
	Index    int      `json:"index"`
	Total    int      `json:"total"`
	Number   int      `json:"number"`
	Of       int      `json:"of"`
	Category Category `json:"category,omitempty"`
	Question Question `json:"question"`
}

// Step reports the result of one answer: either the next prompt or the outcome.
type Step struct {
	Done    bool
	Next    *Prompt
	Outcome *Outcome
}

// Engine runs the adaptive questionnaire for one session. It is not safe for
// concurrent use; the owning session serializes access.
type Engine struct {
	bank *Bank

	phase    Phase
	index    int
	category Category
	tags     []Category
	answers  []string
	done     bool
}

func NewEngine(bank *Bank) (*Engine, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	return &Engine{bank: bank, phase: PhaseDiscovery}, nil
}

func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) Index() int { return e.index }

func (e *Engine) Category() Category { return e.category }

func (e *Engine) Done() bool { return e.done }

func (e *Engine) AnswerHistory() []string {
	return append([]string(nil), e.answers...)
}

// Current returns the question awaiting an answer, or nil once finished.
func (e *Engine) Current() *Prompt {
	if e.done {
		return nil
	}
	p := &Prompt{
		Phase: e.phase,
		Index: e.index,
		Of:    DiscoveryQuestions + ScoringQuestions,
	}
	switch e.phase {
	case PhaseDiscovery:
		p.Total = DiscoveryQuestions
		p.Number = e.index + 1
		p.Question = e.bank.Discovery[e.index]
	default:
		p.Total = ScoringQuestions
		p.Number = DiscoveryQuestions + e.index + 1
		p.Category = e.category
		p.Question = e.bank.Categories[e.category][e.index]
	}
	return p
}

// Answer applies the option at optionIndex to the current question.
func (e *Engine) Answer(optionIndex int) (Step, error) {
	cur := e.Current()
	if cur == nil {
		return Step{}, ErrFinished
	}
	if optionIndex < 0 || optionIndex >= len(cur.Question.Options) {
		return Step{}, fmt.Errorf("%w: %d", ErrOptionOutOfRange, optionIndex)
	}
	opt := cur.Question.Options[optionIndex]

	switch e.phase {
	case PhaseDiscovery:
		e.tags = append(e.tags, opt.Category)
		e.index++
		if e.index == DiscoveryQuestions {
			e.category = WinningCategory(e.tags)
			e.phase = PhaseScoring
			e.index = 0
			e.answers = nil
		}
		return Step{Next: e.Current()}, nil
	default:
		e.answers = append(e.answers, opt.AgeRange)
		e.index++
		if e.index < ScoringQuestions {
			return Step{Next: e.Current()}, nil
		}
		e.done = true
		return Step{
			Done: true,
			Outcome: &Outcome{
				Label:      MostFrequent(e.answers),
				RawAnswers: append([]string(nil), e.answers...),
				Category:   e.category,
			},
		}, nil
	}
}

// WinningCategory tallies discovery tags. The strictly greatest tally wins; ties
// (including all-zero) go to the first maximal category in enumeration order.
func WinningCategory(tags []Category) Category {
	counts := make(map[Category]int, len(Categories))
	for _, t := range tags {
		counts[t]++
	}
	best := Categories[0]
	for _, c := range Categories[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// MostFrequent returns the most frequent value; ties go to the value whose first
// occurrence comes earliest.
func MostFrequent(values []string) string {
	counts := map[string]int{}
	order := make([]string, 0, len(values))
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	if len(order) == 0 {
		return ""
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
