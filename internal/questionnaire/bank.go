package questionnaire

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DiscoveryQuestions = 4
	ScoringQuestions   = 11
	OptionsPerQuestion = 4
)

// Category is a coarse age band chosen by the discovery phase.
type Category string

const (
	CategoryChildren   Category = "children"
	CategoryYoungsters Category = "youngsters"
	CategoryMiddleAged Category = "middle-aged"
	CategoryElder      Category = "elder"
)

// Categories is the enumeration order used to break tally ties.
var Categories = []Category{
	CategoryChildren,
	CategoryYoungsters,
	CategoryMiddleAged,
	CategoryElder,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Option struct {
	Text     string   `yaml:"text" json:"text"`
	AgeRange string   `yaml:"age_range" json:"-"`
	Category Category `yaml:"category,omitempty" json:"-"`
}

type Question struct {
	Text    string   `yaml:"text" json:"text"`
	Options []Option `yaml:"options" json:"options"`
}

// Bank holds the discovery questions and the per-category scoring questions.
type Bank struct {
	Discovery  []Question              `yaml:"discovery"`
	Categories map[Category][]Question `yaml:"categories"`
}

//go:embed bank.yaml
var defaultBankYAML []byte

var ErrInvalidBank = errors.New("invalid question bank")

// DefaultBank returns the embedded question bank.
func DefaultBank() (*Bank, error) {
	return ParseBank(defaultBankYAML)
}

// LoadBank reads a bank from path; an empty path yields the embedded bank.
func LoadBank(path string) (*Bank, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultBank()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseBank(raw)
}

func ParseBank(raw []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks the fixed shape the engine relies on. Discovery options may
// omit their category; such answers simply do not count toward any tally.
func (b *Bank) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil bank", ErrInvalidBank)
	}
	if len(b.Discovery) != DiscoveryQuestions {
		return fmt.Errorf("%w: discovery has %d questions, want %d", ErrInvalidBank, len(b.Discovery), DiscoveryQuestions)
	}
	for i, q := range b.Discovery {
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("%w: discovery[%d]: %v", ErrInvalidBank, i, err)
		}
		for j, o := range q.Options {
			if o.Category != "" && !o.Category.Valid() {
				return fmt.Errorf("%w: discovery[%d].options[%d]: unknown category %q", ErrInvalidBank, i, j, o.Category)
			}
		}
	}
	for _, c := range Categories {
		qs, ok := b.Categories[c]
		if !ok {
			return fmt.Errorf("%w: missing category %q", ErrInvalidBank, c)
		}
		if len(qs) != ScoringQuestions {
			return fmt.Errorf("%w: category %q has %d questions, want %d", ErrInvalidBank, c, len(qs), ScoringQuestions)
		}
		for i, q := range qs {
			if err := validateQuestion(q); err != nil {
				return fmt.Errorf("%w: %s[%d]: %v", ErrInvalidBank, c, i, err)
			}
		}
	}
	for c := range b.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidBank, c)
		}
	}
	return nil
}

func validateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("has %d options, want %d", len(q.Options), OptionsPerQuestion)
	}
	for j, o := range q.Options {
		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("options[%d]: text is required", j)
		}
		if strings.TrimSpace(o.AgeRange) == "" {
			return fmt.Errorf("options[%d]: age_range is required", j)
		}
	}
	return nil
}
