package session

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/agepredict-backend/internal/domain"
	"github.com/yungbote/agepredict-backend/internal/questionnaire"
)

// Session is the owned state of one prediction flow. Every mutation goes
// through its methods; callers never touch the fields.
type Session struct {
	id      string
	created time.Time
	now     func() time.Time

	mu        sync.Mutex
	selected  []domain.Modality
	completed []domain.Modality
	results   map[domain.Modality]domain.Result
	inflight  map[domain.Modality]bool
	epoch     uint64
	quiz      *questionnaire.Engine
}

// State is a read-only snapshot of a session.
type State struct {
	ID        string                            `json:"id"`
	CreatedAt time.Time                         `json:"created_at"`
	Selected  []domain.Modality                 `json:"selected"`
	Completed []domain.Modality                 `json:"completed"`
	Results   map[domain.Modality]domain.Result `json:"results"`
	Epoch     uint64                            `json:"epoch"`
}

func New() *Session {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Session {
	return &Session{
		id:       uuid.NewString(),
		created:  now(),
		now:      now,
		results:  map[domain.Modality]domain.Result{},
		inflight: map[domain.Modality]bool{},
	}
}

func (s *Session) ID() string { return s.id }

// ValidateSelection rejects an empty selection, unknown modalities and
// repeated modalities.
func ValidateSelection(modalities []domain.Modality) error {
	if len(modalities) == 0 {
		return ErrNoModalities
	}
	seen := make(map[domain.Modality]bool, len(modalities))
	for _, m := range modalities {
		if !m.Valid() {
			return fmt.Errorf("%w %q", domain.ErrUnknownModality, m)
		}
		if seen[m] {
			return fmt.Errorf("%w: %s", ErrDuplicateModality, m)
		}
		seen[m] = true
	}
	return nil
}

// SetSelected writes the selection for a new flow. It is rejected when
// ValidateSelection fails or when the flow already has a selection.
func (s *Session) SetSelected(modalities []domain.Modality) error {
	if err := ValidateSelection(modalities); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selected) > 0 {
		return ErrFlowStarted
	}
	s.selected = slices.Clone(modalities)
	return nil
}

func (s *Session) Selected() []domain.Modality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

// Completed returns completed modalities in completion order.
func (s *Session) Completed() []domain.Modality {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.completed)
}

// RecordResult stores the payload for m, replacing any earlier one, and marks m
// completed so a stored result never exists without its completion.
func (s *Session) RecordResult(m domain.Modality, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked(m, r)
}

// MarkCompleted appends m to the completed set. Repeated calls are no-ops.
func (s *Session) MarkCompleted(m domain.Modality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markLocked(m)
}

// Complete records r and marks m completed in one step, provided no reset
// happened since epoch was observed.
func (s *Session) Complete(epoch uint64, m domain.Modality, r domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrStaleEpoch
	}
	return s.recordLocked(m, r)
}

func (s *Session) recordLocked(m domain.Modality, r domain.Result) error {
	if !slices.Contains(s.selected, m) {
		return fmt.Errorf("%w: %s", ErrNotSelected, m)
	}
	if strings.TrimSpace(r.Label) == "" {
		return ErrEmptyResult
	}
	r = r.Clone()
	if r.CompletedAt.IsZero() {
		r.CompletedAt = s.now()
	}
	s.results[m] = r
	if m == domain.ModalityPsychological {
		s.quiz = nil
	}
	return s.markLocked(m)
}

func (s *Session) markLocked(m domain.Modality) error {
	if !slices.Contains(s.selected, m) {
		return fmt.Errorf("%w: %s", ErrNotSelected, m)
	}
	if !slices.Contains(s.completed, m) {
		s.completed = append(s.completed, m)
	}
	return nil
}

func (s *Session) Result(m domain.Modality) (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[m]
	if !ok {
		return domain.Result{}, false
	}
	return r.Clone(), true
}

func (s *Session) Results() map[domain.Modality]domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultsLocked()
}

func (s *Session) resultsLocked() map[domain.Modality]domain.Result {
	out := make(map[domain.Modality]domain.Result, len(s.results))
	for k, v := range s.results {
		out[k] = v.Clone()
	}
	return out
}

// Canonical returns the result of the most recently completed modality.
func (s *Session) Canonical() (domain.Modality, domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.completed) - 1; i >= 0; i-- {
		m := s.completed[i]
		if r, ok := s.results[m]; ok {
			return m, r.Clone(), true
		}
	}
	return "", domain.Result{}, false
}

func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Reset discards the whole flow, including any questionnaire in progress.
// Responses still pending from before the reset are rejected by Complete.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.completed = nil
	s.results = map[domain.Modality]domain.Result{}
	s.inflight = map[domain.Modality]bool{}
	s.quiz = nil
	s.epoch++
}

// BeginSubmission claims m for one pending adapter call and returns the epoch to
// hand back to Complete.
func (s *Session) BeginSubmission(m domain.Modality) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.selected, m) {
		return 0, fmt.Errorf("%w: %s", ErrNotSelected, m)
	}
	if slices.Contains(s.completed, m) {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyCompleted, m)
	}
	if s.inflight[m] {
		return 0, fmt.Errorf("%w: %s", ErrSubmissionInFlight, m)
	}
	s.inflight[m] = true
	return s.epoch, nil
}

// EndSubmission releases the claim taken by BeginSubmission. A claim from before
// a reset is already gone and is left alone.
func (s *Session) EndSubmission(epoch uint64, m domain.Modality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch == s.epoch {
		delete(s.inflight, m)
	}
}

// Questionnaire returns the running engine, if any.
func (s *Session) Questionnaire() *questionnaire.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// UseQuestionnaire runs fn against the session's engine with the session lock
// held, starting one via start when none is running. It returns the epoch fn ran
// under so a finishing answer can be committed with Complete.
func (s *Session) UseQuestionnaire(start func() (*questionnaire.Engine, error), fn func(e *questionnaire.Engine) error) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.selected, domain.ModalityPsychological) {
		return 0, fmt.Errorf("%w: %s", ErrNotSelected, domain.ModalityPsychological)
	}
	if slices.Contains(s.completed, domain.ModalityPsychological) {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyCompleted, domain.ModalityPsychological)
	}
	if s.quiz == nil {
		e, err := start()
		if err != nil {
			return 0, err
		}
		s.quiz = e
	}
	return s.epoch, fn(s.quiz)
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:        s.id,
		CreatedAt: s.created,
		Selected:  append([]domain.Modality{}, s.selected...),
		Completed: append([]domain.Modality{}, s.completed...),
		Results:   s.resultsLocked(),
		Epoch:     s.epoch,
	}
}
