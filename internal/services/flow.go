package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yungbote/agepredict-backend/internal/domain"
	"github.com/yungbote/agepredict-backend/internal/events"
	"github.com/yungbote/agepredict-backend/internal/inference/client"
	"github.com/yungbote/agepredict-backend/internal/observability"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/questionnaire"
	"github.com/yungbote/agepredict-backend/internal/session"
)

var (
	ErrEmptyText      = errors.New("text is empty")
	ErrMissingFile    = errors.New("file is required")
	ErrNotUpload      = errors.New("modality does not take a file upload")
	ErrFlowIncomplete = errors.New("flow has modalities left to complete")
)

const publishTimeout = 2 * time.Second

// Predictor is the external prediction service.
type Predictor interface {
	PredictFile(ctx context.Context, m domain.Modality, filename string, r io.Reader) (client.Prediction, error)
	PredictText(ctx context.Context, text string) (client.Prediction, error)
}

type FlowPhase string

const (
	PhaseSelecting  FlowPhase = "selecting"
	PhaseInProgress FlowPhase = "in_progress"
	PhaseFinished   FlowPhase = "finished"
)

// FlowView is a session snapshot plus where the client should go next. Next is
// nil while no selection has been made.
type FlowView struct {
	Session session.State        `json:"session"`
	Phase   FlowPhase            `json:"phase"`
	Next    *session.Destination `json:"next,omitempty"`
}

type SubmitResult struct {
	Modality domain.Modality     `json:"modality"`
	Result   domain.Result       `json:"result"`
	Next     session.Destination `json:"next"`
}

type AnswerResult struct {
	Done     bool                  `json:"done"`
	Question *questionnaire.Prompt `json:"question,omitempty"`
	Result   *domain.Result        `json:"result,omitempty"`
	Next     *session.Destination  `json:"next,omitempty"`
}

type FinalResult struct {
	SessionID string                            `json:"session_id"`
	Modality  domain.Modality                   `json:"modality"`
	Result    domain.Result                     `json:"result"`
	Completed []domain.Modality                 `json:"completed"`
	Results   map[domain.Modality]domain.Result `json:"results"`
}

type FlowService interface {
	Start(ctx context.Context, modalities []string) (*FlowView, error)
	Restart(ctx context.Context, id string, modalities []string) (*FlowView, error)
	Reset(ctx context.Context, id string) (*FlowView, error)
	Delete(ctx context.Context, id string) error
	State(ctx context.Context, id string) (*FlowView, error)
	SubmitFile(ctx context.Context, id string, m domain.Modality, filename string, r io.Reader) (*SubmitResult, error)
	SubmitText(ctx context.Context, id string, text string) (*SubmitResult, error)
	CurrentQuestion(ctx context.Context, id string) (*questionnaire.Prompt, error)
	Answer(ctx context.Context, id string, option int) (*AnswerResult, error)
	FinalResult(ctx context.Context, id string) (*FinalResult, error)
}

type flowService struct {
	log       *logger.Logger
	registry  *session.Registry
	predictor Predictor
	bank      *questionnaire.Bank
	events    events.Publisher
	metrics   *observability.Metrics
}

type FlowDeps struct {
	Registry  *session.Registry
	Predictor Predictor
	Bank      *questionnaire.Bank
	Events    events.Publisher
	Metrics   *observability.Metrics
}

func NewFlowService(baseLog *logger.Logger, deps FlowDeps) (FlowService, error) {
	if baseLog == nil {
		return nil, errors.New("logger required")
	}
	if deps.Registry == nil {
		return nil, errors.New("session registry required")
	}
	if deps.Predictor == nil {
		return nil, errors.New("predictor required")
	}
	bank := deps.Bank
	if bank == nil {
		var err error
		if bank, err = questionnaire.DefaultBank(); err != nil {
			return nil, err
		}
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	pub := deps.Events
	if pub == nil {
		pub = events.Noop()
	}
	return &flowService{
		log:       baseLog.With("service", "FlowService"),
		registry:  deps.Registry,
		predictor: deps.Predictor,
		bank:      bank,
		events:    pub,
		metrics:   deps.Metrics,
	}, nil
}

func (s *flowService) Start(ctx context.Context, modalities []string) (*FlowView, error) {
	selected, err := parseSelection(modalities)
	if err != nil {
		return nil, mapErr(err)
	}
	sess := s.registry.Create()
	if err := sess.SetSelected(selected); err != nil {
		s.registry.Delete(sess.ID())
		return nil, mapErr(err)
	}
	s.metrics.IncSessionStarted()
	s.metrics.SetSessionsActive(s.registry.Len())
	s.log.Info("flow started", "session_id", sess.ID(), "modalities", selected)

	ev := events.New(events.SessionStarted, sess.ID())
	ev.Modalities = names(selected)
	ev.Next = session.First(selected).String()
	s.publish(ctx, ev)

	return viewOf(sess.Snapshot()), nil
}

func (s *flowService) Restart(ctx context.Context, id string, modalities []string) (*FlowView, error) {
	selected, err := parseSelection(modalities)
	if err != nil {
		return nil, mapErr(err)
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	s.metrics.IncSessionReset()
	s.publish(ctx, events.New(events.SessionReset, sess.ID()))

	if err := sess.SetSelected(selected); err != nil {
		return nil, mapErr(err)
	}
	s.metrics.IncSessionStarted()
	s.log.Info("flow restarted", "session_id", sess.ID(), "modalities", selected)

	ev := events.New(events.SessionStarted, sess.ID())
	ev.Modalities = names(selected)
	ev.Next = session.First(selected).String()
	s.publish(ctx, ev)

	return viewOf(sess.Snapshot()), nil
}

func (s *flowService) Reset(ctx context.Context, id string) (*FlowView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	s.metrics.IncSessionReset()
	s.log.Info("flow reset", "session_id", sess.ID())
	s.publish(ctx, events.New(events.SessionReset, sess.ID()))
	return viewOf(sess.Snapshot()), nil
}

func (s *flowService) Delete(ctx context.Context, id string) error {
	if !s.registry.Delete(id) {
		return mapErr(session.ErrNotFound)
	}
	s.metrics.SetSessionsActive(s.registry.Len())
	s.log.Debug("session deleted", "session_id", id)
	return nil
}

func (s *flowService) State(ctx context.Context, id string) (*FlowView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return viewOf(sess.Snapshot()), nil
}

func (s *flowService) SubmitFile(ctx context.Context, id string, m domain.Modality, filename string, r io.Reader) (*SubmitResult, error) {
	if !m.Upload() {
		return nil, mapErr(fmt.Errorf("%w: %s", ErrNotUpload, m))
	}
	if r == nil {
		return nil, mapErr(ErrMissingFile)
	}
	return s.submit(ctx, id, m, func(ctx context.Context) (client.Prediction, error) {
		return s.predictor.PredictFile(ctx, m, filename, r)
	})
}

func (s *flowService) SubmitText(ctx context.Context, id string, text string) (*SubmitResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, mapErr(ErrEmptyText)
	}
	return s.submit(ctx, id, domain.ModalityText, func(ctx context.Context) (client.Prediction, error) {
		return s.predictor.PredictText(ctx, text)
	})
}

// submit runs one adapter call for m. The store is written only after a
// successful prediction, and only if the session was not reset meanwhile.
func (s *flowService) submit(ctx context.Context, id string, m domain.Modality, call func(context.Context) (client.Prediction, error)) (*SubmitResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	epoch, err := sess.BeginSubmission(m)
	if err != nil {
		s.metrics.ObservePrediction(m.String(), "rejected", 0)
		return nil, mapErr(err)
	}
	defer sess.EndSubmission(epoch, m)

	start := time.Now()
	pred, err := call(ctx)
	dur := time.Since(start)
	if err != nil {
		s.metrics.ObservePrediction(m.String(), "failed", dur)
		s.log.Warn("prediction failed", "session_id", sess.ID(), "modality", m, "error", err)
		return nil, mapAdapterErr(err)
	}

	res := domain.Result{
		Label:        pred.Label,
		Confidence:   pred.Confidence,
		PredictedBin: pred.PredictedBin,
	}
	if err := sess.Complete(epoch, m, res); err != nil {
		if errors.Is(err, session.ErrStaleEpoch) {
			s.metrics.ObservePrediction(m.String(), "stale", dur)
			s.log.Info("discarded stale prediction", "session_id", sess.ID(), "modality", m)
		}
		return nil, mapErr(err)
	}
	s.metrics.ObservePrediction(m.String(), "ok", dur)

	stored, _ := sess.Result(m)
	next, err := s.advance(ctx, sess, m, stored)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Modality: m, Result: stored, Next: next}, nil
}

// advance computes the destination after m completed and emits the flow events.
func (s *flowService) advance(ctx context.Context, sess *session.Session, m domain.Modality, r domain.Result) (session.Destination, error) {
	st := sess.Snapshot()
	next, err := session.NextDestination(st.Selected, st.Completed, m)
	if err != nil {
		return session.Destination{}, mapErr(err)
	}
	s.log.Info("modality completed", "session_id", sess.ID(), "modality", m, "label", r.Label, "next", next.String())

	ev := events.New(events.ModalityCompleted, sess.ID())
	ev.Modality = m.String()
	ev.Label = r.Label
	ev.Next = next.String()
	s.publish(ctx, ev)

	if next.Terminal() {
		s.metrics.IncSessionFinished()
		fin := events.New(events.SessionFinished, sess.ID())
		if cm, cr, ok := sess.Canonical(); ok {
			fin.Modality = cm.String()
			fin.Label = cr.Label
		}
		s.publish(ctx, fin)
	}
	return next, nil
}

func (s *flowService) startEngine() (*questionnaire.Engine, error) {
	return questionnaire.NewEngine(s.bank)
}

func (s *flowService) CurrentQuestion(ctx context.Context, id string) (*questionnaire.Prompt, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	var p *questionnaire.Prompt
	_, err = sess.UseQuestionnaire(s.startEngine, func(e *questionnaire.Engine) error {
		p = e.Current()
		if p == nil {
			return questionnaire.ErrFinished
		}
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (s *flowService) Answer(ctx context.Context, id string, option int) (*AnswerResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	var step questionnaire.Step
	epoch, err := sess.UseQuestionnaire(s.startEngine, func(e *questionnaire.Engine) error {
		var err error
		step, err = e.Answer(option)
		return err
	})
	if err != nil {
		return nil, mapErr(err)
	}
	if !step.Done {
		return &AnswerResult{Question: step.Next}, nil
	}

	out := step.Outcome
	res := domain.Result{
		Label:      out.Label,
		RawAnswers: out.RawAnswers,
		Category:   string(out.Category),
	}
	if err := sess.Complete(epoch, domain.ModalityPsychological, res); err != nil {
		return nil, mapErr(err)
	}
	s.metrics.IncQuestionnaireCompleted(string(out.Category))

	stored, _ := sess.Result(domain.ModalityPsychological)
	next, err := s.advance(ctx, sess, domain.ModalityPsychological, stored)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{Done: true, Result: &stored, Next: &next}, nil
}

func (s *flowService) FinalResult(ctx context.Context, id string) (*FinalResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	st := sess.Snapshot()
	if len(st.Selected) == 0 || !session.Pending(st.Selected, st.Completed).Terminal() {
		return nil, mapErr(ErrFlowIncomplete)
	}
	m, r, ok := sess.Canonical()
	if !ok {
		return nil, mapErr(ErrFlowIncomplete)
	}
	return &FinalResult{
		SessionID: st.ID,
		Modality:  m,
		Result:    r,
		Completed: st.Completed,
		Results:   st.Results,
	}, nil
}

func (s *flowService) session(id string) (*session.Session, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	return sess, nil
}

func (s *flowService) publish(ctx context.Context, ev events.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		s.metrics.IncEventPublishFailure(string(ev.Type))
		s.log.Warn("publish flow event failed", "session_id", ev.SessionID, "type", ev.Type, "error", err)
	}
}

// parseSelection fully validates a selection so callers can reject it before
// touching session state.
func parseSelection(raw []string) ([]domain.Modality, error) {
	if len(raw) == 0 {
		return nil, session.ErrNoModalities
	}
	selected, err := domain.ParseModalities(raw)
	if err != nil {
		return nil, err
	}
	if err := session.ValidateSelection(selected); err != nil {
		return nil, err
	}
	return selected, nil
}

func viewOf(st session.State) *FlowView {
	v := &FlowView{Session: st, Phase: PhaseSelecting}
	if len(st.Selected) == 0 {
		return v
	}
	next := session.Pending(st.Selected, st.Completed)
	v.Next = &next
	if next.Terminal() {
		v.Phase = PhaseFinished
	} else {
		v.Phase = PhaseInProgress
	}
	return v
}

func names(ms []domain.Modality) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.String()
	}
	return out
}
