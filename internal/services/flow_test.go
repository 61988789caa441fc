package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/agepredict-backend/internal/domain"
	"github.com/yungbote/agepredict-backend/internal/events"
	"github.com/yungbote/agepredict-backend/internal/inference/client"
	"github.com/yungbote/agepredict-backend/internal/observability"
	"github.com/yungbote/agepredict-backend/internal/platform/apierr"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
	"github.com/yungbote/agepredict-backend/internal/questionnaire"
	"github.com/yungbote/agepredict-backend/internal/session"
)

type fakePredictor struct {
	file func(ctx context.Context, m domain.Modality, filename string, r io.Reader) (client.Prediction, error)
	text func(ctx context.Context, text string) (client.Prediction, error)
}

func (f *fakePredictor) PredictFile(ctx context.Context, m domain.Modality, filename string, r io.Reader) (client.Prediction, error) {
	if f.file == nil {
		return client.Prediction{Label: "21-30"}, nil
	}
	return f.file(ctx, m, filename, r)
}

func (f *fakePredictor) PredictText(ctx context.Context, text string) (client.Prediction, error) {
	if f.text == nil {
		return client.Prediction{Label: "18-25"}, nil
	}
	return f.text(ctx, text)
}

type fixture struct {
	svc      FlowService
	registry *session.Registry
	pred     *fakePredictor
	events   *events.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		registry: session.NewRegistry(session.RegistryOptions{MaxSessions: 16}),
		pred:     &fakePredictor{},
		events:   &events.Memory{},
	}
	svc, err := NewFlowService(logger.Nop(), FlowDeps{
		Registry:  f.registry,
		Predictor: f.pred,
		Events:    f.events,
		Metrics:   observability.MustNewMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("NewFlowService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) start(t *testing.T, modalities ...string) string {
	t.Helper()
	v, err := f.svc.Start(context.Background(), modalities)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return v.Session.ID
}

func wantStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected apierr, got %v", err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("got %d/%s want %d/%s (%v)", ae.Status, ae.Code, status, code, err)
	}
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, nil)
	wantStatus(t, err, http.StatusBadRequest, "no_modalities")
	_, err = f.svc.Start(ctx, []string{"image", "fingerprint"})
	wantStatus(t, err, http.StatusBadRequest, "unknown_modality")
	_, err = f.svc.Start(ctx, []string{"image", "IMAGE"})
	wantStatus(t, err, http.StatusBadRequest, "duplicate_modality")

	if f.registry.Len() != 0 {
		t.Fatalf("rejected starts left %d sessions", f.registry.Len())
	}

	v, err := f.svc.Start(ctx, []string{"voice", "image"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v.Phase != PhaseInProgress || v.Next == nil || v.Next.Modality != domain.ModalityVoice {
		t.Fatalf("view=%+v", v)
	}
}

func TestImageThenTextFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "image", "text")

	conf := 0.9
	f.pred.file = func(_ context.Context, m domain.Modality, name string, r io.Reader) (client.Prediction, error) {
		if m != domain.ModalityImage || name != "face.jpg" {
			t.Fatalf("file call %s %s", m, name)
		}
		return client.Prediction{Label: "21-25", Confidence: &conf}, nil
	}
	got, err := f.svc.SubmitFile(ctx, id, domain.ModalityImage, "face.jpg", strings.NewReader("img"))
	if err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	if got.Next.Modality != domain.ModalityText || got.Result.Label != "21-25" {
		t.Fatalf("after image: %+v", got)
	}

	_, err = f.svc.FinalResult(ctx, id)
	wantStatus(t, err, http.StatusConflict, "flow_incomplete")

	f.pred.text = func(_ context.Context, text string) (client.Prediction, error) {
		if text != "i pay taxes" {
			t.Fatalf("text=%q", text)
		}
		return client.Prediction{Label: "26-35"}, nil
	}
	got, err = f.svc.SubmitText(ctx, id, "  i pay taxes ")
	if err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if !got.Next.Terminal() {
		t.Fatalf("after text: %+v", got.Next)
	}

	final, err := f.svc.FinalResult(ctx, id)
	if err != nil {
		t.Fatalf("FinalResult: %v", err)
	}
	if final.Modality != domain.ModalityText || final.Result.Label != "26-35" || len(final.Results) != 2 {
		t.Fatalf("final=%+v", final)
	}

	want := []events.Type{events.SessionStarted, events.ModalityCompleted, events.ModalityCompleted, events.SessionFinished}
	gotTypes := f.events.Types()
	if len(gotTypes) != len(want) {
		t.Fatalf("events=%v", gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Fatalf("events=%v", gotTypes)
		}
	}
}

func TestAdapterFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "voice")

	f.pred.file = func(context.Context, domain.Modality, string, io.Reader) (client.Prediction, error) {
		return client.Prediction{}, client.ErrNoLabel
	}
	_, err := f.svc.SubmitFile(ctx, id, domain.ModalityVoice, "a.wav", strings.NewReader("a"))
	wantStatus(t, err, http.StatusBadGateway, "prediction_no_label")

	f.pred.file = func(context.Context, domain.Modality, string, io.Reader) (client.Prediction, error) {
		return client.Prediction{}, &client.HTTPError{StatusCode: 500, Message: "model crashed"}
	}
	_, err = f.svc.SubmitFile(ctx, id, domain.ModalityVoice, "a.wav", strings.NewReader("a"))
	wantStatus(t, err, http.StatusBadGateway, "prediction_failed")

	v, err := f.svc.State(ctx, id)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(v.Session.Completed) != 0 || len(v.Session.Results) != 0 || v.Next.Modality != domain.ModalityVoice {
		t.Fatalf("state after failures: %+v", v)
	}

	f.pred.file = nil
	if _, err := f.svc.SubmitFile(ctx, id, domain.ModalityVoice, "a.wav", strings.NewReader("a")); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "image")

	_, err := f.svc.SubmitText(ctx, id, "hello")
	wantStatus(t, err, http.StatusConflict, "modality_not_selected")
	_, err = f.svc.SubmitText(ctx, id, "   ")
	wantStatus(t, err, http.StatusBadRequest, "empty_text")
	_, err = f.svc.SubmitFile(ctx, id, domain.ModalityText, "x", strings.NewReader("x"))
	wantStatus(t, err, http.StatusBadRequest, "not_upload_modality")
	_, err = f.svc.SubmitFile(ctx, id, domain.ModalityImage, "x", nil)
	wantStatus(t, err, http.StatusBadRequest, "missing_file")
	_, err = f.svc.SubmitFile(ctx, "nope", domain.ModalityImage, "x", strings.NewReader("x"))
	wantStatus(t, err, http.StatusNotFound, "session_not_found")

	if _, err := f.svc.SubmitFile(ctx, id, domain.ModalityImage, "x", strings.NewReader("x")); err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	_, err = f.svc.SubmitFile(ctx, id, domain.ModalityImage, "x", strings.NewReader("x"))
	wantStatus(t, err, http.StatusConflict, "modality_completed")
}

func TestResetDuringSubmissionDiscardsResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "iris")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.pred.file = func(context.Context, domain.Modality, string, io.Reader) (client.Prediction, error) {
		close(entered)
		<-release
		return client.Prediction{Label: "41-50"}, nil
	}

	errc := make(chan error, 1)
	go func() {
		_, err := f.svc.SubmitFile(ctx, id, domain.ModalityIris, "eye.png", strings.NewReader("e"))
		errc <- err
	}()
	<-entered

	_, err := f.svc.SubmitFile(ctx, id, domain.ModalityIris, "eye.png", strings.NewReader("e"))
	wantStatus(t, err, http.StatusConflict, "submission_in_flight")

	if _, err := f.svc.Restart(ctx, id, []string{"iris"}); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	close(release)
	wantStatus(t, <-errc, http.StatusConflict, "stale_session")

	v, _ := f.svc.State(ctx, id)
	if len(v.Session.Results) != 0 || len(v.Session.Completed) != 0 {
		t.Fatalf("stale response written: %+v", v.Session)
	}

	f.pred.file = nil
	if _, err := f.svc.SubmitFile(ctx, id, domain.ModalityIris, "eye.png", strings.NewReader("e")); err != nil {
		t.Fatalf("submit after restart: %v", err)
	}
}

func TestQuestionnaireFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "psychological", "voice")

	p, err := f.svc.CurrentQuestion(ctx, id)
	if err != nil {
		t.Fatalf("CurrentQuestion: %v", err)
	}
	if p.Number != 1 || p.Of != 15 || p.Phase != questionnaire.PhaseDiscovery {
		t.Fatalf("prompt=%+v", p)
	}

	_, err = f.svc.Answer(ctx, id, 7)
	wantStatus(t, err, http.StatusBadRequest, "option_out_of_range")

	var res *AnswerResult
	for i := 0; i < questionnaire.DiscoveryQuestions+questionnaire.ScoringQuestions; i++ {
		res, err = f.svc.Answer(ctx, id, 0)
		if err != nil {
			t.Fatalf("Answer %d: %v", i, err)
		}
		if i < 14 && (res.Done || res.Question.Number != i+2) {
			t.Fatalf("answer %d: %+v", i, res)
		}
	}
	if !res.Done || res.Result == nil || res.Next == nil || res.Next.Modality != domain.ModalityVoice {
		t.Fatalf("final answer: %+v", res)
	}
	if len(res.Result.RawAnswers) != questionnaire.ScoringQuestions || res.Result.Category == "" {
		t.Fatalf("result=%+v", res.Result)
	}

	_, err = f.svc.Answer(ctx, id, 0)
	wantStatus(t, err, http.StatusConflict, "modality_completed")
	_, err = f.svc.CurrentQuestion(ctx, id)
	wantStatus(t, err, http.StatusConflict, "modality_completed")
}

func TestQuestionnaireRequiresSelection(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "text")
	_, err := f.svc.CurrentQuestion(context.Background(), id)
	wantStatus(t, err, http.StatusConflict, "modality_not_selected")
}

func TestResetAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "text")
	if _, err := f.svc.SubmitText(ctx, id, "hi"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	v, err := f.svc.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if v.Phase != PhaseSelecting || v.Next != nil || len(v.Session.Results) != 0 {
		t.Fatalf("view after reset: %+v", v)
	}
	_, err = f.svc.FinalResult(ctx, id)
	wantStatus(t, err, http.StatusConflict, "flow_incomplete")

	if err := f.svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = f.svc.State(ctx, id)
	wantStatus(t, err, http.StatusNotFound, "session_not_found")
	wantStatus(t, f.svc.Delete(ctx, id), http.StatusNotFound, "session_not_found")
}

func TestPublishFailureDoesNotFailStep(t *testing.T) {
	f := newFixture(t)
	f.events.Err = errors.New("broker down")
	id := f.start(t, "image")
	got, err := f.svc.SubmitFile(context.Background(), id, domain.ModalityImage, "f.jpg", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	if !got.Next.Terminal() {
		t.Fatalf("next=%v", got.Next)
	}
}

func TestRejectedRestartKeepsFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "image", "text")

	if _, err := f.svc.SubmitFile(ctx, id, domain.ModalityImage, "face.jpg", strings.NewReader("img")); err != nil {
		t.Fatalf("SubmitFile: %v", err)
	}
	sess, err := f.registry.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	epoch := sess.Epoch()

	cases := []struct {
		modalities []string
		code       string
	}{
		{[]string{"voice", "voice"}, "duplicate_modality"},
		{[]string{"voice", "fingerprint"}, "unknown_modality"},
		{nil, "no_modalities"},
	}
	for _, tc := range cases {
		_, err := f.svc.Restart(ctx, id, tc.modalities)
		wantStatus(t, err, http.StatusBadRequest, tc.code)
	}

	v, err := f.svc.State(ctx, id)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	st := v.Session
	if len(st.Selected) != 2 || st.Selected[0] != domain.ModalityImage || st.Selected[1] != domain.ModalityText {
		t.Fatalf("selected=%v", st.Selected)
	}
	if len(st.Completed) != 1 || st.Completed[0] != domain.ModalityImage || len(st.Results) != 1 {
		t.Fatalf("completed=%v results=%v", st.Completed, st.Results)
	}
	if v.Phase != PhaseInProgress || v.Next == nil || v.Next.Modality != domain.ModalityText {
		t.Fatalf("view=%+v", v)
	}
	if sess.Epoch() != epoch {
		t.Fatalf("epoch moved from %d to %d", epoch, sess.Epoch())
	}
	for _, typ := range f.events.Types() {
		if typ == events.SessionReset {
			t.Fatalf("rejected restart published %s", typ)
		}
	}
}
