package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/agepredict-backend/internal/config"
	"github.com/yungbote/agepredict-backend/internal/platform/logger"
)

func testConfig(t *testing.T, inferenceURL string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("AGEPREDICT_INFERENCE_BASE_URL", inferenceURL)
	t.Setenv("AGEPREDICT_HTTP_SHUTDOWN_TIMEOUT", "2s")
	cfg, err := config.LoadFile("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestAppServesFlowAndShutsDown(t *testing.T) {
	inference := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict-text" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"label":"26-35","confidence":0.61}`)
	}))
	defer inference.Close()

	a, err := New(context.Background(), testConfig(t, inference.URL), logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	resp, err := http.Post(base+"/api/sessions", "application/json", strings.NewReader(`{"modalities":["text"]}`))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	var view struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&view)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || view.Session.ID == "" {
		t.Fatalf("start status=%d id=%q", resp.StatusCode, view.Session.ID)
	}

	resp, err = http.Post(base+"/api/sessions/"+view.Session.ID+"/text", "application/json", strings.NewReader(`{"text":"my knees hurt"}`))
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), `"label":"26-35"`) {
		t.Fatalf("text status=%d body=%s", resp.StatusCode, raw)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestNewRejectsBadBankPath(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Questionnaire.BankPath = "/nonexistent/bank.yaml"
	if _, err := New(context.Background(), cfg, logger.Nop()); err == nil {
		t.Fatalf("expected bank load error")
	}
}
