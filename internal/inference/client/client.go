package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/agepredict-backend/internal/domain"
)

const maxResponseBytes = 1 << 20

type Options struct {
	BaseURL string
	APIKey  string
	Paths   Paths

	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
}

// Client calls the external age prediction service. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	paths   Paths

	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	httpClient *http.Client
	tracer     trace.Tracer
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		paths:      opts.Paths.withDefaults(),
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    250 * time.Millisecond,
		httpClient: hc,
		tracer:     otel.Tracer("agepredict/inference"),
	}, nil
}

func (c *Client) path(m domain.Modality) (string, error) {
	switch m {
	case domain.ModalityImage:
		return c.paths.Image, nil
	case domain.ModalityIris:
		return c.paths.Iris, nil
	case domain.ModalityText:
		return c.paths.Text, nil
	case domain.ModalityVoice:
		return c.paths.Voice, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedModality, m)
	}
}

// PredictFile uploads one file as the multipart field "file" to the endpoint of
// an upload modality (image, iris, voice).
func (c *Client) PredictFile(ctx context.Context, m domain.Modality, filename string, r io.Reader) (Prediction, error) {
	if !m.Upload() {
		return Prediction{}, fmt.Errorf("%w: %s is not an upload modality", ErrUnsupportedModality, m)
	}
	path, err := c.path(m)
	if err != nil {
		return Prediction{}, err
	}
	if r == nil {
		return Prediction{}, errors.New("file reader required")
	}

	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return Prediction{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return Prediction{}, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Prediction{}, err
	}

	return c.predict(ctx, m, path, mw.FormDataContentType(), buf.Bytes())
}

func (c *Client) PredictText(ctx context.Context, text string) (Prediction, error) {
	path, err := c.path(domain.ModalityText)
	if err != nil {
		return Prediction{}, err
	}
	body, err := json.Marshal(textPredictRequest{Text: text})
	if err != nil {
		return Prediction{}, err
	}
	return c.predict(ctx, domain.ModalityText, path, "application/json", body)
}

func (c *Client) predict(ctx context.Context, m domain.Modality, path, contentType string, body []byte) (Prediction, error) {
	ctx, span := c.tracer.Start(ctx, "inference.predict", trace.WithAttributes(
		attribute.String("agepredict.modality", m.String()),
		attribute.String("http.route", path),
		attribute.Int("http.request.body.size", len(body)),
	))
	defer span.End()

	var resp predictResponse
	err := c.do(ctx, path, contentType, body, &resp)
	if err == nil {
		var pred Prediction
		pred, err = resp.prediction()
		if err == nil {
			span.SetAttributes(attribute.String("agepredict.label", pred.Label))
			return pred, nil
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return Prediction{}, err
}

func (r predictResponse) prediction() (Prediction, error) {
	label := strings.TrimSpace(r.Label)
	bin := strings.TrimSpace(r.PredictedBin)
	if label == "" {
		label = bin
	}
	if label == "" {
		if msg := strings.TrimSpace(r.Error); msg != "" {
			return Prediction{}, fmt.Errorf("%w: %s", ErrNoLabel, msg)
		}
		return Prediction{}, ErrNoLabel
	}
	return Prediction{Label: label, PredictedBin: bin, Confidence: r.Confidence}, nil
}

// ---------------- HTTP helpers ----------------

func (c *Client) setHeaders(req *http.Request, contentType string) {
	if strings.TrimSpace(contentType) != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// do posts body and decodes a 2xx JSON answer into out. Transport errors and
// 5xx responses are retried up to maxRetries times with exponential backoff.
func (c *Client) do(ctx context.Context, path, contentType string, body []byte, out any) error {
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := c.backoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx2.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx2, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		c.setHeaders(req, contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx2.Err() != nil {
				return ctx2.Err()
			}
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				herr := parseHTTPError(resp.StatusCode, raw)
				if h, ok := herr.(*HTTPError); !ok || !h.Retryable() {
					return herr
				}
				lastErr = herr
			} else {
				if err := json.Unmarshal(raw, out); err != nil {
					return fmt.Errorf("decode prediction: %w", err)
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx2.Done():
				return ctx2.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}
