package image

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/internal/ctxkeys"
	"github.com/BaSui01/rsimage/internal/retry"
	"github.com/BaSui01/rsimage/types"
)

const instrumentationName = "github.com/BaSui01/rsimage/image"

// Client is the generation orchestrator. It walks the configured endpoints
// in order and retries each one with linear backoff.
//
// Attempt classification:
//   - 404: move to the next endpoint without using up retries
//   - 5xx, timeouts, connection errors, empty payloads: retry the same endpoint
//   - other 4xx, task failures, polling timeouts: stop immediately
type Client struct {
	cfg        ProviderConfig
	api        *apiCaller
	poller     *Poller
	downloader *Downloader
	clock      retry.Clock
	sleeper    retry.Sleeper
	recorder   Recorder
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls and downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.api.client = c
			cl.downloader = NewDownloader(c)
		}
	}
}

// WithClock sets the clock used for the polling deadline.
func WithClock(c retry.Clock) Option {
	return func(cl *Client) {
		if c != nil {
			cl.clock = c
		}
	}
}

// WithSleeper sets how backoff and poll intervals wait.
func WithSleeper(s retry.Sleeper) Option {
	return func(cl *Client) {
		if s != nil {
			cl.sleeper = s
		}
	}
}

// WithRecorder sets the observability hook.
func WithRecorder(r Recorder) Option {
	return func(cl *Client) {
		if r != nil {
			cl.recorder = r
		}
	}
}

// NewClient creates a generation client.
func NewClient(cfg ProviderConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	c := &Client{
		cfg:        cfg,
		api:        &apiCaller{client: httpClient, cfg: cfg},
		downloader: NewDownloader(httpClient),
		clock:      retry.SystemClock(),
		sleeper:    retry.RealSleeper(),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer(instrumentationName),
		logger: logger.With(
			zap.String("component", "image"),
			zap.String("provider", cfg.Provider),
			zap.String("kind", string(cfg.Kind))),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.poller = &Poller{
		api:        c.api,
		cfg:        cfg,
		downloader: c.downloader,
		clock:      c.clock,
		sleeper:    c.sleeper,
		recorder:   c.recorder,
		tracer:     c.tracer,
		logger:     c.logger,
	}
	return c
}

// Config returns the provider configuration.
func (c *Client) Config() ProviderConfig {
	return c.cfg
}

// Downloader returns the downloader sharing this client's transport.
func (c *Client) Downloader() *Downloader {
	return c.downloader
}

// Generate turns req into an image. Validation failures happen before any
// network call. On success the result carries a url, inline bytes, or both.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*ImageResult, error) {
	start := c.clock.Now()
	ctx, span := c.tracer.Start(ctx, "image.generate",
		trace.WithAttributes(
			attribute.String("image.provider", c.cfg.Provider),
			attribute.String("image.kind", string(c.cfg.Kind)),
		))
	defer span.End()

	res, err := c.generate(ctx, req)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = outcomeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(types.GetErrorCode(err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	c.recorder.RecordGeneration(ctx, c.cfg.Kind, outcome, c.clock.Now().Sub(start))
	return res, err
}

func (c *Client) generate(ctx context.Context, req GenerationRequest) (*ImageResult, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	body, err := BuildBody(req, c.cfg)
	if err != nil {
		return nil, err
	}

	logger := c.logger.With(ctxkeys.Fields(ctx)...)
	policy := c.cfg.Retry
	var lastErr error

	for _, ep := range c.cfg.Endpoints {
	attempts:
		for attempt := 0; attempt < policy.Attempts(); attempt++ {
			logger.Debug("image request",
				zap.String("method", c.cfg.Method),
				zap.String("endpoint", ep),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", policy.Attempts()))

			res, err := c.attempt(ctx, ep, attempt, body)
			if err == nil {
				return res, nil
			}
			lastErr = err

			switch {
			case types.IsCode(err, types.ErrNotFound):
				logger.Warn("endpoint not found, trying next", zap.String("endpoint", ep))
				break attempts
			case !types.IsRetryable(err):
				return nil, err
			case policy.HasNext(attempt):
				delay := policy.Delay(attempt)
				logger.Warn("temporary error, retrying",
					zap.String("endpoint", ep),
					zap.Duration("delay", delay),
					zap.Error(err))
				if serr := c.sleeper.Sleep(ctx, delay); serr != nil {
					return nil, serr
				}
			default:
				return nil, err
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, types.NewError(types.ErrTransientTransport, "image generation failed after all endpoint retries")
}

// attempt performs one HTTP call against ep and classifies the outcome.
func (c *Client) attempt(ctx context.Context, ep string, attempt int, body map[string]any) (*ImageResult, error) {
	ctx, span := c.tracer.Start(ctx, "image.attempt",
		trace.WithAttributes(
			attribute.String("image.endpoint", ep),
			attribute.Int("image.attempt", attempt+1),
		))
	defer span.End()

	started := c.clock.Now()
	res, outcome, err := c.doAttempt(ctx, ep, attempt, body)
	c.recorder.RecordAttempt(ctx, ep, outcome, c.clock.Now().Sub(started))

	span.SetAttributes(attribute.String("image.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(outcome))
	}
	return res, err
}

func (c *Client) doAttempt(ctx context.Context, ep string, attempt int, body map[string]any) (*ImageResult, Outcome, error) {
	resp, err := c.api.call(ctx, c.cfg.Method, ep, body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, OutcomeTerminal, ctxErr
		}
		return nil, OutcomeRetryable, types.NewError(types.ErrTransientTransport, transportMessage(err)).
			WithCause(err).WithRetryable(true).WithProvider(c.cfg.Provider)
	}

	switch {
	case resp.Status == http.StatusNotFound:
		return nil, OutcomeNotFound, types.Errorf(types.ErrNotFound, "Image API error 404 on %s: %s", ep,
			upstreamMessage(resp.Raw, "not found")).
			WithHTTPStatus(resp.Status).WithProvider(c.cfg.Provider)
	case resp.Status >= 500:
		return nil, OutcomeRetryable, types.Errorf(types.ErrTransientTransport, "Image API error %d: %s", resp.Status,
			upstreamMessage(resp.Raw, "server error")).
			WithHTTPStatus(resp.Status).WithRetryable(true).WithProvider(c.cfg.Provider)
	case resp.Status < 200 || resp.Status >= 300:
		return nil, OutcomeTerminal, types.Errorf(types.ErrUpstreamError, "Image API error %d: %s", resp.Status,
			upstreamMessage(resp.Raw, "unknown error")).
			WithHTTPStatus(resp.Status).WithProvider(c.cfg.Provider)
	}

	payload, err := DecodeBody(resp.Raw)
	if err != nil {
		return nil, OutcomeEmpty, types.NewError(types.ErrEmptyResponse, "Image API returned a non-JSON body").
			WithCause(err).WithRetryable(true).WithProvider(c.cfg.Provider)
	}

	if candidates, rule := Extract(payload); len(candidates) > 0 {
		res, err := candidates[0].Result(map[string]any{
			"endpoint": ep,
			"attempt":  attempt + 1,
			"rule":     rule,
		})
		if err != nil {
			return nil, OutcomeEmpty, types.NewError(types.ErrEmptyResponse, "Image API returned an unusable image").
				WithCause(err).WithRetryable(true).WithProvider(c.cfg.Provider)
		}
		return res, OutcomeSuccess, nil
	}

	if c.cfg.Kind == KindTaskBased {
		if id, ok := TaskID(payload); ok {
			c.logger.Info("task handle received, polling status", append(ctxkeys.Fields(ctx), zap.String("task_id", id))...)
			res, err := c.poller.PollUntilReady(ctx, TaskHandle{ID: id, SubmittedAt: c.clock.Now()})
			if err != nil {
				return nil, OutcomeTerminal, err
			}
			if res.Meta == nil {
				res.Meta = map[string]any{}
			}
			res.Meta["endpoint"] = ep
			res.Meta["attempt"] = attempt + 1
			return res, OutcomeTaskQueued, nil
		}
	}

	return nil, OutcomeEmpty, types.Errorf(types.ErrEmptyResponse, "Image API returned no images (keys: %s, msg: %s)",
		keysOrDash(payload), Message(payload, "no message")).
		WithRetryable(true).WithProvider(c.cfg.Provider)
}

func keysOrDash(body map[string]any) string {
	keys := Keys(body)
	if len(keys) == 0 {
		return "-"
	}
	return strings.Join(keys, ",")
}

func transportMessage(err error) string {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	return "connection failed"
}

// outcomeOf labels a failed generation for metrics.
func outcomeOf(err error) Outcome {
	switch types.GetErrorCode(err) {
	case types.ErrNotFound:
		return OutcomeNotFound
	case types.ErrPollingTimeout:
		return OutcomeTimeout
	case types.ErrUpstreamTaskFailure:
		return OutcomeFailed
	case types.ErrEmptyResponse:
		return OutcomeEmpty
	case types.ErrTransientTransport:
		return OutcomeRetryable
	}
	return OutcomeTerminal
}
