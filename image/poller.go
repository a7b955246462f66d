package image

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/internal/ctxkeys"
	"github.com/BaSui01/rsimage/internal/retry"
	"github.com/BaSui01/rsimage/types"
)

// PollState is the task poller state.
type PollState int

const (
	StatePending PollState = iota
	StateReady
	StateFailed
	StateTimedOut
)

func (s PollState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Poller drives submit → poll status → fetch result for task-based providers.
type Poller struct {
	api        *apiCaller
	cfg        ProviderConfig
	downloader *Downloader
	clock      retry.Clock
	sleeper    retry.Sleeper
	recorder   Recorder
	tracer     trace.Tracer
	logger     *zap.Logger
}

// PollUntilReady polls the status endpoint until the task is ready, fails,
// or cfg.Timeout elapses. The first poll is issued immediately and the
// poller sleeps PollInterval between polls.
func (p *Poller) PollUntilReady(ctx context.Context, handle TaskHandle) (*ImageResult, error) {
	ctx, span := p.tracer.Start(ctx, "image.poll",
		trace.WithAttributes(attribute.String("image.task_id", handle.ID)))
	defer span.End()

	logger := p.logger.With(ctxkeys.Fields(ctx)...).With(zap.String("task_id", handle.ID))
	interval := p.cfg.PollInterval()
	started := p.clock.Now()

	for polls := 0; ; polls++ {
		if polls > 0 {
			if err := p.sleeper.Sleep(ctx, interval); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "cancelled")
				return nil, err
			}
		}
		if p.clock.Now().Sub(started) >= p.cfg.Timeout {
			break
		}

		state, res, err := p.pollOnce(ctx, handle, logger)
		switch state {
		case StateReady:
			span.SetAttributes(attribute.Int("image.polls", polls+1))
			span.SetStatus(codes.Ok, "")
			return res, nil
		case StateFailed:
			span.RecordError(err)
			span.SetStatus(codes.Error, "task failed")
			return nil, err
		}
	}

	p.recorder.RecordPoll(ctx, OutcomeTimeout)
	span.SetStatus(codes.Error, "timeout")
	logger.Warn("task polling timed out", zap.Duration("waited", p.clock.Now().Sub(started)))
	return nil, types.NewError(types.ErrPollingTimeout, "no result image before the deadline").
		WithProvider(p.cfg.Provider)
}

func (p *Poller) pollOnce(ctx context.Context, handle TaskHandle, logger *zap.Logger) (PollState, *ImageResult, error) {
	path := p.cfg.StatusEndpoint + "?taskId=" + url.QueryEscape(handle.ID)

	resp, err := p.api.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		if ctx.Err() != nil {
			return StateFailed, nil, ctx.Err()
		}
		p.recorder.RecordPoll(ctx, OutcomeTransport)
		logger.Warn("task poll transport error, will retry", zap.Error(err))
		return StatePending, nil, nil
	}

	if resp.Status == http.StatusNotFound || resp.Status == http.StatusBadRequest {
		p.recorder.RecordPoll(ctx, OutcomeFailed)
		msg := upstreamMessage(resp.Raw, "unknown error")
		logger.Warn("task poll rejected", zap.Int("http_status", resp.Status), zap.String("message", msg))
		return StateFailed, nil, types.Errorf(types.ErrUpstreamTaskFailure, "polling failed: %s", msg).
			WithHTTPStatus(resp.Status).WithProvider(p.cfg.Provider)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		p.recorder.RecordPoll(ctx, OutcomeTransport)
		logger.Warn("task poll temporary error", zap.Int("http_status", resp.Status))
		return StatePending, nil, nil
	}

	body, err := DecodeBody(resp.Raw)
	if err != nil {
		p.recorder.RecordPoll(ctx, OutcomePending)
		logger.Warn("task poll returned non-JSON body", zap.Error(err))
		return StatePending, nil, nil
	}

	code, _ := StatusCode(body)
	msg := Message(body, "unknown message")

	if code == http.StatusOK {
		if candidates, _ := Extract(body); len(candidates) > 0 {
			p.recorder.RecordPoll(ctx, OutcomeSuccess)
			res, err := p.ready(ctx, handle, candidates[0], logger)
			if err != nil {
				return StateFailed, nil, err
			}
			return StateReady, res, nil
		}
	}

	if p.cfg.IsTerminal(code) {
		p.recorder.RecordPoll(ctx, OutcomeFailed)
		logger.Warn("task failed", zap.Int("code", code), zap.String("message", msg))
		return StateFailed, nil, types.Errorf(types.ErrUpstreamTaskFailure, "task failed (code=%d): %s", code, msg).
			WithProvider(p.cfg.Provider)
	}

	p.recorder.RecordPoll(ctx, OutcomePending)
	logger.Debug("task still processing", zap.Int("code", code), zap.String("message", msg))
	return StatePending, nil, nil
}

// ready builds the result, downloading the image best-effort.
func (p *Poller) ready(ctx context.Context, handle TaskHandle, c Candidate, logger *zap.Logger) (*ImageResult, error) {
	meta := map[string]any{"task_id": handle.ID}
	res, err := c.Result(meta)
	if err != nil {
		return nil, types.NewError(types.ErrEmptyResponse, "task result carried no usable image").WithCause(err)
	}
	logger.Info("task ready", zap.String("url", res.URL))

	if len(res.Data) == 0 && res.URL != "" {
		data, err := p.downloader.Fetch(ctx, res.URL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			logger.Warn("result download failed, returning url only", zap.Error(err))
			return res, nil
		}
		res.Data = data
	}
	return res, nil
}
