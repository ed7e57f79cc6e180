package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("vtond/internal/pipeline")

// TryOn centralizes inference behavior. It resolves the handle (failing with
// ErrNotLoaded before touching inputs), validates parameters, runs the
// pipeline under the concurrency guard and returns the first produced image.
// Any further images are discarded.
func (m *Manager) TryOn(ctx context.Context, req Request) (image.Image, error) {
	p, err := m.Pipeline()
	if err != nil {
		return nil, err
	}
	if req.Person == nil || req.Garment == nil {
		return nil, InvalidInput("person and garment images are required")
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if req.NumSamples <= 0 {
		req.NumSamples = 1
	}

	ctx, span := tracer.Start(ctx, "pipeline.try_on", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("tryon.category", string(req.Category)),
		attribute.String("tryon.garment_photo_type", string(req.GarmentPhotoType)),
		attribute.Int("tryon.num_timesteps", req.NumTimesteps),
		attribute.Float64("tryon.guidance_scale", req.GuidanceScale),
		attribute.Int64("tryon.seed", req.Seed),
	)

	release, err := m.guard.acquire(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "admission")
		pipelineRunsTotal.WithLabelValues(outcomeCanceled).Inc()
		return nil, err
	}
	defer release()

	m.publisher.Publish(Event{Name: "tryon_start", Fields: map[string]any{"request_id": req.RequestID, "category": string(req.Category)}})
	start := time.Now()
	res, err := p.TryOn(ctx, req)
	pipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = outcomeCanceled
		}
		pipelineRunsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		m.publisher.Publish(Event{Name: "tryon_end", Fields: map[string]any{"request_id": req.RequestID, "error": err.Error()}})
		return nil, err
	}
	span.SetAttributes(attribute.Int("tryon.images", len(res.Images)))
	if len(res.Images) == 0 || res.Images[0] == nil {
		pipelineRunsTotal.WithLabelValues(outcomeNoImage).Inc()
		span.SetStatus(codes.Error, outcomeNoImage)
		m.publisher.Publish(Event{Name: "tryon_end", Fields: map[string]any{"request_id": req.RequestID, "error": NoImageMessage}})
		return nil, ErrNoImage
	}
	pipelineRunsTotal.WithLabelValues(outcomeOK).Inc()
	m.publisher.Publish(Event{Name: "tryon_end", Fields: map[string]any{"request_id": req.RequestID, "dur_ms": int(time.Since(start) / time.Millisecond)}})
	return res.Images[0], nil
}
