package factory

import (
	"context"
	"time"

	"github.com/BaSui01/brandforge/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/brandforge/llm"

const (
	capabilityText  = "text"
	capabilityImage = "image"
	capabilityVideo = "video"

	statusSuccess = "success"
	statusEmpty   = "empty"
	statusError   = "error"
)

// instruments 每次调用记录一个 span、Prometheus 计数/耗时和 OTel 计数。
type instruments struct {
	provider string
	recorder Recorder
	tracer   trace.Tracer
	calls    metric.Int64Counter
}

func newInstruments(provider string, recorder Recorder) *instruments {
	calls, err := otel.Meter(instrumentationName).Int64Counter("brandforge.provider.calls",
		metric.WithDescription("Provider calls by capability and status"))
	if err != nil {
		otel.Handle(err)
	}
	return &instruments{
		provider: provider,
		recorder: recorder,
		tracer:   otel.Tracer(instrumentationName),
		calls:    calls,
	}
}

func (in *instruments) start(ctx context.Context, capability string) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "provider."+capability, trace.WithAttributes(
		attribute.String("llm.provider", in.provider),
		attribute.String("llm.capability", capability),
	))
}

func (in *instruments) finish(ctx context.Context, span trace.Span, capability, status string, started time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("llm.status", status))
	span.End()

	if in.recorder != nil {
		in.recorder.RecordProviderRequest(in.provider, capability, status, time.Since(started))
	}
	if in.calls != nil {
		in.calls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", in.provider),
			attribute.String("capability", capability),
			attribute.String("status", status),
		))
	}
}

// =============================================================================
// 文本
// =============================================================================

type instrumentedText struct {
	inner llm.TextStreamAdapter
	in    *instruments
}

func instrumentText(inner llm.TextStreamAdapter, provider string, recorder Recorder) llm.TextStreamAdapter {
	return &instrumentedText{inner: inner, in: newInstruments(provider, recorder)}
}

// GenerateContentStream 转发片段；span 在流结束时关闭。
func (t *instrumentedText) GenerateContentStream(ctx context.Context, prompt, systemInstruction string) (<-chan llm.AIStreamChunk, error) {
	started := time.Now()
	spanCtx, span := t.in.start(ctx, capabilityText)

	src, err := t.inner.GenerateContentStream(spanCtx, prompt, systemInstruction)
	if err != nil {
		t.in.finish(ctx, span, capabilityText, statusError, started, err)
		return nil, err
	}

	out := make(chan llm.AIStreamChunk)
	go func() {
		defer close(out)
		var streamErr error
		defer func() {
			status := statusSuccess
			if streamErr != nil {
				status = statusError
			}
			t.in.finish(ctx, span, capabilityText, status, started, streamErr)
		}()

		for chunk := range src {
			if chunk.Err != nil {
				streamErr = chunk.Err
			}
			select {
			case <-ctx.Done():
				streamErr = ctx.Err()
				return
			case out <- chunk:
			}
		}
	}()
	return out, nil
}

// =============================================================================
// 媒体
// =============================================================================

type instrumentedMedia struct {
	inner llm.MediaAdapter
	in    *instruments
}

func instrumentMedia(inner llm.MediaAdapter, provider string, recorder Recorder) llm.MediaAdapter {
	return &instrumentedMedia{inner: inner, in: newInstruments(provider, recorder)}
}

func (m *instrumentedMedia) GenerateImage(ctx context.Context, prompt, referenceImage string) (*llm.Image, error) {
	started := time.Now()
	spanCtx, span := m.in.start(ctx, capabilityImage)
	span.SetAttributes(attribute.Bool("llm.has_reference", referenceImage != ""))

	img, err := m.inner.GenerateImage(spanCtx, prompt, referenceImage)
	status := statusSuccess
	switch {
	case err != nil:
		status = statusError
	case img == nil:
		status = statusEmpty
	default:
		span.SetAttributes(attribute.Int("llm.image_bytes", len(img.Data)))
	}
	m.in.finish(ctx, span, capabilityImage, status, started, err)
	return img, err
}

func (m *instrumentedMedia) GenerateVideo(ctx context.Context, prompt string, onProgress llm.ProgressFunc, referenceImage string) (*llm.VideoHandle, error) {
	started := time.Now()
	spanCtx, span := m.in.start(ctx, capabilityVideo)

	progress := func(status string) {
		span.AddEvent("progress", trace.WithAttributes(attribute.String("status", status)))
		onProgress.Progress(status)
	}
	h, err := m.inner.GenerateVideo(spanCtx, prompt, progress, referenceImage)
	status := statusSuccess
	if err != nil {
		status = statusError
	} else if h != nil {
		span.SetAttributes(attribute.Int("llm.video_bytes", h.Size))
	}
	m.in.finish(ctx, span, capabilityVideo, status, started, err)
	return h, err
}
