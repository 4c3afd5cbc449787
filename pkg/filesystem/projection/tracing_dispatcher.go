package projection

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracingDispatcher struct {
	base   Dispatcher
	tracer trace.Tracer
}

// NewTracingDispatcher is a decorator for Dispatcher that creates an
// OpenTelemetry trace span for every operation.
func NewTracingDispatcher(base Dispatcher, tracerProvider trace.TracerProvider) Dispatcher {
	return &tracingDispatcher{
		base:   base,
		tracer: tracerProvider.Tracer("github.com/buildbarn/bb-virtual-checkout/pkg/filesystem/projection"),
	}
}

func (d *tracingDispatcher) span(ctx context.Context, name, relativePath string) (context.Context, trace.Span) {
	return d.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("relative_path", relativePath),
	))
}

func (d *tracingDispatcher) Opendir(ctx context.Context, relativePath string) ([]DirectoryEntry, error) {
	ctx, span := d.span(ctx, "Dispatcher.Opendir", relativePath)
	defer span.End()
	entries, err := d.base.Opendir(ctx, relativePath)
	if err == nil {
		span.SetAttributes(attribute.Int("entries", len(entries)))
	}
	return entries, err
}

func (d *tracingDispatcher) Lookup(ctx context.Context, relativePath string) (LookupResult, error) {
	ctx, span := d.span(ctx, "Dispatcher.Lookup", relativePath)
	defer span.End()
	return d.base.Lookup(ctx, relativePath)
}

func (d *tracingDispatcher) Access(ctx context.Context, relativePath string) (bool, error) {
	ctx, span := d.span(ctx, "Dispatcher.Access", relativePath)
	defer span.End()
	return d.base.Access(ctx, relativePath)
}

func (d *tracingDispatcher) Read(ctx context.Context, relativePath string) ([]byte, error) {
	ctx, span := d.span(ctx, "Dispatcher.Read", relativePath)
	defer span.End()
	data, err := d.base.Read(ctx, relativePath)
	if err == nil {
		span.SetAttributes(attribute.Int("size_bytes", len(data)))
	}
	return data, err
}

func (d *tracingDispatcher) FileCreated(ctx context.Context, relativePath string) error {
	ctx, span := d.span(ctx, "Dispatcher.FileCreated", relativePath)
	defer span.End()
	return d.base.FileCreated(ctx, relativePath)
}

func (d *tracingDispatcher) DirCreated(ctx context.Context, relativePath string) error {
	ctx, span := d.span(ctx, "Dispatcher.DirCreated", relativePath)
	defer span.End()
	return d.base.DirCreated(ctx, relativePath)
}

func (d *tracingDispatcher) FileModified(ctx context.Context, relativePath string) error {
	ctx, span := d.span(ctx, "Dispatcher.FileModified", relativePath)
	defer span.End()
	return d.base.FileModified(ctx, relativePath)
}

func (d *tracingDispatcher) FileDeleted(ctx context.Context, relativePath string) error {
	ctx, span := d.span(ctx, "Dispatcher.FileDeleted", relativePath)
	defer span.End()
	return d.base.FileDeleted(ctx, relativePath)
}

func (d *tracingDispatcher) DirDeleted(ctx context.Context, relativePath string) error {
	ctx, span := d.span(ctx, "Dispatcher.DirDeleted", relativePath)
	defer span.End()
	return d.base.DirDeleted(ctx, relativePath)
}

func (d *tracingDispatcher) FileRenamed(ctx context.Context, oldPath, newPath string) error {
	ctx, span := d.tracer.Start(ctx, "Dispatcher.FileRenamed", trace.WithAttributes(
		attribute.String("old_path", oldPath),
		attribute.String("new_path", newPath),
	))
	defer span.End()
	return d.base.FileRenamed(ctx, oldPath, newPath)
}

func (d *tracingDispatcher) GetStats() DispatcherStats {
	return d.base.GetStats()
}
