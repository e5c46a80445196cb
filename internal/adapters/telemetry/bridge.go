package telemetry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/tangle/internal/core/ports"
)

// LogBridge implements sdktrace.SpanProcessor and writes every finished span to a Logger.
type LogBridge struct {
	logger ports.Logger
}

// NewLogBridge returns a new LogBridge.
func NewLogBridge(logger ports.Logger) *LogBridge {
	return &LogBridge{
		logger: logger,
	}
}

// OnStart does nothing. Spans are reported once they end.
func (b *LogBridge) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd is called when a span ends.
func (b *LogBridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.logger == nil || !s.SpanContext().IsValid() {
		return
	}

	attrs := make([]string, 0, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		attrs = append(attrs, fmt.Sprintf("%s=%s", kv.Key, kv.Value.Emit()))
	}
	slices.Sort(attrs)

	msg := fmt.Sprintf("span %s took %s", s.Name(), s.EndTime().Sub(s.StartTime()))
	if len(attrs) > 0 {
		msg += " " + strings.Join(attrs, " ")
	}

	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "span failed"
		}
		b.logger.Warn(msg + ": " + desc)
		return
	}
	b.logger.Info(msg)
}

// ForceFlush does nothing.
func (b *LogBridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *LogBridge) Shutdown(_ context.Context) error {
	return nil
}

// NewProvider builds a tracer provider. Spans are logged through the bridge only when verbose is set.
func NewProvider(logger ports.Logger, verbose bool) *sdktrace.TracerProvider {
	var opts []sdktrace.TracerProviderOption
	if verbose {
		opts = append(opts, sdktrace.WithSpanProcessor(NewLogBridge(logger)))
	}
	return sdktrace.NewTracerProvider(opts...)
}
