package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type relayMetrics struct {
	connections metric.Int64UpDownCounter
	joins       metric.Int64Counter
	messages    metric.Int64Counter
	signals     metric.Int64Counter
	errors      metric.Int64Counter
	callEnds    metric.Int64Counter
}

// newRelayMetrics binds instruments on the global meter provider. Without a
// configured provider they are no-ops.
func newRelayMetrics() *relayMetrics {
	meter := otel.Meter("chat-relay")
	connections, _ := meter.Int64UpDownCounter("relay_connections_active",
		metric.WithDescription("Currently open relay connections"))
	joins, _ := meter.Int64Counter("relay_room_joins_total",
		metric.WithDescription("Total successful room joins"))
	messages, _ := meter.Int64Counter("relay_messages_total",
		metric.WithDescription("Total chat messages persisted and broadcast"))
	signals, _ := meter.Int64Counter("relay_signals_total",
		metric.WithDescription("Total call signaling events relayed"))
	errs, _ := meter.Int64Counter("relay_errors_total",
		metric.WithDescription("Total error events sent to clients"))
	callEnds, _ := meter.Int64Counter("relay_synthetic_call_ends_total",
		metric.WithDescription("Total call-end events synthesized on disconnect"))

	return &relayMetrics{
		connections: connections,
		joins:       joins,
		messages:    messages,
		signals:     signals,
		errors:      errs,
		callEnds:    callEnds,
	}
}

func (m *relayMetrics) signal(ctx context.Context, kind string) {
	m.signals.Add(ctx, 1, metric.WithAttributes(attribute.String("type", kind)))
}

func (m *relayMetrics) failure(ctx context.Context, kind string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
