package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/telodox/portal"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Tenant resolution outcomes: resolved, root, not_found, redirect, degraded, error
	TenantResolutionsTotal metric.Int64Counter

	// Submission writer
	FormSavesTotal          metric.Int64Counter
	FormSubmitsTotal        metric.Int64Counter
	ValidationFailuresTotal metric.Int64Counter

	// Billing
	WebhookEventsTotal metric.Int64Counter

	// Outbound e-mail
	NotificationsTotal      metric.Int64Counter
	NotificationErrorsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.TenantResolutionsTotal, _ = meter.Int64Counter(
		"portal.tenant.resolutions.total",
		metric.WithDescription("Total number of tenant resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)

	m.FormSavesTotal, _ = meter.Int64Counter(
		"portal.forms.saves.total",
		metric.WithDescription("Total number of form auto-saves"),
		metric.WithUnit("{save}"),
	)

	m.FormSubmitsTotal, _ = meter.Int64Counter(
		"portal.forms.submits.total",
		metric.WithDescription("Total number of form submissions"),
		metric.WithUnit("{submit}"),
	)

	m.ValidationFailuresTotal, _ = meter.Int64Counter(
		"portal.forms.validation_failures.total",
		metric.WithDescription("Total number of submissions rejected by form validation"),
		metric.WithUnit("{failure}"),
	)

	m.WebhookEventsTotal, _ = meter.Int64Counter(
		"portal.billing.webhook_events.total",
		metric.WithDescription("Total number of payment provider webhook events by type and outcome"),
		metric.WithUnit("{event}"),
	)

	m.NotificationsTotal, _ = meter.Int64Counter(
		"portal.notifications.sent.total",
		metric.WithDescription("Total number of notification e-mails sent"),
		metric.WithUnit("{email}"),
	)

	m.NotificationErrorsTotal, _ = meter.Int64Counter(
		"portal.notifications.errors.total",
		metric.WithDescription("Total number of notification e-mails that failed to send"),
		metric.WithUnit("{error}"),
	)

	return m
}

// Count adds one to counter with the given string attributes as key/value pairs.
func Count(ctx context.Context, counter metric.Int64Counter, kv ...string) {
	if counter == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
