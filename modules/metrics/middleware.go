// Package metrics records Prometheus metrics for request-reply services.
package metrics

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Status labels that are not HTTP-style codes.
const (
	StatusOK             = "200"
	StatusTransportError = "transport_error"
)

// Middleware implements mono.MiddlewareModule. It wraps every request-reply
// handler registered after it and records request counts and latency.
type Middleware struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Middleware)(nil)
var _ mono.MiddlewareModule = (*Middleware)(nil)

// New creates the middleware with its own registry. Go runtime and process
// collectors are registered alongside the RPC metrics.
func New(logger types.Logger) *Middleware {
	reg := prometheus.NewRegistry()

	m := &Middleware{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_rpc_requests_total",
			Help: "Request-reply calls by service and reply status",
		}, []string{"service", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_rpc_duration_seconds",
			Help:    "Request-reply handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		logger: logger,
	}

	reg.MustRegister(
		m.requests,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Name returns the module name.
func (m *Middleware) Name() string {
	return "metrics"
}

// Start implements mono.Module.
func (m *Middleware) Start(_ context.Context) error {
	m.logger.Info("Metrics middleware started")
	return nil
}

// Stop implements mono.Module.
func (m *Middleware) Stop(_ context.Context) error {
	m.logger.Info("Metrics middleware stopped")
	return nil
}

// Gatherer exposes the registry for the /metrics endpoint.
func (m *Middleware) Gatherer() prometheus.Gatherer {
	return m.registry
}

// OnModuleLifecycle passes through module lifecycle events unchanged.
func (m *Middleware) OnModuleLifecycle(
	_ context.Context,
	event types.ModuleLifecycleEvent,
) types.ModuleLifecycleEvent {
	return event
}

// OnServiceRegistration wraps request-reply handlers with instrumentation.
func (m *Middleware) OnServiceRegistration(
	_ context.Context,
	reg types.ServiceRegistration,
) types.ServiceRegistration {
	if reg.Type != types.ServiceTypeRequestReply || reg.RequestHandler == nil {
		return reg
	}

	service := reg.Name
	original := reg.RequestHandler

	// Pre-create the success series so it is exported at zero.
	m.requests.WithLabelValues(service, StatusOK)

	m.logger.Debug("Instrumenting service", "service", service)

	reg.RequestHandler = func(ctx context.Context, req *types.Msg) ([]byte, error) {
		start := time.Now()
		resp, err := original(ctx, req)
		m.latency.WithLabelValues(service).Observe(time.Since(start).Seconds())

		status := StatusOK
		if err != nil {
			status = StatusTransportError
		} else if code, ok := replyStatus(resp); ok {
			status = strconv.Itoa(code)
		}
		m.requests.WithLabelValues(service, status).Inc()
		return resp, err
	}
	return reg
}

// OnConfigurationChange passes through configuration changes unchanged.
func (m *Middleware) OnConfigurationChange(
	_ context.Context,
	event types.ConfigurationEvent,
) types.ConfigurationEvent {
	return event
}

// OnOutgoingMessage passes through outgoing messages unchanged.
func (m *Middleware) OnOutgoingMessage(
	octx types.OutgoingMessageContext,
) types.OutgoingMessageContext {
	return octx
}

// OnEventConsumerRegistration passes through event consumer registrations unchanged.
func (m *Middleware) OnEventConsumerRegistration(
	_ context.Context,
	entry types.EventConsumerEntry,
) types.EventConsumerEntry {
	return entry
}

// OnEventStreamConsumerRegistration passes through event stream consumer registrations unchanged.
func (m *Middleware) OnEventStreamConsumerRegistration(
	_ context.Context,
	entry types.EventStreamConsumerEntry,
) types.EventStreamConsumerEntry {
	return entry
}

// replyStatus peeks at a structured error in the reply body.
func replyStatus(resp []byte) (int, bool) {
	var reply struct {
		Error *struct {
			Status int `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &reply); err != nil || reply.Error == nil {
		return 0, false
	}
	return reply.Error.Status, true
}
