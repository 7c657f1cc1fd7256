package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/authflow/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// bodyLogLimit caps how much of a request or response body is logged.
const bodyLogLimit = 16 * 1024

const masked = "***"

// responseCapture records what the handler wrote so it can be logged.
type responseCapture struct {
	http.ResponseWriter

	status int
	size   int
	body   bytes.Buffer
	err    error
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	if room := bodyLogLimit - c.body.Len(); room > 0 {
		c.body.Write(p[:min(len(p), room)])
	}

	n, err := c.ResponseWriter.Write(p)
	c.size += n
	return n, err
}

// SetError lets the router attach the handler error to the span.
func (c *responseCapture) SetError(err error) {
	c.err = err
}

func (c *responseCapture) code() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

type observer struct {
	masks    map[string]struct{}
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func newObserver(maskFields []string, ins instrument.Instrumentation) *observer {
	o := &observer{
		masks:  make(map[string]struct{}, len(maskFields)),
		tracer: ins.Tracer("http.server"),
	}
	for _, f := range maskFields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			o.masks[f] = struct{}{}
		}
	}

	meter := ins.Meter("http.server")

	var err error
	o.requests, err = meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	o.latency, err = meter.Float64Histogram("http.server.duration", metric.WithDescription("HTTP request duration in milliseconds"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return o
}

func (o *observer) isMasked(key string) bool {
	_, ok := o.masks[strings.ToLower(key)]
	return ok
}

func (o *observer) headers(h http.Header) http.Header {
	out := h.Clone()
	for k := range out {
		if o.isMasked(k) {
			out.Set(k, masked)
		}
	}
	return out
}

func (o *observer) mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if o.isMasked(k) {
				out[k] = masked
				continue
			}
			out[k] = o.mask(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = o.mask(inner)
		}
		return out
	default:
		return v
	}
}

// body renders a payload for logging. JSON is masked, other text is logged
// as is and binary content is omitted.
func (o *observer) body(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return o.mask(decoded)
	}
	if !utf8.Valid(raw) {
		return "<binary body omitted>"
	}
	return string(raw)
}

// peekBody reads up to bodyLogLimit bytes and restores the full stream for
// the handler.
func peekBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}

	head, _ := io.ReadAll(io.LimitReader(r.Body, bodyLogLimit))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	return head
}

func (o *observer) record(ctx context.Context, span trace.Span, r *http.Request, route string, rec *responseCapture, elapsed time.Duration) {
	status := rec.code()
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
		semconv.HTTPResponseStatusCodeKey.Int(status),
	}

	if rec.err != nil {
		span.RecordError(rec.err)
	}
	switch {
	case status >= http.StatusInternalServerError && rec.err != nil:
		span.SetStatus(codes.Error, rec.err.Error())
	case status >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, http.StatusText(status))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attrs...)
	span.SetAttributes(
		semconv.ServerAddressKey.String(r.Host),
		attribute.String("http.user_agent", r.UserAgent()),
		attribute.Int("http.response_content_length", rec.size),
	)

	if o.requests != nil {
		o.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if o.latency != nil {
		o.latency.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attrs...))
	}
}

func middlewareObservability(maskFields []string, ins instrument.Instrumentation) Middleware {
	o := newObserver(maskFields, ins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath()
			if route == "" {
				route = r.URL.Path
			}

			ctx, span := o.tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
				),
			)
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"remote_ip", r.RemoteAddr,
				"headers", o.headers(r.Header),
				"body", o.body(peekBody(r)),
			)

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			elapsed := time.Since(start)
			o.record(ctx, span, r, route, rec, elapsed)

			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", rec.code(),
				"bytes", rec.size,
				"latency_ms", elapsed.Milliseconds(),
				"body", o.body(rec.body.Bytes()),
			)
		})
	}
}

func matchedRoutePath(r *http.Request) string {
	pattern := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath()
	if pattern != "" {
		return pattern
	}
	return r.URL.Path
}
