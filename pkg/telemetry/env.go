package telemetry

import (
	"net/url"
	"strconv"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NormalizeEndpoint strips an http(s) scheme and any path from the OTLP
// endpoint, since the gRPC exporters want a bare host:port. The second return
// reports whether the endpoint asked for TLS.
func NormalizeEndpoint(endpoint string) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)

	secure := false
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
		secure = true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
	}

	if idx := strings.IndexByte(endpoint, '/'); idx >= 0 {
		endpoint = endpoint[:idx]
	}

	return endpoint, secure
}

// ParseHeaders parses the OTEL_EXPORTER_OTLP_HEADERS format: comma-separated
// key=value pairs with URL-encoded values. Entries without '=' are skipped.
func ParseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}

		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		headers[key] = value
	}

	if len(headers) == 0 {
		return nil
	}
	return headers
}

// NewSampler resolves OTEL_TRACES_SAMPLER / OTEL_TRACES_SAMPLER_ARG into an
// SDK sampler. Unknown names and unparsable ratios fall back to
// parentbased_always_on, matching SDK spec behavior.
func NewSampler(name, arg string) sdktrace.Sampler {
	ratio := func() float64 {
		r, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil || r < 0 || r > 1 {
			return 1.0
		}
		return r
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(ratio())
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio()))
	case "parentbased_always_on", "":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
