package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		endpoint string
		secure   bool
	}{
		{"bare host port", "localhost:4317", "localhost:4317", false},
		{"http scheme stripped", "http://collector:4317", "collector:4317", false},
		{"https scheme implies tls", "https://otlp.last9.io:443", "otlp.last9.io:443", true},
		{"path dropped", "https://otlp.last9.io/v1/traces", "otlp.last9.io", true},
		{"surrounding whitespace", "  localhost:4317  ", "localhost:4317", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, secure := NormalizeEndpoint(tt.input)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, ParseHeaders(""))
		assert.Nil(t, ParseHeaders("   "))
	})

	t.Run("single pair", func(t *testing.T) {
		headers := ParseHeaders("Authorization=Basic dXNlcjpwYXNz")
		assert.Equal(t, map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, headers)
	})

	t.Run("multiple pairs with whitespace", func(t *testing.T) {
		headers := ParseHeaders("a=1, b=2 ,c=3")
		assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, headers)
	})

	t.Run("url encoded value", func(t *testing.T) {
		headers := ParseHeaders("Authorization=Basic%20dG9rZW4%3D")
		assert.Equal(t, "Basic dG9rZW4=", headers["Authorization"])
	})

	t.Run("entries without separator skipped", func(t *testing.T) {
		headers := ParseHeaders("broken,valid=1")
		assert.Equal(t, map[string]string{"valid": "1"}, headers)
	})

	t.Run("all entries invalid yields nil", func(t *testing.T) {
		assert.Nil(t, ParseHeaders("broken,=empty-key"))
	})
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name     string
		sampler  string
		arg      string
		expected string
	}{
		{"always on", "always_on", "", sdktrace.AlwaysSample().Description()},
		{"always off", "always_off", "", sdktrace.NeverSample().Description()},
		{"ratio", "traceidratio", "0.25", sdktrace.TraceIDRatioBased(0.25).Description()},
		{"ratio out of range falls back", "traceidratio", "7", sdktrace.TraceIDRatioBased(1.0).Description()},
		{"ratio unparsable falls back", "traceidratio", "abc", sdktrace.TraceIDRatioBased(1.0).Description()},
		{"parent based ratio", "parentbased_traceidratio", "0.1", sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1)).Description()},
		{"default when empty", "", "", sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{"default when unknown", "bogus", "", sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{"case insensitive", "ALWAYS_ON", "", sdktrace.AlwaysSample().Description()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewSampler(tt.sampler, tt.arg).Description())
		})
	}
}
