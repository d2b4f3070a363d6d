package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"password masked",
			`UPDATE users SET password = 'hunter2' WHERE id = 1`,
			`UPDATE users SET password = '***' WHERE id = 1`,
		},
		{
			"token masked case insensitive",
			`UPDATE sessions SET TOKEN='abc123'`,
			`UPDATE sessions SET TOKEN='***'`,
		},
		{
			"secret masked",
			`INSERT INTO creds (secret) VALUES (''), (1) ON CONFLICT DO UPDATE SET secret = 'xyz'`,
			`INSERT INTO creds (secret) VALUES (''), (1) ON CONFLICT DO UPDATE SET secret = '***'`,
		},
		{
			"plain statement untouched",
			`SELECT id, name FROM users WHERE email = $1`,
			`SELECT id, name FROM users WHERE email = $1`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeSQL(tt.input))
		})
	}
}

func TestNewTracingPluginDefaults(t *testing.T) {
	p := NewTracingPlugin(PluginConfig{})
	assert.Equal(t, "otelkit", p.config.ServiceName)
	assert.Equal(t, 500, p.config.MaxSQLLength)
	assert.Equal(t, "otel_tracing", p.Name())
}
