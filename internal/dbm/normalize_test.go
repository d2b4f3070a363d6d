package dbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "string literal",
			query: "SELECT * FROM users WHERE email = 'a@b.com'",
			want:  "SELECT * FROM users WHERE email = '?'",
		},
		{
			name:  "numeric literal",
			query: "SELECT * FROM orders WHERE id = 42 AND total_cents > 1000",
			want:  "SELECT * FROM orders WHERE id = ? AND total_cents > ?",
		},
		{
			name:  "in list",
			query: "SELECT id FROM users WHERE id IN (1, 2, 3)",
			want:  "SELECT id FROM users WHERE id IN (?)",
		},
		{
			name:  "in list case insensitive",
			query: "select id from users where id in ('a', 'b')",
			want:  "select id from users where id IN (?)",
		},
		{
			name:  "comments stripped",
			query: "SELECT 1 /* probe */ -- trailing\nFROM t",
			want:  "SELECT ? FROM t",
		},
		{
			name:  "whitespace collapsed",
			query: "  SELECT\n\t*   FROM users  ",
			want:  "SELECT * FROM users",
		},
		{
			name:  "identifiers with digits kept",
			query: "SELECT col1 FROM t2",
			want:  "SELECT col1 FROM t2",
		},
		{
			name:  "empty",
			query: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.query))
		})
	}
}

func TestQuerySignature(t *testing.T) {
	// queries differing only in literals share a signature
	a := QuerySignature("SELECT * FROM users WHERE id = 1")
	b := QuerySignature("SELECT * FROM users WHERE id = 99999")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	// structurally different queries do not
	c := QuerySignature("SELECT * FROM orders WHERE id = 1")
	assert.NotEqual(t, a, c)
}
