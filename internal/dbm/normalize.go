package dbm

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Normalization collapses literals so that structurally identical queries
// share one signature, the same grouping Datadog-style DBM applies.
var (
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe   = regexp.MustCompile(`(?m)--.*$`)
	stringLiteralRe = regexp.MustCompile(`'[^']*'`)
	numberLiteralRe = regexp.MustCompile(`\b\d+\b`)
	inListRe        = regexp.MustCompile(`(?i)\bIN\s*\([^)]+\)`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// NormalizeQuery replaces literals with placeholders and collapses
// whitespace.
func NormalizeQuery(query string) string {
	if query == "" {
		return ""
	}

	query = blockCommentRe.ReplaceAllString(query, "")
	query = lineCommentRe.ReplaceAllString(query, "")
	query = stringLiteralRe.ReplaceAllString(query, "'?'")
	query = numberLiteralRe.ReplaceAllString(query, "?")
	query = inListRe.ReplaceAllString(query, "IN (?)")
	query = whitespaceRe.ReplaceAllString(query, " ")

	return strings.TrimSpace(query)
}

// QuerySignature is the first 16 hex characters of the SHA-256 of the
// normalized query text.
func QuerySignature(query string) string {
	sum := sha256.Sum256([]byte(NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])[:16]
}
