package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last9/otelkit/pkg/logger"
)

func TestRunQueryLogsPrintsRecords(t *testing.T) {
	logger.Init()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic secret", r.Header.Get("Authorization"))
		assert.Equal(t, `{service="demo"}`, r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"data":{"result":[{"stream":{"service":"demo"},"values":[["1700000000000000000","hello"]]}]}}`)
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := runQueryLogs(context.Background(), srv.URL, "secret", `{service="demo"}`, time.Minute, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), `"hello"`)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"), "one JSON record per line")
}

func TestRunQueryLogsRequiresCredentials(t *testing.T) {
	logger.Init()

	err := runQueryLogs(context.Background(), "", "", "{}", time.Minute, &bytes.Buffer{})
	assert.Error(t, err)
}
