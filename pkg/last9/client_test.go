package last9

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/last9/otelkit/pkg/errors"
)

func pageResponse(n int) string {
	records := make([]LogRecord, n)
	for i := range records {
		records[i] = LogRecord{
			Stream: map[string]string{"service": "example"},
			Values: [][]string{{"1700000000000000000", fmt.Sprintf("line %d", i)}},
		}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{"result": records},
	})
	return string(body)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", "token")
	assert.Error(t, err)

	_, err = NewClient("https://api.last9.io/logs", "")
	assert.Error(t, err)

	c, err := NewClient("https://api.last9.io/logs", "token")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestQueryLogsPagination(t *testing.T) {
	var offsets []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic secret", r.Header.Get("Authorization"))
		assert.Equal(t, `{service=~"example.*"}`, r.URL.Query().Get("query"))
		assert.Equal(t, "physical_index:Default", r.URL.Query().Get("index"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, offset)

		// two full pages then a short one
		switch offset {
		case 0, 2:
			fmt.Fprint(w, pageResponse(2))
		default:
			fmt.Fprint(w, pageResponse(1))
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	records, err := c.QueryLogs(context.Background(), QueryParams{
		Query: `{service=~"example.*"}`,
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Equal(t, []int{0, 2, 4}, offsets)
}

func TestQueryLogsStopsOnEmptyFirstPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageResponse(0))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	records, err := c.QueryLogs(context.Background(), QueryParams{Query: "{}"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueryLogsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "wrong")
	require.NoError(t, err)

	_, err = c.QueryLogs(context.Background(), QueryParams{Query: "{}"})
	assert.True(t, errors.Is(err, pkgerrors.QueryAPIUnauthorized), "got %v", err)
}

func TestQueryLogsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such index", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	_, err = c.QueryLogs(context.Background(), QueryParams{Query: "{}"})
	assert.True(t, errors.Is(err, pkgerrors.QueryAPIRequestFailed), "got %v", err)
	assert.ErrorContains(t, err, "404")
}

func TestQueryLogsRequiresQuery(t *testing.T) {
	c, err := NewClient("https://api.last9.io/logs", "token")
	require.NoError(t, err)

	_, err = c.QueryLogs(context.Background(), QueryParams{})
	assert.Error(t, err)
}

func TestQueryLogsDefaultsWindow(t *testing.T) {
	var start, end int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ = strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
		end, _ = strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
		fmt.Fprint(w, pageResponse(0))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret")
	require.NoError(t, err)

	_, err = c.QueryLogs(context.Background(), QueryParams{Query: "{}"})
	require.NoError(t, err)

	assert.Equal(t, defaultQueryWindow.Nanoseconds(), end-start)
	assert.Greater(t, end, int64(0))
}
