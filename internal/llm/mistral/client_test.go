package mistral

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxeeTig/creditstory/internal/common"
)

// completionServer replies to chat/completions with content as the single
// choice's message body and records the last request for inspection.
func completionServer(t *testing.T, content string) (*httptest.Server, *map[string]any) {
	t.Helper()
	lastRequest := map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastRequest))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &lastRequest
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		Model:   "mistral-large-latest",
		APIKey:  "test-key",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractFields(t *testing.T) {
	srv, lastRequest := completionServer(t, `{
		"bank_name": "Bank X",
		"deal_date": "18-05-2024",
		"loan_amount": "50000,00 RUB",
		"termination_date": "31-12-9999"
	}`)
	c := newTestClient(srv.URL)

	fields, raw, err := c.ExtractFields(context.Background(), "1. Bank X - Loan Agreement")
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, "Bank X", fields["bank_name"])
	assert.Equal(t, "31-12-9999", fields["termination_date"])

	msgs, ok := (*lastRequest)["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	user := msgs[2].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "1. Bank X - Loan Agreement", user["content"])
	assert.Equal(t, "mistral-large-latest", (*lastRequest)["model"])
}

func TestExtractFieldsUnwrapsListResponse(t *testing.T) {
	srv, _ := completionServer(t, `[{"bank_name": "Bank Y", "loan_status": "Closed"}]`)
	c := newTestClient(srv.URL)

	fields, _, err := c.ExtractFields(context.Background(), "2. Bank Y - Loan Agreement")
	require.NoError(t, err)
	assert.Equal(t, "Bank Y", fields["bank_name"])
	assert.Equal(t, "Closed", fields["loan_status"])
}

func TestExtractFieldsRejectsMalformedContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose instead of JSON", "The span describes a loan from Bank X."},
		{"schema violation", `{"bank_name": "Bank X", "card_usage": "often"}`},
		{"unknown field", `{"bank_name": "Bank X", "surprise": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := completionServer(t, tt.content)
			c := newTestClient(srv.URL)

			_, _, err := c.ExtractFields(context.Background(), "span text")
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrMalformedExtraction)
		})
	}
}

func TestExtractFieldsNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv.URL)

	_, _, err := c.ExtractFields(context.Background(), "span text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedExtraction)
}

func TestExtractFieldsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv.URL)

	_, _, err := c.ExtractFields(context.Background(), "span text")
	require.Error(t, err)
}
