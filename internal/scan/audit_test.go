package scan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validEvaluations = `[
  {"rule": "Must show a date", "status": "PASS", "evidence": "Effective Date: 2024-01-01", "reasoning": "A date is present.", "confidence": 95},
  {"rule": "Must name both parties", "status": "FAIL", "evidence": "", "reasoning": "Only one party is named.", "confidence": 80},
  {"rule": "Must include a termination clause", "status": "PASS", "evidence": "Either party may terminate", "reasoning": "Clause 9 covers termination.", "confidence": 88}
]`

// fakeService returns an httptest server that answers the chat
// completions call with the given content payload.
func fakeService(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": content}},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		}
	}))
}

func newTestEngine(url string) *AuditEngine {
	e := NewAuditEngine(url, "test-key", "test-model")
	e.RetryBase = time.Millisecond
	return e
}

func TestEvaluate_ValidResponse(t *testing.T) {
	srv := fakeService(t, http.StatusOK, validEvaluations)
	defer srv.Close()

	results, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "PASS", results[0].Status)
	assert.Equal(t, "Effective Date: 2024-01-01", results[0].Evidence)
	assert.Equal(t, 95, results[0].Confidence)
	assert.Equal(t, "FAIL", results[1].Status)
	assert.Empty(t, results[1].Evidence, "empty evidence is allowed")
}

func TestEvaluate_StripsCodeFences(t *testing.T) {
	srv := fakeService(t, http.StatusOK, "```json\n"+validEvaluations+"\n```")
	defer srv.Close()

	results, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestEvaluate_NormalizesStatusCase(t *testing.T) {
	content := `[
	  {"rule": "r1", "status": "pass", "evidence": "e", "reasoning": "x", "confidence": 50},
	  {"rule": "r2", "status": " Fail ", "evidence": "e", "reasoning": "x", "confidence": 50},
	  {"rule": "r3", "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": 50}
	]`
	srv := fakeService(t, http.StatusOK, content)
	defer srv.Close()

	results, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "PASS", results[0].Status)
	assert.Equal(t, "FAIL", results[1].Status)
}

func TestEvaluate_NonJSONContent(t *testing.T) {
	srv := fakeService(t, http.StatusOK, "I'm sorry, I can't evaluate that document.")
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEvaluate_WrongElementCount(t *testing.T) {
	content := `[{"rule": "r1", "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": 50}]`
	srv := fakeService(t, http.StatusOK, content)
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestEvaluate_BadFieldTypes(t *testing.T) {
	cases := []struct {
		name    string
		element string
	}{
		{"confidence out of range", `{"rule": "r", "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": 150}`},
		{"confidence not integral", `{"rule": "r", "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": 87.5}`},
		{"confidence wrong type", `{"rule": "r", "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": "high"}`},
		{"unknown status", `{"rule": "r", "status": "MAYBE", "evidence": "e", "reasoning": "x", "confidence": 50}`},
		{"missing evidence", `{"rule": "r", "status": "PASS", "reasoning": "x", "confidence": 50}`},
		{"rule wrong type", `{"rule": 7, "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": 50}`},
	}
	ok := `{"rule": "r", "status": "PASS", "evidence": "e", "reasoning": "x", "confidence": 50}`

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := fakeService(t, http.StatusOK, "["+tc.element+","+ok+","+ok+"]")
			defer srv.Close()

			_, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestEvaluate_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := newTestEngine(srv.URL)
	_, err := engine.Evaluate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int32(engine.MaxAttempts), calls.Load())
}

func TestEvaluate_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": validEvaluations}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	results, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEvaluate_ClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEvaluate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestEvaluate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	_, err := newTestEngine(srv.URL).Evaluate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "[]", stripFences("```json\n[]\n```"))
	assert.Equal(t, "[]", stripFences("```\n[]\n```"))
	assert.Equal(t, "[]", stripFences("  []  "))
	assert.Equal(t, "[]", stripFences("[]"))
}
