package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrServiceUnavailable covers transport failures and error
	// statuses from the reasoning service after retries are exhausted.
	ErrServiceUnavailable = errors.New("reasoning service unavailable")
	// ErrMalformedResponse covers everything the service returns that
	// does not validate into exactly 3 well-typed rule evaluations.
	// Malformed output is never silently replaced with empty results.
	ErrMalformedResponse = errors.New("malformed reasoning service response")
)

// RuleEvaluation is one rule's verdict as returned by the reasoning
// service. Evidence may be an empty string when the document offers
// no supporting quote.
type RuleEvaluation struct {
	Rule       string `json:"rule"`
	Status     string `json:"status"`
	Evidence   string `json:"evidence"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
}

// AuditEngine invokes the external reasoning service and validates
// its response into a fixed result schema. Transient transport
// failures and 5xx statuses are retried a bounded number of times
// with doubling backoff; 4xx statuses and validation failures are
// not retried.
type AuditEngine struct {
	URL         string
	APIKey      string
	Model       string
	Client      *http.Client
	MaxAttempts int
	RetryBase   time.Duration
}

func NewAuditEngine(url, apiKey, model string) *AuditEngine {
	return &AuditEngine{
		URL:         url,
		APIKey:      apiKey,
		Model:       model,
		Client:      &http.Client{Timeout: 60 * time.Second},
		MaxAttempts: 3,
		RetryBase:   500 * time.Millisecond,
	}
}

// chatRequest and chatResponse mirror the chat-completions wire
// format of the reasoning service.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Evaluate sends the prompt to the reasoning service and returns the
// validated list of exactly 3 rule evaluations.
func (a *AuditEngine) Evaluate(ctx context.Context, prompt string) ([]RuleEvaluation, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    a.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	body, err := a.invoke(ctx, payload)
	if err != nil {
		return nil, err
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	return parseEvaluations(cr.Choices[0].Message.Content)
}

// invoke posts the payload, retrying on transport failures and 5xx
// statuses with doubling backoff. A non-retryable error status maps
// to ErrServiceUnavailable immediately.
func (a *AuditEngine) invoke(ctx context.Context, payload []byte) ([]byte, error) {
	backoff := a.RetryBase
	var lastErr error
	for attempt := 0; attempt < a.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.Client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, lastErr)
}

// parseEvaluations strips any code-fence wrapping the service added
// despite instructions, parses the JSON array and validates shape:
// exactly 3 elements, five required fields each with the right
// primitive type, status normalized to PASS/FAIL, confidence an
// integer in [0,100].
func parseEvaluations(content string) ([]RuleEvaluation, error) {
	cleaned := stripFences(content)

	var raw []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("%w: expected 3 evaluations, got %d", ErrMalformedResponse, len(raw))
	}

	out := make([]RuleEvaluation, 0, len(raw))
	for i, m := range raw {
		ev, err := validateEvaluation(m)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func validateEvaluation(m map[string]any) (RuleEvaluation, error) {
	rule, ok := m["rule"].(string)
	if !ok {
		return RuleEvaluation{}, errors.New("rule must be a string")
	}
	status, ok := m["status"].(string)
	if !ok {
		return RuleEvaluation{}, errors.New("status must be a string")
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "PASS" && status != "FAIL" {
		return RuleEvaluation{}, fmt.Errorf("status must be PASS or FAIL, got %q", status)
	}
	evidence, ok := m["evidence"].(string) // empty string allowed
	if !ok {
		return RuleEvaluation{}, errors.New("evidence must be a string")
	}
	reasoning, ok := m["reasoning"].(string)
	if !ok {
		return RuleEvaluation{}, errors.New("reasoning must be a string")
	}
	conf, ok := m["confidence"].(float64)
	if !ok {
		return RuleEvaluation{}, errors.New("confidence must be a number")
	}
	if conf != math.Trunc(conf) || conf < 0 || conf > 100 {
		return RuleEvaluation{}, fmt.Errorf("confidence must be an integer in [0,100], got %v", conf)
	}

	return RuleEvaluation{
		Rule:       rule,
		Status:     status,
		Evidence:   evidence,
		Reasoning:  reasoning,
		Confidence: int(conf),
	}, nil
}

// stripFences removes markdown code-fence markers the service
// sometimes wraps its output in, mirroring the instruction it was
// given not to.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
