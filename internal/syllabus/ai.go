package syllabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/llm"
)

// Reasons an AI extraction can fail.
const (
	ReasonNoCredential  = "no_credential"
	ReasonCallFailed    = "call_failed"
	ReasonMalformedJSON = "malformed_json"
	ReasonMissingKeys   = "missing_keys"
)

// ErrNoCredential is wrapped by extractions attempted without a model client.
var ErrNoCredential = errors.New("no language model credential configured")

// ExtractionError is the typed failure of AIExtractor. The orchestrator
// falls back on any of them.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("ai extraction failed (%s): %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// requiredKeys must all be present in a model reply, even if set to Unknown.
var requiredKeys = []string{
	"year", "semester", "class_name", "class_number",
	"instructor", "university", "main_topic", "reading_materials",
}

// AIExtractor asks a language model for the metadata record. A nil client
// is a valid configuration; every call then fails with ReasonNoCredential.
type AIExtractor struct {
	client  llm.Client
	timeout time.Duration
}

// NewAIExtractor bounds each model call by timeout; zero means the caller's
// context alone decides.
func NewAIExtractor(client llm.Client, timeout time.Duration) *AIExtractor {
	return &AIExtractor{client: client, timeout: timeout}
}

func (a *AIExtractor) Name() string { return "ai" }

func (a *AIExtractor) Extract(ctx context.Context, text string) (Metadata, error) {
	if a == nil || a.client == nil {
		return Metadata{}, &ExtractionError{Reason: ReasonNoCredential, Err: ErrNoCredential}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	reply, err := a.client.Complete(ctx, buildRequest(text))
	if err != nil {
		return Metadata{}, &ExtractionError{Reason: ReasonCallFailed, Err: err}
	}

	return parseReply(reply)
}

// parseReply accepts a JSON object, optionally inside a ```json fence.
// Anything else is a failure; there is no partial recovery.
func parseReply(reply string) (Metadata, error) {
	body := []byte(stripCodeFence(reply))

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return Metadata{}, &ExtractionError{Reason: ReasonMalformedJSON, Err: eris.Wrap(err, "decode reply")}
	}

	var missing []string
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Metadata{}, &ExtractionError{
			Reason: ReasonMissingKeys,
			Err:    eris.Errorf("reply lacks %s", strings.Join(missing, ", ")),
		}
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return Metadata{}, &ExtractionError{Reason: ReasonMalformedJSON, Err: eris.Wrap(err, "decode metadata")}
	}
	return md.Normalize(), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = strings.TrimPrefix(rest, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
