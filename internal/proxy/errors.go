package proxy

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	msgCreditsExhausted = "OpenRouter credits exhausted. Top up at https://openrouter.ai/settings/credits or use another model."
	msgRateLimited      = "Model is rate limited. Try again in a few minutes or use another model."
)

// StatusError is returned when the upstream answers with a non-2xx status.
// Body holds the raw response text for diagnostics.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Message returns a user-facing description of the failure. Payment and
// rate-limit codes in the upstream error envelope get fixed explanations;
// otherwise the upstream message is used, or fallback when there is none.
func (e *StatusError) Message(fallback string) string {
	var env errorEnvelope
	if err := json.Unmarshal([]byte(e.Body), &env); err != nil {
		return fallback
	}

	switch strings.Trim(string(env.Error.Code), `"`) {
	case "402":
		return msgCreditsExhausted
	case "429":
		return msgRateLimited
	}

	if env.Error.Message != "" {
		return env.Error.Message
	}
	return fallback
}
