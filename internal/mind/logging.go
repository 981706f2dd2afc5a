package mind

import (
	"github.com/rs/zerolog"

	"github.com/keshon/autoresponder/internal/ai"
)

// logRequest logs the prompt before it is dispatched. Full text is only
// emitted at trace level.
func logRequest(log zerolog.Logger, action string, req ai.Request) {
	log.Debug().
		Str("action", action).
		Int("messages", len(req.Messages)).
		Int("system_len", len(req.System)).
		Float64("temperature", req.Temperature).
		Int("max_tokens", req.MaxTokens).
		Msg("dispatching")

	if log.GetLevel() > zerolog.TraceLevel {
		return
	}
	log.Trace().Str("system", TrimToChars(req.System, 500)).Msg("system prompt")
	for i, m := range req.Messages {
		log.Trace().Int("i", i).Str("role", m.Role).Str("content", TrimToChars(m.Content, 200)).Msg("prompt message")
	}
}

func preview(s string) string {
	return TrimToChars(s, 150)
}
