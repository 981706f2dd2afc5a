package mind

import (
	"fmt"
	"strings"

	"github.com/keshon/autoresponder/internal/ai"
	"github.com/keshon/autoresponder/internal/convo"
	"github.com/keshon/autoresponder/internal/persona"
	"github.com/keshon/autoresponder/internal/transport"
)

// maxTurnChars bounds each transcript turn sent to the backend.
const maxTurnChars = 400

// TrimToChars truncates s to maxChars runes, preferring a word boundary.
func TrimToChars(s string, maxChars int) string {
	r := []rune(s)
	if maxChars <= 0 || len(r) <= maxChars {
		return s
	}
	out := string(r[:maxChars])
	if lastSpace := strings.LastIndex(out, " "); lastSpace > len(out)/2 {
		return strings.TrimSpace(out[:lastSpace])
	}
	return strings.TrimSpace(out)
}

// BuildSystemPrompt combines the persona prompt with the derived context
// signals. Group chats get addressing instructions.
func BuildSystemPrompt(prof persona.Profile, c convo.Context, env transport.Envelope) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(prof.SystemPrompt))
	b.WriteString("\n")
	if prof.Instructions != "" {
		b.WriteString(prof.Instructions)
		b.WriteString("\n")
	}

	if prof.Group {
		fmt.Fprintf(&b, "This is a group chat named %q. The latest message is from %s.\n", prof.GroupName, author(env))
		fmt.Fprintf(&b, "When replying to someone specific, tag them as @%s. Reply only as yourself.\n", author(env))
	} else {
		name := prof.DisplayName
		if name == "" {
			name = env.Sender
		}
		fmt.Fprintf(&b, "This conversation is with contact: %s.\n", name)
		if prof.Context != "" {
			b.WriteString(prof.Context)
			b.WriteString("\n")
		}
	}
	if prof.Emoji == persona.EmojiNone {
		b.WriteString("DO NOT use emojis.\n")
	}

	if c.Repetition != "" {
		fmt.Fprintf(&b, "IMPORTANT: I notice I've been %s. Change approach and do not repeat this pattern.\n", c.Repetition)
	}

	b.WriteString("\n")
	topics := "general"
	if len(c.Topics) > 0 {
		topics = strings.Join(c.Topics, ", ")
	}
	fmt.Fprintf(&b, "Current conversation topics: %s\n", topics)
	fmt.Fprintf(&b, "Current sentiment: %s\n", c.Sentiment)
	fmt.Fprintf(&b, "Their language style: %s\n", c.LanguageStyle)
	fmt.Fprintf(&b, "Their latest message: %s\n", TrimToChars(env.Body, maxTurnChars))

	return b.String()
}

// BuildRequest turns a resolved profile and context into a backend request.
// The transcript becomes role-tagged messages ending with the current message.
func BuildRequest(prof persona.Profile, c convo.Context, env transport.Envelope) ai.Request {
	msgs := make([]ai.Message, 0, len(c.Turns)+1)
	for _, t := range c.Turns {
		role := ai.RoleUser
		content := t.Text
		if t.Role == convo.RoleSelf {
			role = ai.RoleAssistant
		} else if prof.Group && t.Author != "" {
			content = t.Author + ": " + content
		}
		msgs = append(msgs, ai.Message{Role: role, Content: TrimToChars(content, maxTurnChars)})
	}

	current := env.Body
	if prof.Group {
		current = author(env) + ": " + current
	}
	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: current})

	return ai.Request{
		System:      BuildSystemPrompt(prof, c, env),
		Messages:    msgs,
		Temperature: prof.Temperature,
		MaxTokens:   prof.MaxTokens,
	}
}

// toTurns converts fetched history, oldest first, into transcript turns. The
// trailing copy of the message being answered is dropped.
func toTurns(history []transport.Message, env transport.Envelope) []convo.Turn {
	if n := len(history); n > 0 {
		last := history[n-1]
		if !last.FromSelf && last.Body == env.Body {
			history = history[:n-1]
		}
	}
	turns := make([]convo.Turn, 0, len(history))
	for _, m := range history {
		role := convo.RoleThem
		if m.FromSelf {
			role = convo.RoleSelf
		}
		turns = append(turns, convo.Turn{Role: role, Author: m.Author, Text: m.Body})
	}
	return turns
}

func author(env transport.Envelope) string {
	if env.AuthorName != "" {
		return env.AuthorName
	}
	return env.Sender
}
