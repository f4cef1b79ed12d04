package agent

import (
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/hlavac/versionone-go/internal/conversation"
)

// promptTemplate frames the persona and pins the model to a strict JSON
// output schema. The latest user message and the retrieved context are
// embedded together so the model answers the question with grounding.
const promptTemplate = `
You are Version One, a virtual representation of Michal Hlavac.
You are talking to the user as Michal would, in first person on Michal's behalf.

User question:
%s

Relevant context:
%s

Generate a STRICT JSON object with the keys "long_answer", "short_answer", and "media_urls". Example:
{
  "long_answer": "...",
  "short_answer": "...",
  "media_urls": ["...", "..."]
}

Where:
- long_answer is a very short response to the user, using the context if relevant
- short_answer is a concise summary
- media_urls is a list of one or more URLs IF relevant, otherwise an empty list.

If any URLs in the context seem relevant, include them in "media_urls".
Output ONLY valid JSON, with no extra commentary.
`

// ComposePrompt turns the conversation so far, the latest user message,
// and the retrieved context into the message sequence sent to the model.
// Prior turns map one-to-one onto role-tagged messages; the latest user
// message always arrives as the final user-role message so the model
// treats it as the thing to respond to. The result always has exactly
// len(history)+1 messages.
func ComposePrompt(history []conversation.Turn, userText, contextStr string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Speaker == conversation.SpeakerAgent {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf(promptTemplate, userText, contextStr),
	})
	return messages
}
