package agent

import (
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/hlavac/versionone-go/internal/conversation"
)

func TestComposePrompt_MessageCountIsHistoryPlusOne(t *testing.T) {
	for _, h := range []int{0, 1, 4, 9} {
		history := make([]conversation.Turn, 0, h)
		for i := 0; i < h; i++ {
			speaker := conversation.SpeakerUser
			if i%2 == 1 {
				speaker = conversation.SpeakerAgent
			}
			history = append(history, conversation.Turn{Speaker: speaker, Text: fmt.Sprintf("turn %d", i)})
		}
		messages := ComposePrompt(history, "latest", "ctx")
		require.Len(t, messages, h+1, "history length %d", h)
	}
}

func TestComposePrompt_RoleMappingPreservesOrder(t *testing.T) {
	history := []conversation.Turn{
		{Speaker: conversation.SpeakerUser, Text: "first question"},
		{Speaker: conversation.SpeakerAgent, Text: "first answer"},
	}
	messages := ComposePrompt(history, "second question", "")

	require.Len(t, messages, 3)
	require.Equal(t, openai.ChatMessageRoleUser, messages[0].Role)
	require.Equal(t, "first question", messages[0].Content)
	require.Equal(t, openai.ChatMessageRoleAssistant, messages[1].Role)
	require.Equal(t, "first answer", messages[1].Content)
}

func TestComposePrompt_FinalMessageIsUserRoleWithContext(t *testing.T) {
	history := []conversation.Turn{
		{Speaker: conversation.SpeakerAgent, Text: "earlier answer"},
	}
	messages := ComposePrompt(history, "what now?", "some retrieved context")

	final := messages[len(messages)-1]
	require.Equal(t, openai.ChatMessageRoleUser, final.Role)
	require.Contains(t, final.Content, "what now?")
	require.Contains(t, final.Content, "some retrieved context")
	require.Contains(t, final.Content, "long_answer")
	require.Contains(t, final.Content, "media_urls")
	require.Contains(t, final.Content, "ONLY valid JSON")
}
