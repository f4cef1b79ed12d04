package conversation

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is one message in a conversation, tagged by speaker. Agent turns
// hold only the finalized short answer; URLs are never stored, so they
// never round-trip back into prompts.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}
