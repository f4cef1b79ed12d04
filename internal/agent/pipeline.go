// Package agent implements the chat pipeline: retrieval, prompt
// assembly over rolling conversation history, model invocation, tolerant
// output parsing, and speech synthesis, with a defined degradation at
// every stage. A stage failure narrows the reply; it never aborts the
// request.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/hlavac/versionone-go/internal/config"
	"github.com/hlavac/versionone-go/internal/conversation"
	"github.com/hlavac/versionone-go/internal/llm"
	"github.com/hlavac/versionone-go/internal/logger"
	"github.com/hlavac/versionone-go/internal/retriever"
)

// FSM states, one per pipeline stage outcome.
type fsmState stateless.State

var (
	stateReceived       fsmState = "Received"
	stateContextFetched fsmState = "ContextFetched"
	stateContextFailed  fsmState = "ContextFailed"
	statePrompted       fsmState = "Prompted"
	stateAnswered       fsmState = "Answered"
	stateLLMFailed      fsmState = "LLMFailed"
	stateSynthesized    fsmState = "Synthesized"
	stateSynthSkipped   fsmState = "SynthSkipped"
	stateResponded      fsmState = "Responded"
)

// FSM triggers.
type fsmTrigger stateless.Trigger

var (
	triggerProcess        fsmTrigger = "Process"
	triggerContextOK      fsmTrigger = "ContextOK"
	triggerContextError   fsmTrigger = "ContextError"
	triggerPromptBuilt    fsmTrigger = "PromptBuilt"
	triggerLLMResponded   fsmTrigger = "LLMResponded"
	triggerLLMError       fsmTrigger = "LLMError"
	triggerSynthDone      fsmTrigger = "SynthDone"
	triggerSynthFailed    fsmTrigger = "SynthFailed"
	triggerReplyAssembled fsmTrigger = "ReplyAssembled"
)

// Degraded reply texts per failure stage.
const (
	emptyMessageReply    = "No message received."
	retrievalErrorReply  = "Error retrieving context."
	generationErrorReply = "Sorry, encountered an error generating the answer."
)

const llmCallTimeout = 90 * time.Second

// Retriever fetches grounding context for a user message.
type Retriever interface {
	Fetch(ctx context.Context, query string) ([]retriever.Match, error)
}

// Synthesizer turns answer text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ArtifactStore persists audio bytes and returns the artifact filename.
type ArtifactStore interface {
	Save(data []byte) (string, error)
}

// Reply is the assembled outcome of one pipeline run. AudioFilename is
// empty when synthesis was skipped or failed; the transport layer turns
// it into a fully qualified URL.
type Reply struct {
	Long          string
	Short         string
	AudioFilename string
	MediaURLs     []string
}

// Pipeline orchestrates one chat exchange per call. Collaborators are
// injected so tests can substitute them.
type Pipeline struct {
	store     *conversation.Store
	retriever Retriever
	llmClient llm.Client
	synth     Synthesizer
	audio     ArtifactStore
	cfg       config.LLMConfig
}

// NewPipeline creates a chat pipeline from its collaborators.
func NewPipeline(store *conversation.Store, r Retriever, llmClient llm.Client, synth Synthesizer, audio ArtifactStore, cfg config.LLMConfig) *Pipeline {
	return &Pipeline{
		store:     store,
		retriever: r,
		llmClient: llmClient,
		synth:     synth,
		audio:     audio,
		cfg:       cfg,
	}
}

// Process runs the full pipeline for one inbound message and always
// returns a conversational-shaped reply. Failures of retrieval or
// generation short-circuit to a degraded reply; a synthesis failure only
// leaves the audio filename empty.
func (p *Pipeline) Process(ctx context.Context, sessionID, message string) Reply {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{Long: emptyMessageReply}
	}

	p.store.AppendUser(sessionID, message)

	// Per-request pipeline data threaded through the state machine.
	type pipeData struct {
		contextStr string
		messages   []openai.ChatCompletionMessage
		rawOutput  string
		answer     Answer
		reply      Reply
	}
	data := &pipeData{}

	fsm := stateless.NewStateMachine(stateReceived)

	fsm.Configure(stateReceived).
		PermitReentry(triggerProcess).
		OnEntry(func(ctx context.Context, _ ...any) error {
			matches, err := p.retriever.Fetch(ctx, message)
			if err != nil {
				return fsm.FireCtx(ctx, triggerContextError)
			}
			if len(matches) == 0 {
				logger.L.Debug("no matches returned from vector store")
			}
			data.contextStr = retriever.BuildContext(matches)
			return fsm.FireCtx(ctx, triggerContextOK)
		}).
		Permit(triggerContextOK, stateContextFetched).
		Permit(triggerContextError, stateContextFailed)

	fsm.Configure(stateContextFetched).
		OnEntry(func(ctx context.Context, _ ...any) error {
			history := p.store.History(sessionID)
			// Drop the user turn appended above; it rides in the final
			// combined message instead.
			if n := len(history); n > 0 && history[n-1].Speaker == conversation.SpeakerUser {
				history = history[:n-1]
			}
			data.messages = ComposePrompt(history, message, data.contextStr)
			return fsm.FireCtx(ctx, triggerPromptBuilt)
		}).
		Permit(triggerPromptBuilt, statePrompted)

	fsm.Configure(stateContextFailed).
		OnEntry(func(ctx context.Context, _ ...any) error {
			data.reply = Reply{Long: retrievalErrorReply}
			return fsm.FireCtx(ctx, triggerReplyAssembled)
		}).
		Permit(triggerReplyAssembled, stateResponded)

	fsm.Configure(statePrompted).
		OnEntry(func(ctx context.Context, _ ...any) error {
			callCtx, cancel := context.WithTimeout(ctx, llmCallTimeout)
			defer cancel()
			resp, err := p.llmClient.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
				Model:       p.cfg.Model,
				Temperature: p.cfg.Temperature,
				Messages:    data.messages,
			})
			if err != nil || len(resp.Choices) == 0 {
				logger.L.Error("llm call failed", "error", err)
				return fsm.FireCtx(ctx, triggerLLMError)
			}
			data.rawOutput = resp.Choices[0].Message.Content
			return fsm.FireCtx(ctx, triggerLLMResponded)
		}).
		Permit(triggerLLMResponded, stateAnswered).
		Permit(triggerLLMError, stateLLMFailed)

	fsm.Configure(stateLLMFailed).
		OnEntry(func(ctx context.Context, _ ...any) error {
			data.reply = Reply{Long: generationErrorReply}
			return fsm.FireCtx(ctx, triggerReplyAssembled)
		}).
		Permit(triggerReplyAssembled, stateResponded)

	fsm.Configure(stateAnswered).
		OnEntry(func(ctx context.Context, _ ...any) error {
			answer, parsed := ParseAnswer(data.rawOutput)
			if !parsed {
				logger.L.Warn("using raw model output as answer")
			}
			data.answer = answer
			if len(answer.MediaURLs) > 0 {
				logger.L.Debug("model returned media urls", "urls", answer.MediaURLs)
			}
			p.store.AppendAgent(sessionID, answer.Short)

			audioData, err := p.synth.Synthesize(ctx, answer.Short)
			if err != nil {
				logger.L.Warn("speech synthesis unavailable; responding without audio", "error", err)
				return fsm.FireCtx(ctx, triggerSynthFailed)
			}
			filename, err := p.audio.Save(audioData)
			if err != nil {
				logger.L.Warn("failed to persist audio artifact; responding without audio", "error", err)
				return fsm.FireCtx(ctx, triggerSynthFailed)
			}
			data.reply = Reply{
				Long:          data.answer.Long,
				Short:         data.answer.Short,
				AudioFilename: filename,
				MediaURLs:     data.answer.MediaURLs,
			}
			return fsm.FireCtx(ctx, triggerSynthDone)
		}).
		Permit(triggerSynthDone, stateSynthesized).
		Permit(triggerSynthFailed, stateSynthSkipped)

	fsm.Configure(stateSynthesized).
		OnEntry(func(ctx context.Context, _ ...any) error {
			return fsm.FireCtx(ctx, triggerReplyAssembled)
		}).
		Permit(triggerReplyAssembled, stateResponded)

	fsm.Configure(stateSynthSkipped).
		OnEntry(func(ctx context.Context, _ ...any) error {
			data.reply = Reply{
				Long:      data.answer.Long,
				Short:     data.answer.Short,
				MediaURLs: data.answer.MediaURLs,
			}
			return fsm.FireCtx(ctx, triggerReplyAssembled)
		}).
		Permit(triggerReplyAssembled, stateResponded)

	if err := fsm.FireCtx(ctx, triggerProcess); err != nil {
		logger.L.Error("pipeline state machine error", "error", err)
		if data.reply.Long == "" {
			data.reply = Reply{Long: generationErrorReply}
		}
	}

	return data.reply
}
