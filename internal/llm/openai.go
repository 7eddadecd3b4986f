package llm

import (
	"context"
	"errors"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message used by the conversation engine and the
// judge.  Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// CompletionRequest describes a single chat-completion call.  JSONMode asks
// the backend to emit a bare JSON object (used by the judge).
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Client defines the collaborator calls required by the engine and judge.
// Synthesize and Transcribe are best-effort audio channels; a failed
// Synthesize never aborts a turn.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error)
}

// CallError wraps any collaborator failure (network, auth, quota, timeout)
// into the single local outcome the rest of the system handles.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string { return "ai call failed: " + e.Op + ": " + e.Err.Error() }
func (e *CallError) Unwrap() error { return e.Err }

// OpenAIClient calls the OpenAI API for chat, speech synthesis and
// transcription.  API credentials and model names are loaded from
// environment variables.
type OpenAIClient struct {
	client    *openai.Client
	chatModel string
	ttsModel  openai.SpeechModel
	sttModel  string
}

// NewOpenAIClient constructs an OpenAI-backed client.  It reads the API key
// and model names from the environment and falls back to sensible defaults.
func NewOpenAIClient() *OpenAIClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	c := openai.NewClient(apiKey)

	chatModel := os.Getenv("OPENAI_MODEL_CHAT")
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	ttsModel := os.Getenv("OPENAI_MODEL_TTS")
	if ttsModel == "" {
		ttsModel = string(openai.TTSModel1)
	}
	sttModel := os.Getenv("OPENAI_MODEL_STT")
	if sttModel == "" {
		sttModel = openai.Whisper1
	}

	return &OpenAIClient{
		client:    c,
		chatModel: chatModel,
		ttsModel:  openai.SpeechModel(ttsModel),
		sttModel:  sttModel,
	}
}

// Complete sends the message history to the chat completion API and returns
// the assistant's response text.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.client == nil {
		return "", &CallError{Op: "chat", Err: errors.New("openai client not initialized")}
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	oaReq := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    oaMsgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		oaReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		return "", &CallError{Op: "chat", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &CallError{Op: "chat", Err: errors.New("empty completion response")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize converts text to an audio clip using the speech endpoint.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          c.ttsModel,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, &CallError{Op: "tts", Err: err}
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, &CallError{Op: "tts", Err: err}
	}
	return data, nil
}

// Transcribe converts recorded audio to text using the transcription
// endpoint.  The filename carries the container format hint (e.g. "rec.wav").
func (c *OpenAIClient) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.sttModel,
		Reader:   audio,
		FilePath: filename,
		Language: language,
	})
	if err != nil {
		return "", &CallError{Op: "stt", Err: err}
	}
	return resp.Text, nil
}
