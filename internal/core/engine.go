package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"pharmaflow-tutor/internal/llm"
	"pharmaflow-tutor/internal/scenario"
	"pharmaflow-tutor/pkg"
)

const (
	chatTemperature = 0.7
	chatMaxTokens   = 256
	hintMaxTokens   = 128
)

// TwistPicker draws one twist from a scenario's twist list.  It is a field
// so tests can inject a deterministic draw.
type TwistPicker func(twists []string) string

// UniformTwist is the production picker: a uniform draw with replacement.
func UniformTwist(twists []string) string {
	return twists[rand.IntN(len(twists))]
}

// Engine orchestrates the role-play between the trainee and the simulated
// patient.  Session state lives outside the engine; every call takes the
// session value it should act on.
type Engine struct {
	LLM       llm.Client
	Catalog   *scenario.Catalog
	pickTwist TwistPicker
}

// Option configures an Engine.
type Option func(*Engine)

// WithTwistPicker overrides the twist draw, used for deterministic tests.
func WithTwistPicker(p TwistPicker) Option {
	return func(e *Engine) { e.pickTwist = p }
}

// NewEngine constructs an Engine over the given LLM client and catalog.
func NewEngine(client llm.Client, catalog *scenario.Catalog, opts ...Option) *Engine {
	e := &Engine{LLM: client, Catalog: catalog, pickTwist: UniformTwist}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitResult is the outcome of one trainee turn.
type SubmitResult struct {
	Reply string
	Audio []byte // nil when synthesis failed or was skipped
}

// NewSession starts a fresh session for a scenario, drawing its twist.
func (e *Engine) NewSession(username, scenarioTitle string, hardMode bool) (*pkg.Session, error) {
	sc, ok := e.Catalog.Get(scenarioTitle)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, scenarioTitle)
	}
	now := time.Now()
	return &pkg.Session{
		ID:        uuid.NewString(),
		Username:  username,
		Scenario:  sc.Title,
		Twist:     e.pickTwist(sc.Twists),
		HardMode:  hardMode,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Reset clears the turn history and redraws the twist.  The session keeps
// its identity, scenario and hard-mode setting.
func (e *Engine) Reset(s *pkg.Session) error {
	sc, ok := e.Catalog.Get(s.Scenario)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScenario, s.Scenario)
	}
	s.Turns = nil
	s.Twist = e.pickTwist(sc.Twists)
	return nil
}

// SubmitTurn appends the trainee's turn, asks the model for the patient's
// reply and appends it.  On a collaborator failure the turn still completes:
// a visible error placeholder is recorded as the patient reply and the error
// is returned alongside, so history always grows by exactly two turns.
// Speech synthesis is best-effort; its failure never aborts the turn.
func (e *Engine) SubmitTurn(ctx context.Context, s *pkg.Session, text string) (*SubmitResult, error) {
	sc, ok := e.Catalog.Get(s.Scenario)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, s.Scenario)
	}

	s.Turns = append(s.Turns, pkg.Turn{Role: pkg.RoleTrainee, Text: text})

	messages := []llm.Message{{Role: "system", Content: e.systemPrompt(sc, s)}}
	for _, t := range s.Turns {
		role := "user"
		if t.Role == pkg.RolePatient {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Text})
	}

	reply, err := e.LLM.Complete(ctx, llm.CompletionRequest{
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		reply = aiErrorPrefix + err.Error()
		s.Turns = append(s.Turns, pkg.Turn{Role: pkg.RolePatient, Text: reply})
		return &SubmitResult{Reply: reply}, err
	}
	s.Turns = append(s.Turns, pkg.Turn{Role: pkg.RolePatient, Text: reply})

	res := &SubmitResult{Reply: reply}
	if audio, err := e.LLM.Synthesize(ctx, reply, sc.Voice); err != nil {
		slog.Warn("speech synthesis failed", "session", s.ID, "error", err)
	} else {
		res.Audio = audio
	}
	return res, nil
}

// Hint asks the tutor for a short suggested phrase the trainee could say
// next.  The exchange is out-of-band and is never added to the history.
func (e *Engine) Hint(ctx context.Context, s *pkg.Session) (string, error) {
	sc, ok := e.Catalog.Get(s.Scenario)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownScenario, s.Scenario)
	}
	return e.LLM.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(hintSystem, sc.Goal)},
			{Role: "user", Content: "Chat so far:\n" + FormatTranscript(s.Turns)},
		},
		Temperature: chatTemperature,
		MaxTokens:   hintMaxTokens,
	})
}

func (e *Engine) systemPrompt(sc scenario.Scenario, s *pkg.Session) string {
	prompt := sc.SystemPrompt
	if s.HardMode {
		prompt += HardModeSuffix
	}
	if s.Twist != pkg.NoTwist {
		prompt += fmt.Sprintf(twistClause, s.Twist)
	}
	return prompt
}

// FormatTranscript serializes turns as "ROLE: text" lines for the hint and
// judge prompts.
func FormatTranscript(turns []pkg.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, strings.ToUpper(string(t.Role))+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}
