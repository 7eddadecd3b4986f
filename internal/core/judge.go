package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pharmaflow-tutor/internal/llm"
	"pharmaflow-tutor/internal/scenario"
	"pharmaflow-tutor/pkg"
)

const (
	judgeTemperature = 0.15
	judgeMaxTokens   = 1024
)

// Judge scores a completed transcript against the scenario's sales
// objective using a strict-JSON model call.
type Judge struct {
	LLM llm.Client
}

// NewJudge constructs a Judge over the given LLM client.
func NewJudge(client llm.Client) *Judge {
	return &Judge{LLM: client}
}

// Evaluate runs the judge over a snapshot of the turn history.  It either
// returns a fully populated verdict, with sub-scores clamped to [1,10] and
// total to [0,100], or an error; never a partial verdict.  On a parse
// failure it retries exactly once with a stricter prompt.
func (j *Judge) Evaluate(ctx context.Context, turns []pkg.Turn, sc scenario.Scenario, twist string) (*pkg.JudgeVerdict, error) {
	if len(turns) == 0 {
		return nil, ErrEmptyTranscript
	}

	prompt := j.buildPrompt(sc, twist, turns)
	verdict, err := j.call(ctx, prompt)

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		verdict, err = j.call(ctx, judgeRetryPrefix+prompt)
	}
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

func (j *Judge) call(ctx context.Context, prompt string) (*pkg.JudgeVerdict, error) {
	raw, err := j.LLM.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: judgeTemperature,
		MaxTokens:   judgeMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	return parseVerdict(raw)
}

func (j *Judge) buildPrompt(sc scenario.Scenario, twist string, turns []pkg.Turn) string {
	twistLine := ""
	if twist != "" && twist != pkg.NoTwist {
		twistLine = "ACTIVE COMPLICATION: " + twist + "\n"
	}
	return fmt.Sprintf(judgePrompt, sc.Title, sc.Goal, twistLine, FormatTranscript(turns))
}

var verdictNumberFields = []string{
	"score_empathy", "score_technique", "score_closing",
	"score_listening", "score_objections", "total", "revenue",
}

var verdictTextFields = []string{
	"feedback_main", "mistake", "correction", "best_moment",
}

// parseVerdict extracts the JSON object from the raw model output and
// validates the full field set before building the verdict.  Numeric fields
// are accepted as any JSON number; models occasionally score with decimals.
func parseVerdict(raw string) (*pkg.JudgeVerdict, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	nums := make(map[string]float64, len(verdictNumberFields))
	for _, key := range verdictNumberFields {
		n, ok := fields[key].(float64)
		if !ok {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing or non-numeric field %q", key)}
		}
		nums[key] = n
	}
	texts := make(map[string]string, len(verdictTextFields))
	for _, key := range verdictTextFields {
		s, ok := fields[key].(string)
		if !ok {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing or non-string field %q", key)}
		}
		texts[key] = s
	}

	v := pkg.JudgeVerdict{
		Empathy:    int(nums["score_empathy"]),
		Technique:  int(nums["score_technique"]),
		Closing:    int(nums["score_closing"]),
		Listening:  int(nums["score_listening"]),
		Objections: int(nums["score_objections"]),
		Total:      int(nums["total"]),
		Revenue:    nums["revenue"],
		Feedback:   texts["feedback_main"],
		Mistake:    texts["mistake"],
		Correction: texts["correction"],
		BestMoment: texts["best_moment"],
	}

	v.Empathy = clamp(v.Empathy, 1, 10)
	v.Technique = clamp(v.Technique, 1, 10)
	v.Closing = clamp(v.Closing, 1, 10)
	v.Listening = clamp(v.Listening, 1, 10)
	v.Objections = clamp(v.Objections, 1, 10)
	v.Total = clamp(v.Total, 0, 100)
	return &v, nil
}

// extractJSON pulls the JSON object out of the raw text.  Some backends wrap
// JSON in triple-backtick fences or prose; the fallback takes the substring
// between the first '{' and the last '}'.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("no json object found")
	}
	return s[start : end+1], nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
