package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pharmaflow-tutor/internal/llm"
	"pharmaflow-tutor/internal/scenario"
	"pharmaflow-tutor/pkg"
)

const validVerdictJSON = `{
	"score_empathy": 7,
	"score_technique": 6,
	"score_closing": 8,
	"score_listening": 7,
	"score_objections": 5,
	"total": 66,
	"revenue": 42.5,
	"feedback_main": "Solid rapport, weak close.",
	"mistake": "Never mentioned the collagen.",
	"correction": "Explain that collagen repairs the cartilage.",
	"best_moment": "Opening question about the pain."
}`

func kneePain(t *testing.T) scenario.Scenario {
	t.Helper()
	sc, ok := testCatalog(t).Get("Knee Pain")
	if !ok {
		t.Fatal("Knee Pain scenario missing from catalog")
	}
	return sc
}

func sampleTurns() []pkg.Turn {
	return []pkg.Turn{
		{Role: pkg.RoleTrainee, Text: "Here's an anti-inflammatory cream."},
		{Role: pkg.RolePatient, Text: "Is that all I need?"},
	}
}

func TestEvaluateParsesCleanJSON(t *testing.T) {
	stub := &stubLLM{replies: []string{validVerdictJSON}}
	j := NewJudge(stub)

	v, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	if err != nil {
		t.Fatal(err)
	}
	if v.Empathy != 7 || v.Total != 66 || v.Revenue != 42.5 {
		t.Errorf("unexpected verdict %+v", v)
	}
	if v.Feedback != "Solid rapport, weak close." {
		t.Errorf("unexpected feedback %q", v.Feedback)
	}
	if !stub.captured[0].JSONMode {
		t.Error("judge call must request JSON output mode")
	}

	prompt := stub.captured[0].Messages[0].Content
	if !strings.Contains(prompt, "Knee Pain") {
		t.Error("prompt missing scenario title")
	}
	if !strings.Contains(prompt, "anti-inflammatory cream + collagen") {
		t.Error("prompt missing sales objective")
	}
	if !strings.Contains(prompt, "TRAINEE: Here's an anti-inflammatory cream.") {
		t.Error("prompt missing transcript lines")
	}
	if strings.Contains(prompt, "ACTIVE COMPLICATION") {
		t.Error("no-twist evaluation must not mention a complication")
	}
}

func TestEvaluateIncludesTwist(t *testing.T) {
	const twist = "You are allergic to ibuprofen and had a bad reaction to a gel once."
	stub := &stubLLM{replies: []string{validVerdictJSON}}
	j := NewJudge(stub)

	if _, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), twist); err != nil {
		t.Fatal(err)
	}
	prompt := stub.captured[0].Messages[0].Content
	if !strings.Contains(prompt, "ACTIVE COMPLICATION: "+twist) {
		t.Errorf("prompt missing twist line: %q", prompt)
	}
}

func TestEvaluateStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validVerdictJSON + "\n```"
	stub := &stubLLM{replies: []string{fenced}}
	j := NewJudge(stub)

	v, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	if err != nil {
		t.Fatal(err)
	}
	if v.Total != 66 {
		t.Errorf("expected total 66, got %d", v.Total)
	}
}

func TestEvaluateExtractsBracesFromProse(t *testing.T) {
	wrapped := "Here is my evaluation:\n" + validVerdictJSON + "\nHope that helps!"
	stub := &stubLLM{replies: []string{wrapped}}
	j := NewJudge(stub)

	v, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	if err != nil {
		t.Fatal(err)
	}
	if v.Closing != 8 {
		t.Errorf("expected closing 8, got %d", v.Closing)
	}
}

func TestEvaluateClampsOutOfRangeScores(t *testing.T) {
	wild := `{
		"score_empathy": 15, "score_technique": 0, "score_closing": 8,
		"score_listening": 7, "score_objections": -3,
		"total": 140, "revenue": 10,
		"feedback_main": "f", "mistake": "m", "correction": "c", "best_moment": "b"
	}`
	stub := &stubLLM{replies: []string{wild}}
	j := NewJudge(stub)

	v, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	if err != nil {
		t.Fatal(err)
	}
	if v.Empathy != 10 || v.Technique != 1 || v.Objections != 1 {
		t.Errorf("sub-scores not clamped to [1,10]: %+v", v)
	}
	if v.Total != 100 {
		t.Errorf("total not clamped to [0,100]: %d", v.Total)
	}
}

func TestEvaluateRetriesOnceOnParseFailure(t *testing.T) {
	stub := &stubLLM{replies: []string{"I would rate this chat a solid 7/10.", validVerdictJSON}}
	j := NewJudge(stub)

	v, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	if err != nil {
		t.Fatal(err)
	}
	if v.Total != 66 {
		t.Errorf("expected total 66, got %d", v.Total)
	}
	if stub.calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", stub.calls)
	}
	retry := stub.captured[1].Messages[0].Content
	if !strings.Contains(retry, "not a valid JSON object") {
		t.Errorf("retry prompt must be stricter: %q", retry)
	}
}

func TestEvaluateFailsAfterSecondParseError(t *testing.T) {
	stub := &stubLLM{replies: []string{"nope", `{"total": 50}`}}
	j := NewJudge(stub)

	_, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if stub.calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", stub.calls)
	}
}

func TestEvaluateMissingFieldIsParseError(t *testing.T) {
	incomplete := `{"score_empathy": 7, "total": 66}`
	stub := &stubLLM{replies: []string{incomplete, incomplete}}
	j := NewJudge(stub)

	_, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestEvaluateDoesNotRetryCollaboratorFailure(t *testing.T) {
	callErr := &llm.CallError{Op: "chat", Err: errors.New("timeout")}
	stub := &stubLLM{errs: []error{callErr}}
	j := NewJudge(stub)

	_, err := j.Evaluate(context.Background(), sampleTurns(), kneePain(t), pkg.NoTwist)
	if err == nil {
		t.Fatal("expected error")
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.Fatal("collaborator failure must not be a ParseError")
	}
	if stub.calls != 1 {
		t.Fatalf("collaborator failures are not retried, got %d calls", stub.calls)
	}
}

func TestEvaluateEmptyTranscript(t *testing.T) {
	j := NewJudge(&stubLLM{})
	if _, err := j.Evaluate(context.Background(), nil, kneePain(t), pkg.NoTwist); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := extractJSON("there is nothing here"); err == nil {
		t.Fatal("expected error for text with no object")
	}
}
