package core

// prompts.go defines the prompt text used by the conversation engine and the
// judge.  Keeping these in a separate file makes them easy to tweak without
// touching the rest of the code.

const (
	// HardModeSuffix is appended to the persona prompt when hard mode is on.
	HardModeSuffix = " Be grumpy, interrupt, and complain about the prices."

	// twistClause is appended when the session drew a real complication.
	twistClause = " Also factor in this complication: %s"

	// hintSystem drives the out-of-band tutor suggestion.  The reply is
	// advisory only and never enters the turn history.
	hintSystem = "You are an expert sales trainer. The objective is: %s. " +
		"Read the chat and suggest one short, effective phrase the pharmacist " +
		"could say NOW to convince the customer. Reply with the phrase only."

	// judgePrompt asks for the full structured report.  The model is
	// instructed to return a bare JSON object; parsing is still tolerant of
	// fences and surrounding prose.
	judgePrompt = `Analyze this pharmacy sales conversation.
SCENARIO: %s
OBJECTIVE: %s
%s
Return ONLY a JSON object with exactly these fields:
{
    "score_empathy": (1-10),
    "score_technique": (1-10),
    "score_closing": (1-10),
    "score_listening": (1-10),
    "score_objections": (1-10),
    "total": (0-100),
    "revenue": (estimated euros),
    "feedback_main": "brief overall comment",
    "mistake": "the most serious mistake made",
    "correction": "what should have been said instead",
    "best_moment": "the best moment of the chat"
}

CHAT:
%s`

	// judgeRetryPrefix tightens the prompt for the single bounded retry
	// after a parse failure.
	judgeRetryPrefix = "Your previous reply was not a valid JSON object. " +
		"Respond with the JSON object only, no prose, no code fences.\n\n"

	// aiErrorPrefix marks the visible placeholder recorded as the patient
	// reply when the chat collaborator fails mid-turn.
	aiErrorPrefix = "AI error: "
)
