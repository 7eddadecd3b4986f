package pkg

import "time"

// UserAccount is a registered trainee.  Accounts are immutable after
// registration; the password is stored only as a bcrypt hash.
type UserAccount struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	Gender       string    `json:"gender"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
}

// TurnRole describes who authored a turn.  There are only two roles:
// the trainee (the pharmacist being trained) and the simulated patient.
type TurnRole string

const (
	RoleTrainee TurnRole = "trainee"
	RolePatient TurnRole = "patient"
)

// Turn is a single utterance in a session.  Turns are appended in strict
// chronological order and never mutated.
type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// NoTwist is the sentinel meaning a session has no active complication.
// It must be the first entry of every scenario twist list.
const NoTwist = "no twist"

// Session carries the state of one interactive training run.  It is held in
// the session store between requests and is never persisted past its TTL.
// Invariant: Turns always starts with a trainee turn when non-empty; the
// engine never speaks first.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Scenario  string    `json:"scenario"`
	Twist     string    `json:"twist"`
	HardMode  bool      `json:"hard_mode"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// JudgeVerdict is the structured outcome of evaluating a completed
// transcript.  Sub-scores are in [1,10], Total in [0,100], Revenue in
// currency units.  A verdict is produced at most once per evaluation and
// is immediately projected into a LedgerRow.
type JudgeVerdict struct {
	Empathy    int     `json:"score_empathy"`
	Technique  int     `json:"score_technique"`
	Closing    int     `json:"score_closing"`
	Listening  int     `json:"score_listening"`
	Objections int     `json:"score_objections"`
	Total      int     `json:"total"`
	Revenue    float64 `json:"revenue"`
	Feedback   string  `json:"feedback_main"`
	Mistake    string  `json:"mistake"`
	Correction string  `json:"correction"`
	BestMoment string  `json:"best_moment"`
}

// LedgerRow is one completed, judged session.  The ledger is append-only:
// rows are never updated or deleted.
type LedgerRow struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Scenario  string    `json:"scenario"`
	Total     int       `json:"total"`
	Revenue   float64   `json:"revenue"`
}

// LedgerStats aggregates the ledger for the reporting endpoint.
type LedgerStats struct {
	Sessions    int                 `json:"sessions"`
	MeanScore   float64             `json:"mean_score"`
	SumRevenue  float64             `json:"sum_revenue"`
	PerScenario map[string]ScoreAgg `json:"per_scenario"`
	PerUser     map[string][]int    `json:"per_user"` // scores in append order
}

// ScoreAgg is a per-key score aggregate.
type ScoreAgg struct {
	Sessions   int     `json:"sessions"`
	MeanScore  float64 `json:"mean_score"`
	SumRevenue float64 `json:"sum_revenue"`
}

// RegisterRequest is the payload for POST /api/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
}

// LoginRequest is the payload for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChatRequest is the payload for posting a trainee message.
type ChatRequest struct {
	Content string `json:"content"`
}

// ChatResponse contains the patient's reply and, when speech synthesis
// succeeded, the base64-encoded audio clip.
type ChatResponse struct {
	Reply string `json:"reply"`
	Audio string `json:"audio,omitempty"`
}

// HintResponse is the tutor's suggested next phrase.
type HintResponse struct {
	Hint string `json:"hint"`
}
