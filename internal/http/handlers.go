package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pharmaflow-tutor/internal/auth"
	"pharmaflow-tutor/internal/core"
	"pharmaflow-tutor/pkg"
)

const maxVoiceUpload = 10 << 20 // 10 MiB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req pkg.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	account, err := s.Auth.Register(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		respondError(w, http.StatusConflict, "username_taken", err.Error())
		return
	case errors.Is(err, auth.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	case err != nil:
		slog.Error("registration failed", "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "could not create account")
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req pkg.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	account, err := s.Auth.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrAuthFailed) {
		respondError(w, http.StatusUnauthorized, "auth_failed", err.Error())
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "could not verify credentials")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Catalog.List())
}

type createSessionRequest struct {
	Username string `json:"username"`
	Scenario string `json:"scenario"`
	HardMode bool   `json:"hard_mode"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}

	sess, err := s.Engine.NewSession(req.Username, req.Scenario, req.HardMode)
	if errors.Is(err, core.ErrUnknownScenario) {
		respondError(w, http.StatusNotFound, "unknown_scenario", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if err := s.Sessions.Create(r.Context(), sess); err != nil {
		slog.Error("failed to store session", "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "could not store session")
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// loadSession fetches the session from the store, writing the error response
// itself when the session is missing or the store fails.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) *pkg.Session {
	id := chi.URLParam(r, "id")
	sess, err := s.Sessions.Get(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session", id, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "could not load session")
		return nil
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "unknown_session", "session not found")
		return nil
	}
	return sess
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess := s.loadSession(w, r); sess != nil {
		respondJSON(w, http.StatusOK, sess)
	}
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	if err := s.Engine.Reset(sess); err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if err := s.Sessions.Update(r.Context(), sess); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not store session")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return
	}
	s.submitTurn(w, r, sess, req.Content)
}

// submitTurn runs one conversation cycle and persists the session.  A chat
// collaborator failure is not fatal: the placeholder reply has already been
// recorded, so the session stays usable and the client sees the error text.
func (s *Server) submitTurn(w http.ResponseWriter, r *http.Request, sess *pkg.Session, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "message content is required")
		return
	}

	result, aiErr := s.Engine.SubmitTurn(r.Context(), sess, content)
	if aiErr != nil {
		slog.Warn("chat completion failed", "session", sess.ID, "error", aiErr)
	}
	if err := s.Sessions.Update(r.Context(), sess); err != nil {
		slog.Error("failed to store session", "session", sess.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "could not store session")
		return
	}

	resp := pkg.ChatResponse{Reply: result.Reply}
	if len(result.Audio) > 0 {
		resp.Audio = base64.StdEncoding.EncodeToString(result.Audio)
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleVoiceMessage accepts a recorded clip, transcribes it and submits the
// text as a trainee turn.  A failed or empty transcription silently drops
// the turn; the trainee must retry.
func (s *Server) handleVoiceMessage(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	if err := r.ParseMultipartForm(maxVoiceUpload); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "audio file is required")
		return
	}
	defer file.Close()

	text, err := s.LLM.Transcribe(r.Context(), file, header.Filename, s.Language)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			slog.Warn("transcription failed", "session", sess.ID, "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.submitTurn(w, r, sess, text)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	hint, err := s.Engine.Hint(r.Context(), sess)
	if err != nil {
		slog.Warn("hint request failed", "session", sess.ID, "error", err)
		respondError(w, http.StatusBadGateway, "ai_call_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, pkg.HintResponse{Hint: hint})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}
	sc, ok := s.Catalog.Get(sess.Scenario)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown_scenario", "scenario not found")
		return
	}

	verdict, err := s.Judge.Evaluate(r.Context(), sess.Turns, sc, sess.Twist)
	var parseErr *core.ParseError
	switch {
	case errors.Is(err, core.ErrEmptyTranscript):
		respondError(w, http.StatusBadRequest, "empty_transcript", err.Error())
		return
	case errors.As(err, &parseErr):
		slog.Warn("judge parse failed", "session", sess.ID, "error", err)
		respondError(w, http.StatusBadGateway, "parse_error", "evaluation failed, please retry")
		return
	case err != nil:
		slog.Warn("judge call failed", "session", sess.ID, "error", err)
		respondError(w, http.StatusBadGateway, "ai_call_failed", "evaluation failed, please retry")
		return
	}

	row := &pkg.LedgerRow{
		Timestamp: time.Now(),
		Username:  sess.Username,
		Scenario:  sess.Scenario,
		Total:     verdict.Total,
		Revenue:   verdict.Revenue,
	}
	if err := s.Repo.AppendLedger(r.Context(), row); err != nil {
		slog.Error("failed to append ledger row", "session", sess.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "could not record result")
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Repo.ListLedger(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not read ledger")
		return
	}
	if rows == nil {
		rows = []pkg.LedgerRow{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleLedgerStats(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Repo.ListLedger(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not read ledger")
		return
	}
	respondJSON(w, http.StatusOK, computeStats(rows))
}

func computeStats(rows []pkg.LedgerRow) pkg.LedgerStats {
	stats := pkg.LedgerStats{
		PerScenario: make(map[string]pkg.ScoreAgg),
		PerUser:     make(map[string][]int),
	}
	var totalScore int
	for _, row := range rows {
		stats.Sessions++
		totalScore += row.Total
		stats.SumRevenue += row.Revenue

		agg := stats.PerScenario[row.Scenario]
		agg.Sessions++
		agg.SumRevenue += row.Revenue
		agg.MeanScore += float64(row.Total) // running sum; divided below
		stats.PerScenario[row.Scenario] = agg

		stats.PerUser[row.Username] = append(stats.PerUser[row.Username], row.Total)
	}
	if stats.Sessions > 0 {
		stats.MeanScore = float64(totalScore) / float64(stats.Sessions)
	}
	for key, agg := range stats.PerScenario {
		agg.MeanScore /= float64(agg.Sessions)
		stats.PerScenario[key] = agg
	}
	return stats
}
