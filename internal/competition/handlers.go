package competition

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/model"
	"github.com/ogas/wager-engine/internal/store"
)

// --- Request/Response types ---

// AdvancePhaseRequest is the JSON body for POST /competition/phase.
type AdvancePhaseRequest struct {
	Phase string `json:"phase"` // "ongoing" | "grading"
}

// ClaimUBIRequest is the JSON body for POST /ubi.
type ClaimUBIRequest struct {
	ParticipantID string `json:"participant_id"`
}

// RegisterCandidateRequest is the JSON body for POST /candidates.
type RegisterCandidateRequest struct {
	CandidateID   string `json:"candidate_id"`
	AuthorID      string `json:"author_id"`
	Title         string `json:"title"`
	ContentLength int    `json:"content_length"`
}

// PlaceBetRequest is the JSON body for POST /bets.
type PlaceBetRequest struct {
	ParticipantID string          `json:"participant_id"`
	CandidateID   string          `json:"candidate_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// AnnounceWinnerRequest is the JSON body for POST /competition/winner.
type AnnounceWinnerRequest struct {
	CandidateID string `json:"candidate_id"`
}

// --- HTTP Handlers ---

// HandleSetup handles POST /api/v1/competition
func (s *Service) HandleSetup(w http.ResponseWriter, r *http.Request) {
	id, err := s.Setup(r.Context())
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"competition_id": id,
		"phase":          s.Phase().String(),
	})
}

// HandleAdvancePhase handles POST /api/v1/competition/phase
func (s *Service) HandleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	var req AdvancePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	phase, ok := model.ParsePhase(req.Phase)
	if !ok {
		writeError(w, "unknown phase: "+req.Phase, http.StatusBadRequest)
		return
	}
	if err := s.AdvancePhase(r.Context(), phase); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"phase": s.Phase().String()})
}

// HandleClaimUBI handles POST /api/v1/ubi
func (s *Service) HandleClaimUBI(w http.ResponseWriter, r *http.Request) {
	var req ClaimUBIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == "" {
		writeError(w, "participant_id is required", http.StatusBadRequest)
		return
	}

	outcome, err := s.ClaimUBI(r.Context(), req.ParticipantID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	// AlreadyGranted is a soft no-op, reported with 200, never a failure.
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"outcome": outcome.String()})
}

// HandleRegisterCandidate handles POST /api/v1/candidates
func (s *Service) HandleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var req RegisterCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CandidateID == "" || req.AuthorID == "" {
		writeError(w, "candidate_id and author_id are required", http.StatusBadRequest)
		return
	}

	if err := s.RegisterCandidate(r.Context(), req.CandidateID, req.AuthorID, req.Title, req.ContentLength); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"candidate_id": req.CandidateID})
}

// HandlePlaceBet handles POST /api/v1/bets
func (s *Service) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == "" || req.CandidateID == "" {
		writeError(w, "participant_id and candidate_id are required", http.StatusBadRequest)
		return
	}

	if err := s.PlaceBet(r.Context(), req.ParticipantID, req.CandidateID, req.Amount); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	p, err := s.store.GetParticipant(r.Context(), req.ParticipantID)
	if err != nil {
		writeError(w, "failed to load participant", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// HandleAnnounceWinner handles POST /api/v1/competition/winner
func (s *Service) HandleAnnounceWinner(w http.ResponseWriter, r *http.Request) {
	var req AnnounceWinnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CandidateID == "" {
		writeError(w, "candidate_id is required", http.StatusBadRequest)
		return
	}

	report, err := s.AnnounceWinner(r.Context(), req.CandidateID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleInspectState handles GET /api/v1/state
func (s *Service) HandleInspectState(w http.ResponseWriter, r *http.Request) {
	state, err := s.InspectState(r.Context())
	if err != nil {
		writeError(w, "failed to inspect state", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// HandleGetParticipant handles GET /api/v1/participants/{participantID}
func (s *Service) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "participantID")

	p, err := s.store.GetParticipant(r.Context(), id)
	if err != nil {
		writeError(w, "participant not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// Routes mounts the command surface on a chi router.
func (s *Service) Routes(r chi.Router) {
	r.Post("/competition", s.HandleSetup)
	r.Post("/competition/phase", s.HandleAdvancePhase)
	r.Post("/competition/winner", s.HandleAnnounceWinner)
	r.Post("/ubi", s.HandleClaimUBI)
	r.Post("/candidates", s.HandleRegisterCandidate)
	r.Post("/bets", s.HandlePlaceBet)
	r.Get("/state", s.HandleInspectState)
	r.Get("/participants/{participantID}", s.HandleGetParticipant)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrBelowThreshold):
		return http.StatusBadRequest
	case errors.Is(err, ErrParticipantNotFound), errors.Is(err, ErrUnknownCandidate),
		errors.Is(err, store.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrIllegalPhaseTransition),
		errors.Is(err, ErrCompetitionSettled), errors.Is(err, ErrCompetitionActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
