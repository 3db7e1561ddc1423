package competition_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/competition"
	"github.com/ogas/wager-engine/internal/forum"
	"github.com/ogas/wager-engine/internal/model"
	"github.com/ogas/wager-engine/internal/reward"
	"github.com/ogas/wager-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type fakeForum struct {
	posts         []forum.Post
	announcements []string
}

func (f *fakeForum) FetchPosts(_ context.Context) ([]forum.Post, error) {
	return f.posts, nil
}

func (f *fakeForum) Announce(_ context.Context, title, _ string) error {
	f.announcements = append(f.announcements, title)
	return nil
}

type fakeNotifier struct {
	notices []string
}

func (n *fakeNotifier) Notify(_ context.Context, participantID, message string, _ time.Duration) {
	n.notices = append(n.notices, participantID+": "+message)
}

// newTestEnv creates a test Service with in-memory store and chi router.
func newTestEnv(t *testing.T) (*competition.Service, *store.MemoryStore, *fakeForum, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	fg := &fakeForum{}
	rules := reward.NewRules(d(100), d(300), 500)
	svc := competition.NewService(ms, rules, fg, &fakeNotifier{}, nil, nil)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		svc.Routes(r)
	})
	return svc, ms, fg, r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func setupOngoing(t *testing.T, router chi.Router) {
	t.Helper()
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "ongoing"}), http.StatusOK)
}

func registerCandidate(t *testing.T, router chi.Router, candidateID, authorID string) {
	t.Helper()
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/candidates", competition.RegisterCandidateRequest{
		CandidateID:   candidateID,
		AuthorID:      authorID,
		Title:         "essay " + candidateID,
		ContentLength: 600,
	}), http.StatusCreated)
}

func claimUBI(t *testing.T, router chi.Router, participantID string) {
	t.Helper()
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/ubi",
		competition.ClaimUBIRequest{ParticipantID: participantID}), http.StatusOK)
}

func placeBet(t *testing.T, router chi.Router, participantID, candidateID string, amount float64) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, "POST", "/api/v1/bets", competition.PlaceBetRequest{
		ParticipantID: participantID,
		CandidateID:   candidateID,
		Amount:        d(amount),
	})
}

func getParticipant(t *testing.T, ms *store.MemoryStore, id string) *model.Participant {
	t.Helper()
	p, err := ms.GetParticipant(context.Background(), id)
	if err != nil {
		t.Fatalf("get participant %s: %v", id, err)
	}
	return p
}

// --- UBI ---

func TestClaimUBI_FirstClaim(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)

	w := doJSON(t, router, "POST", "/api/v1/ubi", competition.ClaimUBIRequest{ParticipantID: "u1"})
	mustStatus(t, w, http.StatusOK)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["outcome"] != "granted" {
		t.Errorf("expected outcome granted, got %s", resp["outcome"])
	}
	if p := getParticipant(t, ms, "u1"); !p.Balance.Equal(d(100)) {
		t.Errorf("expected balance 100, got %s", p.Balance)
	}
}

func TestClaimUBI_SecondClaimIsSoftNoOp(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)
	claimUBI(t, router, "u1")

	// Second claim still returns 200 — a notice, not a failure.
	w := doJSON(t, router, "POST", "/api/v1/ubi", competition.ClaimUBIRequest{ParticipantID: "u1"})
	mustStatus(t, w, http.StatusOK)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["outcome"] != "already_granted" {
		t.Errorf("expected outcome already_granted, got %s", resp["outcome"])
	}
	if p := getParticipant(t, ms, "u1"); !p.Balance.Equal(d(100)) {
		t.Errorf("double claim must not double-grant: balance %s", p.Balance)
	}
}

// --- Candidate registration ---

func TestRegisterCandidate_PhaseGating(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)

	// PREMATCH: rejected.
	w := doJSON(t, router, "POST", "/api/v1/candidates", competition.RegisterCandidateRequest{
		CandidateID: "c1", AuthorID: "a1", ContentLength: 600,
	})
	mustStatus(t, w, http.StatusConflict)

	// ONGOING: same call succeeds.
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "ongoing"}), http.StatusOK)
	registerCandidate(t, router, "c1", "a1")
}

func TestRegisterCandidate_BelowThreshold(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)

	w := doJSON(t, router, "POST", "/api/v1/candidates", competition.RegisterCandidateRequest{
		CandidateID: "c1", AuthorID: "a1", ContentLength: 499,
	})
	mustStatus(t, w, http.StatusBadRequest)
}

func TestRegisterCandidate_AuthorRewardedOnce(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)

	registerCandidate(t, router, "c1", "a1")
	registerCandidate(t, router, "c2", "a1")

	if p := getParticipant(t, ms, "a1"); !p.Balance.Equal(d(300)) {
		t.Errorf("two qualifying posts must yield one author reward, got %s", p.Balance)
	}
}

func TestAdvanceToOngoing_ScansExistingPosts(t *testing.T) {
	_, ms, fg, router := newTestEnv(t)
	fg.posts = []forum.Post{
		{ID: "pre1", AuthorID: "veteran", Title: "early essay", ContentLength: 800},
		{ID: "short", AuthorID: "lurker", Title: "note", ContentLength: 100},
	}
	setupOngoing(t, router)

	// Qualifying pre-existing post: author credited, post bettable.
	if p := getParticipant(t, ms, "veteran"); !p.Balance.Equal(d(300)) {
		t.Errorf("expected retroactive author reward 300, got %s", p.Balance)
	}

	w := doJSON(t, router, "GET", "/api/v1/state", nil)
	mustStatus(t, w, http.StatusOK)
	var state competition.State
	json.Unmarshal(w.Body.Bytes(), &state)

	if len(state.Candidates) != 1 || state.Candidates[0].ID != "pre1" {
		t.Fatalf("expected only the qualifying post registered, got %+v", state.Candidates)
	}
	if _, err := ms.GetParticipant(context.Background(), "lurker"); err != store.ErrParticipantNotFound {
		t.Error("author of non-qualifying post should have no ledger record")
	}
}

// --- Phase machine ---

func TestAdvancePhase_SkipRejected(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)

	w := doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "grading"})
	mustStatus(t, w, http.StatusConflict)
}

func TestAdvancePhase_RegressRejected(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "grading"}), http.StatusOK)

	w := doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "ongoing"})
	mustStatus(t, w, http.StatusConflict)
}

func TestAdvancePhase_OngoingIdempotent(t *testing.T) {
	svc, _, _, router := newTestEnv(t)
	setupOngoing(t, router)

	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "ongoing"}), http.StatusOK)
	if svc.Phase() != model.PhaseOngoing {
		t.Errorf("expected phase ongoing, got %s", svc.Phase())
	}
}

func TestAdvancePhase_ConcludingNeedsWinner(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "grading"}), http.StatusOK)

	// CONCLUDING is only reachable through the winner announcement.
	w := doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "concluding"})
	mustStatus(t, w, http.StatusConflict)
}

func TestAdvancePhase_WithoutSetup(t *testing.T) {
	_, _, _, router := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "ongoing"})
	mustStatus(t, w, http.StatusConflict)
}

func TestSetup_RejectedWhileActive(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusConflict)
}

// --- Bet placement ---

func TestPlaceBet_Success(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	claimUBI(t, router, "u1")

	mustStatus(t, placeBet(t, router, "u1", "c1", 30), http.StatusOK)

	p := getParticipant(t, ms, "u1")
	if !p.Balance.Equal(d(70)) {
		t.Errorf("expected balance 70 after betting 30, got %s", p.Balance)
	}
	if !p.Bets["c1"].Equal(d(30)) {
		t.Errorf("expected stake 30 on c1, got %s", p.Bets["c1"])
	}
}

func TestPlaceBet_AllowedDuringGrading(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	claimUBI(t, router, "u1")
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "grading"}), http.StatusOK)

	mustStatus(t, placeBet(t, router, "u1", "c1", 10), http.StatusOK)
}

func TestPlaceBet_RejectedDuringPrematch(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)
	claimUBI(t, router, "u1")

	mustStatus(t, placeBet(t, router, "u1", "c1", 10), http.StatusConflict)
}

func TestPlaceBet_InvalidAmounts(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	claimUBI(t, router, "u1")

	for _, amount := range []float64{0, -5, 10.5} {
		w := placeBet(t, router, "u1", "c1", amount)
		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %v: expected 400, got %d", amount, w.Code)
		}
	}
	if p := getParticipant(t, ms, "u1"); !p.Balance.Equal(d(100)) {
		t.Errorf("rejected bets must not change balance, got %s", p.Balance)
	}
}

func TestPlaceBet_InsufficientFunds(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	claimUBI(t, router, "u1")

	mustStatus(t, placeBet(t, router, "u1", "c1", 101), http.StatusConflict)

	p := getParticipant(t, ms, "u1")
	if !p.Balance.Equal(d(100)) {
		t.Errorf("balance must be unchanged, got %s", p.Balance)
	}
	if len(p.Bets) != 0 {
		t.Errorf("no stake should be recorded, got %v", p.Bets)
	}
}

func TestPlaceBet_UnknownParticipant(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")

	// A participant with zero interactions cannot bet.
	mustStatus(t, placeBet(t, router, "ghost", "c1", 10), http.StatusNotFound)
}

func TestPlaceBet_UnknownCandidate(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	claimUBI(t, router, "u1")

	mustStatus(t, placeBet(t, router, "u1", "nope", 10), http.StatusNotFound)
}

func TestPlaceBet_RebetRefundsPriorStake(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	claimUBI(t, router, "u1")

	mustStatus(t, placeBet(t, router, "u1", "c1", 60), http.StatusOK)
	mustStatus(t, placeBet(t, router, "u1", "c1", 30), http.StatusOK)

	p := getParticipant(t, ms, "u1")
	if !p.Balance.Equal(d(70)) {
		t.Errorf("re-bet must refund the prior stake: expected balance 70, got %s", p.Balance)
	}
	if !p.Bets["c1"].Equal(d(30)) {
		t.Errorf("stake should be replaced, not accumulated: got %s", p.Bets["c1"])
	}
}

func TestPlaceBet_RebetMayExceedLiquidBalance(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	claimUBI(t, router, "u1")

	mustStatus(t, placeBet(t, router, "u1", "c1", 60), http.StatusOK)
	// Liquid balance is 40, but the refunded 60 makes 90 affordable.
	mustStatus(t, placeBet(t, router, "u1", "c1", 90), http.StatusOK)

	p := getParticipant(t, ms, "u1")
	if !p.Balance.Equal(d(10)) {
		t.Errorf("expected balance 10, got %s", p.Balance)
	}
	if !p.Bets["c1"].Equal(d(90)) {
		t.Errorf("expected stake 90, got %s", p.Bets["c1"])
	}
}

func TestPlaceBet_Conservation(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "c1", "a1")
	registerCandidate(t, router, "c2", "a2")
	claimUBI(t, router, "u1")
	claimUBI(t, router, "u2")

	mustStatus(t, placeBet(t, router, "u1", "c1", 30), http.StatusOK)
	mustStatus(t, placeBet(t, router, "u2", "c2", 70), http.StatusOK)
	mustStatus(t, placeBet(t, router, "u1", "c2", 25), http.StatusOK)
	mustStatus(t, placeBet(t, router, "u1", "c1", 10), http.StatusOK) // re-bet

	participants, _ := ms.ListParticipants(context.Background())
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.Balance)
		for _, stake := range p.Bets {
			total = total.Add(stake)
		}
	}
	// 2 × UBI(100) + 2 × author reward(300) = 800; betting alone must
	// neither create nor destroy tokens.
	if !total.Equal(d(800)) {
		t.Errorf("conservation violated: balances + stakes = %s, want 800", total)
	}
}

// --- Settlement ---

func settleScenario(t *testing.T, router chi.Router) {
	t.Helper()
	setupOngoing(t, router)
	registerCandidate(t, router, "A", "a1")
	registerCandidate(t, router, "B", "a2")
	claimUBI(t, router, "u1")
	claimUBI(t, router, "u2")
	mustStatus(t, placeBet(t, router, "u1", "A", 30), http.StatusOK)
	mustStatus(t, placeBet(t, router, "u2", "B", 70), http.StatusOK)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "grading"}), http.StatusOK)
}

func TestAnnounceWinner_PaysBackersOfWinner(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	settleScenario(t, router)

	w := doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"})
	mustStatus(t, w, http.StatusOK)

	var report model.SettlementReport
	json.Unmarshal(w.Body.Bytes(), &report)

	if report.WinnerID != "A" {
		t.Errorf("expected winner A, got %s", report.WinnerID)
	}
	if !report.TotalPool.Equal(d(100)) {
		t.Errorf("expected total pool 100, got %s", report.TotalPool)
	}

	// u1: 100 - 30 + 30×(100/30) = 170. u2: 100 - 70 + 0 = 30.
	if p := getParticipant(t, ms, "u1"); !p.Balance.Equal(d(170)) {
		t.Errorf("expected winner backer balance 170, got %s", p.Balance)
	}
	if p := getParticipant(t, ms, "u2"); !p.Balance.Equal(d(30)) {
		t.Errorf("expected losing backer balance 30, got %s", p.Balance)
	}
}

func TestAnnounceWinner_ReportOdds(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	settleScenario(t, router)

	w := doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"})
	mustStatus(t, w, http.StatusOK)

	var report model.SettlementReport
	json.Unmarshal(w.Body.Bytes(), &report)

	tolerance := d(0.00000001)
	if report.Odds["A"].Sub(d(100.0 / 30.0)).Abs().GreaterThan(tolerance) {
		t.Errorf("expected odds A ≈ 100/30, got %s", report.Odds["A"])
	}
	if report.Odds["B"].Sub(d(100.0 / 70.0)).Abs().GreaterThan(tolerance) {
		t.Errorf("expected odds B ≈ 100/70, got %s", report.Odds["B"])
	}
}

func TestAnnounceWinner_UnregisteredCandidateRejected(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	settleScenario(t, router)

	w := doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "unregistered"})
	mustStatus(t, w, http.StatusNotFound)
}

func TestAnnounceWinner_ZeroBetWinnerLeavesBalancesUnchanged(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "A", "a1")
	registerCandidate(t, router, "C", "a3") // nobody bets on C
	claimUBI(t, router, "u1")
	mustStatus(t, placeBet(t, router, "u1", "A", 30), http.StatusOK)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/phase",
		competition.AdvancePhaseRequest{Phase: "grading"}), http.StatusOK)

	w := doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "C"})
	mustStatus(t, w, http.StatusNotFound)

	// Failed settlement distributes nothing.
	if p := getParticipant(t, ms, "u1"); !p.Balance.Equal(d(70)) {
		t.Errorf("balances must be unchanged after failed settlement, got %s", p.Balance)
	}

	// The competition is still in GRADING: a valid winner settles.
	w = doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"})
	mustStatus(t, w, http.StatusOK)
}

func TestAnnounceWinner_DoubleSettlementRejected(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	settleScenario(t, router)

	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"}), http.StatusOK)

	w := doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"})
	mustStatus(t, w, http.StatusConflict)

	// Balance unchanged by the rejected second settlement.
	if p := getParticipant(t, ms, "u1"); !p.Balance.Equal(d(170)) {
		t.Errorf("double settlement must not pay twice, got %s", p.Balance)
	}
}

func TestAnnounceWinner_RequiresGrading(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "A", "a1")
	claimUBI(t, router, "u1")
	mustStatus(t, placeBet(t, router, "u1", "A", 30), http.StatusOK)

	w := doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"})
	mustStatus(t, w, http.StatusConflict)
}

func TestSettlement_ConservesTokens(t *testing.T) {
	_, ms, _, router := newTestEnv(t)
	settleScenario(t, router)

	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition/winner",
		competition.AnnounceWinnerRequest{CandidateID: "A"}), http.StatusOK)

	participants, _ := ms.ListParticipants(context.Background())
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.Balance)
	}
	// 2 × UBI(100) + 2 × author reward(300): the pool changed hands but
	// no tokens were created or destroyed.
	if !total.Equal(d(800)) {
		t.Errorf("settlement must conserve tokens: total %s, want 800", total)
	}
}

// --- Introspection ---

func TestInspectState(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	setupOngoing(t, router)
	registerCandidate(t, router, "A", "a1")
	claimUBI(t, router, "u1")
	mustStatus(t, placeBet(t, router, "u1", "A", 40), http.StatusOK)

	w := doJSON(t, router, "GET", "/api/v1/state", nil)
	mustStatus(t, w, http.StatusOK)

	var state competition.State
	json.Unmarshal(w.Body.Bytes(), &state)

	if state.Phase != "ongoing" {
		t.Errorf("expected phase ongoing, got %s", state.Phase)
	}
	if len(state.Candidates) != 1 {
		t.Errorf("expected 1 candidate, got %d", len(state.Candidates))
	}
	if !state.Pools["A"].Equal(d(40)) {
		t.Errorf("expected pool A=40, got %s", state.Pools["A"])
	}
	if len(state.Participants) != 2 { // a1 and u1
		t.Errorf("expected 2 participants, got %d", len(state.Participants))
	}
}

func TestGetParticipant(t *testing.T) {
	_, _, _, router := newTestEnv(t)
	mustStatus(t, doJSON(t, router, "POST", "/api/v1/competition", nil), http.StatusCreated)
	claimUBI(t, router, "u1")

	w := doJSON(t, router, "GET", "/api/v1/participants/u1", nil)
	mustStatus(t, w, http.StatusOK)

	var p model.Participant
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.ID != "u1" || !p.Balance.Equal(d(100)) {
		t.Errorf("unexpected participant: %+v", p)
	}

	mustStatus(t, doJSON(t, router, "GET", "/api/v1/participants/ghost", nil), http.StatusNotFound)
}

// --- Store error wrapping ---

// decoratedStore wraps lookup failures the way a caching or tracing
// layer would, so sentinel checks must survive error chains.
type decoratedStore struct {
	store.Store
}

func (s decoratedStore) GetParticipant(ctx context.Context, id string) (*model.Participant, error) {
	p, err := s.Store.GetParticipant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("primary lookup: %w", err)
	}
	return p, nil
}

func TestService_WrappedNotFoundErrors(t *testing.T) {
	ds := decoratedStore{store.NewMemoryStore()}
	rules := reward.NewRules(d(100), d(300), 500)
	svc := competition.NewService(ds, rules, &fakeForum{}, &fakeNotifier{}, nil, nil)
	ctx := context.Background()

	if _, err := svc.Setup(ctx); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := svc.AdvancePhase(ctx, model.PhaseOngoing); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Lazy creation still fires when the not-found sentinel is wrapped.
	outcome, err := svc.ClaimUBI(ctx, "u1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if outcome != reward.Granted {
		t.Errorf("expected Granted for new participant, got %s", outcome)
	}

	if err := svc.RegisterCandidate(ctx, "A", "a1", "essay A", 600); err != nil {
		t.Fatalf("register with unseen author: %v", err)
	}

	// Ghost bettors still map to the not-found error, wrapped or not.
	err = svc.PlaceBet(ctx, "ghost", "A", d(10))
	if !errors.Is(err, competition.ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound for ghost bettor, got %v", err)
	}
}
