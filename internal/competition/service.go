// Package competition implements the wagering state machine: the phase
// lifecycle, candidate registry, bet placement, and pari-mutuel
// settlement, plus the HTTP command surface.
//
// All token amounts use shopspring/decimal — never float64 for money.
package competition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/forum"
	"github.com/ogas/wager-engine/internal/metrics"
	"github.com/ogas/wager-engine/internal/model"
	"github.com/ogas/wager-engine/internal/parimutuel"
	"github.com/ogas/wager-engine/internal/reward"
	"github.com/ogas/wager-engine/internal/snapshot"
	"github.com/ogas/wager-engine/internal/store"
)

// noticeTTL is how long addressee-only notices stay visible.
const noticeTTL = 10 * time.Second

// Service owns one competition and serializes every state-changing
// command group (bet placement, phase advancement, grants) behind a
// single mutex (single-instance). For horizontal scaling, replace with
// distributed locking or database-level optimistic concurrency.
type Service struct {
	store    store.Store
	rules    *reward.Rules
	forum    forum.Gateway
	notifier forum.Notifier
	snap     *snapshot.Writer // optional balance snapshot file
	wsHub    *WSHub           // optional WebSocket hub for broadcasts

	mu         sync.Mutex
	id         string
	phase      model.Phase
	candidates map[string]model.Candidate
	report     *model.SettlementReport
	createdAt  time.Time
}

// NewService creates the competition service. Pass nil for snap if no
// balance file should be written, and nil for hub if WebSocket
// broadcasting is not needed.
func NewService(st store.Store, rules *reward.Rules, fg forum.Gateway, n forum.Notifier, snap *snapshot.Writer, hub *WSHub) *Service {
	if n == nil {
		n = forum.LogNotifier{}
	}
	return &Service{
		store:    st,
		rules:    rules,
		forum:    fg,
		notifier: n,
		snap:     snap,
		wsHub:    hub,
	}
}

// Setup creates the competition in PREMATCH and announces the control
// panel post. Setup is rejected while an unsettled competition exists;
// after settlement a fresh competition may be set up.
func (s *Service) Setup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != 0 && s.report == nil {
		return "", ErrCompetitionActive
	}

	s.id = uuid.New().String()
	s.phase = model.PhasePrematch
	s.candidates = make(map[string]model.Candidate)
	s.report = nil
	s.createdAt = time.Now().UTC()
	metrics.CurrentPhase.Set(float64(s.phase))
	metrics.Candidates.Set(0)

	if err := s.forum.Announce(ctx, "Betting station",
		"Claim your one-time 100 tokens here and wager them on the winning article."); err != nil {
		slog.Warn("control panel announcement failed", "err", err)
	}

	slog.Info("competition set up", "id", s.id, "phase", s.phase.String())
	return s.id, nil
}

// AdvancePhase moves the competition to the target phase. Transitions
// are strictly forward and adjacent-only; regressions and skips are
// rejected. Re-entering ONGOING while already ONGOING is a no-op.
// CONCLUDING is never entered here — it is the settlement one-shot,
// entered through AnnounceWinner.
func (s *Service) AdvancePhase(ctx context.Context, target model.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == 0 {
		return fmt.Errorf("%w: competition not set up", ErrIllegalPhaseTransition)
	}
	if target == model.PhaseOngoing && s.phase == model.PhaseOngoing {
		return nil // idempotent re-entry
	}
	if target == model.PhaseConcluding {
		return fmt.Errorf("%w: concluding is entered by announcing a winner", ErrIllegalPhaseTransition)
	}
	if target != s.phase+1 {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalPhaseTransition, s.phase, target)
	}

	s.phase = target
	metrics.CurrentPhase.Set(float64(s.phase))
	slog.Info("phase advanced", "competition", s.id, "phase", target.String())

	if target == model.PhaseOngoing {
		// First entry into ONGOING: credit authors of existing posts and
		// surface qualifying ones as bettable candidates.
		if err := s.scanExistingPosts(ctx); err != nil {
			slog.Warn("retroactive post scan failed", "err", err)
		}
	}

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: "phase_changed", Phase: target.String()})
	}
	return nil
}

// scanExistingPosts runs on the first entry into ONGOING. Caller holds
// the mutex.
func (s *Service) scanExistingPosts(ctx context.Context) error {
	posts, err := s.forum.FetchPosts(ctx)
	if err != nil {
		return err
	}
	for _, post := range posts {
		if err := s.registerLocked(ctx, post.ID, post.AuthorID, post.Title, post.ContentLength); err != nil {
			slog.Info("existing post not registered",
				"post", post.ID, "author", post.AuthorID, "reason", err)
		}
	}
	return nil
}

// RegisterCandidate admits a contestant post into the competition.
// Legal only while the phase is ONGOING; the validity threshold is
// enforced before registration. A qualifying post also earns its author
// the one-time article bonus.
func (s *Service) RegisterCandidate(ctx context.Context, candidateID, authorID, title string, contentLength int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseOngoing {
		return fmt.Errorf("%w: candidate registration requires ongoing phase, current %s",
			ErrIllegalPhaseTransition, s.phase)
	}
	return s.registerLocked(ctx, candidateID, authorID, title, contentLength)
}

func (s *Service) registerLocked(ctx context.Context, candidateID, authorID, title string, contentLength int) error {
	if !s.rules.Qualifies(contentLength) {
		return ErrBelowThreshold
	}
	if _, exists := s.candidates[candidateID]; exists {
		return nil // already registered
	}

	// Author grant first: the author may have no ledger record yet.
	author, err := s.store.GetParticipant(ctx, authorID)
	if errors.Is(err, store.ErrParticipantNotFound) {
		author = model.NewParticipant(authorID)
	} else if err != nil {
		return err
	}
	outcome := s.rules.GrantAuthorReward(author, contentLength)
	if outcome == reward.Granted {
		if err := s.persist(ctx, author); err != nil {
			return err
		}
		metrics.GrantsTotal.WithLabelValues("author").Inc()
		s.notifier.Notify(ctx, authorID,
			fmt.Sprintf("Your article earned you %s tokens.", s.rules.AuthorReward), noticeTTL)
	}

	s.candidates[candidateID] = model.Candidate{
		ID:            candidateID,
		AuthorID:      authorID,
		Title:         title,
		ContentLength: contentLength,
		RegisteredAt:  time.Now().UTC(),
	}
	metrics.Candidates.Set(float64(len(s.candidates)))

	if err := s.forum.Announce(ctx, title,
		fmt.Sprintf("New contestant article by %s is open for bets.", authorID)); err != nil {
		slog.Warn("bet option announcement failed", "candidate", candidateID, "err", err)
	}

	slog.Info("candidate registered",
		"competition", s.id, "candidate", candidateID, "author", authorID)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: "candidate_registered", CandidateID: candidateID})
	}
	return nil
}

// ClaimUBI credits the one-time basic income grant, creating the ledger
// record on first contact. Claiming twice is a soft no-op, reported to
// the claimant, never an error.
func (s *Service) ClaimUBI(ctx context.Context, participantID string) (reward.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report != nil {
		return 0, ErrCompetitionSettled
	}

	p, err := s.store.GetParticipant(ctx, participantID)
	if errors.Is(err, store.ErrParticipantNotFound) {
		p = model.NewParticipant(participantID)
	} else if err != nil {
		return 0, err
	}

	outcome := s.rules.GrantUBI(p)
	switch outcome {
	case reward.Granted:
		if err := s.persist(ctx, p); err != nil {
			return 0, err
		}
		metrics.GrantsTotal.WithLabelValues("ubi").Inc()
		s.notifier.Notify(ctx, participantID,
			fmt.Sprintf("You claimed %s tokens.", s.rules.UBIAmount), noticeTTL)
	case reward.AlreadyGranted:
		s.notifier.Notify(ctx, participantID,
			"You already claimed your tokens. Publish an article to earn the author bonus.", noticeTTL)
	}

	slog.Info("ubi claim", "participant", participantID, "outcome", outcome.String())
	return outcome, nil
}

// PlaceBet wagers tokens on a registered candidate.
//
// Preconditions: the phase allows betting (ONGOING or GRADING), the
// amount is a positive integer, the candidate is registered, and the
// participant already exists in the ledger. A bet that fails any
// precondition changes nothing.
//
// Re-betting on the same candidate refunds the earlier stake before the
// new debit, so the recorded stake is replaced, not accumulated, and no
// tokens are created or destroyed.
func (s *Service) PlaceBet(ctx context.Context, participantID, candidateID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.placeBetLocked(ctx, participantID, candidateID, amount); err != nil {
		metrics.BetRejections.WithLabelValues(rejectionReason(err)).Inc()
		s.notifier.Notify(ctx, participantID, err.Error(), noticeTTL)
		return err
	}

	metrics.BetsTotal.Inc()
	s.notifier.Notify(ctx, participantID,
		fmt.Sprintf("You wagered %s tokens on %s.", amount, candidateID), noticeTTL)
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:          "bet_placed",
			ParticipantID: participantID,
			CandidateID:   candidateID,
			Amount:        amount.String(),
		})
	}
	return nil
}

func (s *Service) placeBetLocked(ctx context.Context, participantID, candidateID string, amount decimal.Decimal) error {
	if s.phase != model.PhaseOngoing && s.phase != model.PhaseGrading {
		return fmt.Errorf("%w: betting requires ongoing or grading phase, current %s",
			ErrIllegalPhaseTransition, s.phase)
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return ErrInvalidAmount
	}
	if _, ok := s.candidates[candidateID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidateID)
	}

	p, err := s.store.GetParticipant(ctx, participantID)
	if errors.Is(err, store.ErrParticipantNotFound) {
		return ErrParticipantNotFound
	}
	if err != nil {
		return err
	}

	// Refund-then-rebet: the prior stake on this candidate is credited
	// back before the new debit is checked and applied.
	available := p.Balance.Add(p.Bets[candidateID])
	if available.LessThan(amount) {
		return ErrInsufficientFunds
	}

	p.Balance = available.Sub(amount)
	p.Bets[candidateID] = amount

	if err := s.persist(ctx, p); err != nil {
		return err
	}

	slog.Info("bet placed",
		"competition", s.id,
		"participant", participantID,
		"candidate", candidateID,
		"amount", amount.String(),
		"balance", p.Balance.String(),
	)
	return nil
}

// AnnounceWinner is the settlement one-shot: it enters CONCLUDING,
// computes pari-mutuel odds from the full set of current stakes, pays
// every backer of the winning candidate stake × odds, and produces the
// final balance report. Legal only from GRADING; a second announcement
// fails on the phase gate, so settlement runs exactly once.
//
// A winner that is unregistered or received no bets fails the whole
// settlement with ErrUnknownCandidate and distributes nothing.
func (s *Service) AnnounceWinner(ctx context.Context, winnerID string) (*model.SettlementReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report != nil {
		return nil, ErrCompetitionSettled
	}
	if s.phase != model.PhaseGrading {
		return nil, fmt.Errorf("%w: settlement requires grading phase, current %s",
			ErrIllegalPhaseTransition, s.phase)
	}
	if _, ok := s.candidates[winnerID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, winnerID)
	}

	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}

	book := parimutuel.Compile(participants)
	odds, err := book.WinnerOdds(winnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: no stakes recorded for %s", ErrUnknownCandidate, winnerID)
	}

	// Apply payouts in memory first; nothing is persisted until every
	// payout is computed, so a failed precondition distributes nothing.
	lines := make([]model.BalanceLine, 0, len(participants))
	var winners []*model.Participant
	for i := range participants {
		p := participants[i].Clone()
		payout := decimal.Zero
		if stake, ok := p.Bets[winnerID]; ok {
			payout = book.Payout(winnerID, stake)
			p.Balance = p.Balance.Add(payout)
			winners = append(winners, p)
		}
		lines = append(lines, model.BalanceLine{
			ParticipantID: p.ID,
			Balance:       p.Balance,
			Payout:        payout,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ParticipantID < lines[j].ParticipantID })

	for _, p := range winners {
		if err := s.persist(ctx, p); err != nil {
			return nil, err
		}
	}

	s.phase = model.PhaseConcluding
	s.report = &model.SettlementReport{
		WinnerID:  winnerID,
		Odds:      book.Odds,
		Pools:     book.Pools,
		TotalPool: book.TotalPool,
		Balances:  lines,
		SettledAt: time.Now().UTC(),
	}
	metrics.CurrentPhase.Set(float64(s.phase))
	metrics.SettlementsTotal.Inc()

	slog.Info("competition settled",
		"competition", s.id,
		"winner", winnerID,
		"odds", odds.String(),
		"total_pool", book.TotalPool.String(),
		"paid_backers", len(winners),
	)

	if err := s.forum.Announce(ctx, "Competition results", s.reportBody()); err != nil {
		slog.Warn("result announcement failed", "err", err)
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "settled",
			Phase:    s.phase.String(),
			WinnerID: winnerID,
		})
	}
	return s.report, nil
}

// reportBody renders the final balances as the announcement text.
// Caller holds the mutex and s.report is set.
func (s *Service) reportBody() string {
	body := fmt.Sprintf("Winner: %s\n", s.report.WinnerID)
	for _, line := range s.report.Balances {
		body += fmt.Sprintf("%s: %s\n", line.ParticipantID, line.Balance)
	}
	return body
}

// State is the debug/introspection snapshot returned by InspectState.
type State struct {
	CompetitionID string                     `json:"competition_id"`
	Phase         string                     `json:"phase"`
	Candidates    []model.Candidate          `json:"candidates"`
	Pools         map[string]decimal.Decimal `json:"pools"`
	Odds          map[string]decimal.Decimal `json:"odds"`
	Participants  []model.Participant        `json:"participants"`
	Report        *model.SettlementReport    `json:"report,omitempty"`
}

// InspectState returns the full competition state, with pools and odds
// recomputed from current stakes. Debug/introspection only.
func (s *Service) InspectState(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })

	candidates := make([]model.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	book := parimutuel.Compile(participants)
	return &State{
		CompetitionID: s.id,
		Phase:         s.phase.String(),
		Candidates:    candidates,
		Pools:         book.Pools,
		Odds:          book.Odds,
		Participants:  participants,
		Report:        s.report,
	}, nil
}

// Phase returns the current phase.
func (s *Service) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// persist writes the participant to the store and refreshes the balance
// snapshot file. Caller holds the mutex.
func (s *Service) persist(ctx context.Context, p *model.Participant) error {
	if err := s.store.UpsertParticipant(ctx, p); err != nil {
		return err
	}
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return err
	}
	metrics.Participants.Set(float64(len(participants)))
	if s.snap != nil {
		if err := s.snap.Save(participants); err != nil {
			slog.Warn("balance snapshot write failed", "err", err)
		}
	}
	return nil
}

// rejectionReason maps bet placement errors to a bounded metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrParticipantNotFound):
		return "participant_not_found"
	case errors.Is(err, ErrUnknownCandidate):
		return "unknown_candidate"
	case errors.Is(err, ErrIllegalPhaseTransition):
		return "illegal_phase"
	default:
		return "other"
	}
}
