// Package reward implements the stateless grant policy: the one-time UBI
// grant and the article-author bonus. Side effects are confined to the
// passed participant; the caller persists the result.
package reward

import (
	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/model"
)

// Outcome reports what a grant call did.
type Outcome int

const (
	// Granted means the balance was credited and the flag set.
	Granted Outcome = iota

	// AlreadyGranted means the participant had the grant already; the
	// call was an idempotent no-op.
	AlreadyGranted

	// NotQualifying means the post did not meet the validity threshold.
	NotQualifying
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case AlreadyGranted:
		return "already_granted"
	case NotQualifying:
		return "not_qualifying"
	default:
		return "unknown"
	}
}

// Rules holds the grant amounts and the article validity threshold.
// Zero-value fields are never defaulted here; construct via NewRules.
type Rules struct {
	UBIAmount        decimal.Decimal
	AuthorReward     decimal.Decimal
	ArticleThreshold int
}

// NewRules creates the grant policy. The production values are a UBI of
// 100, an author reward of 300, and a 500-character validity threshold.
func NewRules(ubiAmount, authorReward decimal.Decimal, articleThreshold int) *Rules {
	return &Rules{
		UBIAmount:        ubiAmount,
		AuthorReward:     authorReward,
		ArticleThreshold: articleThreshold,
	}
}

// GrantUBI credits the one-time basic income. Calling it twice on the
// same participant leaves the balance as if called once.
func (r *Rules) GrantUBI(p *model.Participant) Outcome {
	if p.HasReceivedUBI {
		return AlreadyGranted
	}
	p.Balance = p.Balance.Add(r.UBIAmount)
	p.HasReceivedUBI = true
	return Granted
}

// GrantAuthorReward credits the article-author bonus when the post
// content meets the validity threshold. The IsArticleAuthor flag is set
// once and never cleared, so a second qualifying call never double-grants.
func (r *Rules) GrantAuthorReward(p *model.Participant, contentLength int) Outcome {
	if p.IsArticleAuthor {
		return AlreadyGranted
	}
	if contentLength < r.ArticleThreshold {
		return NotQualifying
	}
	p.Balance = p.Balance.Add(r.AuthorReward)
	p.IsArticleAuthor = true
	return Granted
}

// Qualifies reports whether a post of the given content length passes
// the article validity threshold.
func (r *Rules) Qualifies(contentLength int) bool {
	return contentLength >= r.ArticleThreshold
}
