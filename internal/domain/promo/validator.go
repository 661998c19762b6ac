package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator previews the discount a code would grant for a cart subtotal.
// It is a pure read: no usage counter is touched, so the checkout UI can
// call it repeatedly without burning redemptions. The order workflow runs
// the exact same lookup and Apply, so preview and commit never drift.
type Validator interface {
	Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error)
}

// RepoValidator implements Validator over a rule Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Preview looks up the rule for code, checks eligibility against subtotal,
// and returns the computed discount without committing anything.
func (v *RepoValidator) Preview(ctx context.Context, code string, subtotal decimal.Decimal) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup promotion")
	}

	if err := rule.Eligible(v.now(), subtotal); err != nil {
		return nil, err
	}

	d, err := Apply(rule, subtotal)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
