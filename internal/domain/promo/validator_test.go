package promo

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRuleRepo struct {
	rule *Rule
	err  error
}

func (m *mockRuleRepo) FindByCode(_ context.Context, _ string) (*Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rule, nil
}

func (m *mockRuleRepo) List(_ context.Context) ([]Rule, error)        { return nil, nil }
func (m *mockRuleRepo) ListCodes(_ context.Context) ([]string, error) { return nil, nil }
func (m *mockRuleRepo) Create(_ context.Context, _ *Rule) error       { return nil }
func (m *mockRuleRepo) Update(_ context.Context, _ *Rule) error       { return nil }
func (m *mockRuleRepo) Delete(_ context.Context, _ string) error      { return nil }

func TestPreview_ValidCode(t *testing.T) {
	rule := activeRule(DiscountPercentage, d("10"))
	rule.MaxDiscount = d("15000")
	rule.Description = "Welcome: 10% off"
	v := NewRepoValidator(&mockRuleRepo{rule: rule})

	disc, err := v.Preview(context.Background(), "TESTCODE", d("170000"))
	require.NoError(t, err)
	assert.True(t, disc.Amount.Equal(d("15000")), "got %s", disc.Amount)
	assert.Equal(t, "Welcome: 10% off", disc.Description)
}

func TestPreview_UnknownCode(t *testing.T) {
	v := NewRepoValidator(&mockRuleRepo{err: ErrInvalidCode})

	_, err := v.Preview(context.Background(), "NOPE", d("100"))
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestPreview_RepoFailure(t *testing.T) {
	v := NewRepoValidator(&mockRuleRepo{err: errors.New("db down")})

	_, err := v.Preview(context.Background(), "TESTCODE", d("100"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCode)
}

func TestPreview_BelowMinPurchase(t *testing.T) {
	rule := activeRule(DiscountPercentage, d("10"))
	rule.MinPurchase = d("50000")
	v := NewRepoValidator(&mockRuleRepo{rule: rule})

	_, err := v.Preview(context.Background(), "TESTCODE", d("40000"))

	var mpErr *MinPurchaseError
	require.ErrorAs(t, err, &mpErr)
}

func TestPreview_DoesNotDependOnWallClockWindow(t *testing.T) {
	rule := activeRule(DiscountFixed, d("5000"))
	rule.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rule.EndDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	v := NewRepoValidator(&mockRuleRepo{rule: rule})
	v.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }

	disc, err := v.Preview(context.Background(), "TESTCODE", decimal.NewFromInt(20000))
	require.NoError(t, err)
	assert.True(t, disc.Amount.Equal(d("5000")))
}
