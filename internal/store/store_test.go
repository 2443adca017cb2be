package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.GetOrCreateUser("+911234567890")
	require.NoError(t, err)
	return id
}

func TestGetOrCreateUserIdempotent(t *testing.T) {
	s := openTestStore(t)

	first, err := s.GetOrCreateUser("+911111111111")
	require.NoError(t, err)
	second, err := s.GetOrCreateUser("+911111111111")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := s.GetOrCreateUser("+912222222222")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestUserIDByPhoneNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UserIDByPhone("+910000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveCategoryFuzzy(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	created, err := s.ResolveCategory(uid, "Groceries", CategoryExpense)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", created.Name)

	// Exact match is case-insensitive.
	exact, err := s.ResolveCategory(uid, "groceries", CategoryExpense)
	require.NoError(t, err)
	assert.Equal(t, created.ID, exact.ID)

	// A partial name resolves to the existing category.
	fuzz, err := s.ResolveCategory(uid, "grocer", CategoryExpense)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fuzz.ID)

	// An unrelated name creates a fresh category.
	fresh, err := s.ResolveCategory(uid, "Rent", CategoryExpense)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, fresh.ID)
}

func TestResolveCategoryIgnoresWeakSubsequenceMatch(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	edu, err := s.ResolveCategory(uid, "Education", CategoryExpense)
	require.NoError(t, err)

	// "cat" is a subsequence of "Education" but not a meaningful match;
	// it must create a fresh category instead of resolving.
	cat, err := s.ResolveCategory(uid, "cat", CategoryExpense)
	require.NoError(t, err)
	assert.NotEqual(t, edu.ID, cat.ID)
	assert.Equal(t, "cat", cat.Name)
}

func TestResolveCategoryTypeIsolation(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	exp, err := s.ResolveCategory(uid, "Salary", CategoryExpense)
	require.NoError(t, err)
	inc, err := s.ResolveCategory(uid, "Salary", CategoryIncome)
	require.NoError(t, err)
	assert.NotEqual(t, exp.ID, inc.ID)
}

func TestAddTransactionUpdatesBalance(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	_, err := s.AddTransaction(Transaction{
		UserID:    uid,
		Category:  "Salary",
		Date:      "2026-08-01",
		Type:      TxnCredit,
		Amount:    50000,
		Narration: "monthly salary",
		Source:    SourceManual,
	})
	require.NoError(t, err)

	_, err = s.AddTransaction(Transaction{
		UserID:   uid,
		Category: "Groceries",
		Date:     "2026-08-02",
		Type:     TxnDebit,
		Amount:   1250.50,
		Source:   SourceManual,
	})
	require.NoError(t, err)

	bal, err := s.Balance(uid)
	require.NoError(t, err)
	assert.InDelta(t, 48749.50, bal, 0.001)

	recalc, err := s.RecalculateBalance(uid)
	require.NoError(t, err)
	assert.InDelta(t, bal, recalc, 0.001)
}

func TestAddTransactionValidation(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	_, err := s.AddTransaction(Transaction{
		UserID: uid, Category: "Food", Date: "2026-08-01",
		Type: "TRANSFER", Amount: 10,
	})
	assert.Error(t, err)

	_, err = s.AddTransaction(Transaction{
		UserID: uid, Category: "Food", Date: "2026-08-01",
		Type: TxnDebit, Amount: -5,
	})
	assert.Error(t, err)
}

func TestListTransactionsFilters(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	dates := []string{"2026-08-01", "2026-08-05", "2026-08-10"}
	for _, d := range dates {
		_, err := s.AddTransaction(Transaction{
			UserID: uid, Category: "Food", Date: d,
			Type: TxnDebit, Amount: 100, Source: SourceManual,
		})
		require.NoError(t, err)
	}

	all, err := s.ListTransactions(uid, TxnFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "2026-08-10", all[0].Date)

	ranged, err := s.ListTransactions(uid, TxnFilter{StartDate: "2026-08-02", EndDate: "2026-08-09"})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "2026-08-05", ranged[0].Date)

	limited, err := s.ListTransactions(uid, TxnFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestBudgetLifecycle(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	b, err := s.UpsertBudget(uid, "Food", 5000, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, b.AmountLimit)

	// Upsert replaces the limit for the same category and month.
	b2, err := s.UpsertBudget(uid, "food", 6000, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, b.CategoryID, b2.CategoryID)
	assert.Equal(t, 6000.0, b2.AmountLimit)
	// The update path keeps the same row id.
	assert.Equal(t, b.ID, b2.ID)

	list, err := s.ListBudgets(uid, "2026-08")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b2.ID, list[0].ID)

	_, err = s.AddTransaction(Transaction{
		UserID: uid, Category: "Food", Date: "2026-08-15",
		Type: TxnDebit, Amount: 1200, Source: SourceManual,
	})
	require.NoError(t, err)

	spent, err := s.SpentInMonth(uid, b.CategoryID, "2026-08")
	require.NoError(t, err)
	assert.InDelta(t, 1200, spent, 0.001)

	require.NoError(t, s.DeleteBudget(uid, "Food", "2026-08"))
	assert.ErrorIs(t, s.DeleteBudget(uid, "Food", "2026-08"), ErrNotFound)
}

func TestGoalProgress(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	id, err := s.CreateGoal(uid, "Emergency Fund", 100000, "2027-01-01")
	require.NoError(t, err)

	g, err := s.AddToGoal(uid, id, 15000)
	require.NoError(t, err)
	assert.InDelta(t, 15000, g.CurrentAmount, 0.001)

	g, err = s.AddToGoal(uid, id, 5000)
	require.NoError(t, err)
	assert.InDelta(t, 20000, g.CurrentAmount, 0.001)

	goals, err := s.ListGoals(uid)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Emergency Fund", goals[0].Name)

	require.NoError(t, s.DeleteGoal(uid, id))
	_, err = s.GoalByID(uid, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoalScopedToUser(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)
	other, err := s.GetOrCreateUser("+919999999999")
	require.NoError(t, err)

	id, err := s.CreateGoal(uid, "Trip", 50000, "")
	require.NoError(t, err)

	_, err = s.AddToGoal(other, id, 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLiabilities(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	_, err := s.CreateLoan(Loan{
		UserID: uid, Name: "Home Loan",
		PrincipalAmount: 2500000, RemainingBalance: 1800000,
		EMIAmount: 21500, InterestRate: 8.5, NextDueDate: "2026-09-05",
	})
	require.NoError(t, err)

	_, err = s.CreateCreditCard(CreditCard{
		UserID: uid, CardName: "Platinum",
		CreditLimit: 200000, CurrentBalance: 34000, DueDate: "2026-09-12",
	})
	require.NoError(t, err)

	loans, err := s.ListLoans(uid)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.InDelta(t, 1800000, loans[0].RemainingBalance, 0.001)

	cards, err := s.ListCreditCards(uid)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Platinum", cards[0].CardName)
}

func TestInsightCacheTTL(t *testing.T) {
	s := openTestStore(t)
	uid := seedUser(t, s)

	type breakdown struct {
		Total float64 `json:"total"`
	}

	require.NoError(t, s.SaveInsight(uid, "spending_breakdown", breakdown{Total: 42}, time.Hour))

	raw, err := s.CachedInsight(uid, "spending_breakdown")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":42}`, string(raw))

	// Expired entries are invisible.
	require.NoError(t, s.SaveInsight(uid, "forecast", breakdown{Total: 1}, -time.Minute))
	_, err = s.CachedInsight(uid, "forecast")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.PurgeExpiredInsights()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMigrationsIdempotent(t *testing.T) {
	s := openTestStore(t)

	// Open already ran migrations once; a second run must be a no-op.
	require.NoError(t, RunMigrations(s.DB()))
}
