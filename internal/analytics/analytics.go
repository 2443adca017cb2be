// Package analytics computes spending statistics over the transaction
// history: category breakdowns, spend anomaly detection and a simple
// cash-flow projection. Results are cached in the store with a TTL and
// concurrent computations of the same insight are collapsed.
package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"finguard/internal/logging"
	"finguard/internal/store"
)

// Insight statuses.
const (
	StatusSuccess          = "success"
	StatusNoData           = "no_data"
	StatusInsufficientData = "insufficient_data"
)

// Insight is a single observation attached to an analytics result.
type Insight struct {
	Type     string         `json:"type"` // trend, anomaly, alert, recommendation
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SpendingCategory is one slice of the category breakdown.
type SpendingCategory struct {
	Category         string  `json:"category"`
	Amount           float64 `json:"amount"`
	Percentage       float64 `json:"percentage"`
	TransactionCount int     `json:"transaction_count"`
}

// SpendingAnalysis is the category breakdown result.
type SpendingAnalysis struct {
	Status     string             `json:"status"`
	TotalSpent float64            `json:"total_spent"`
	Period     string             `json:"period"`
	Categories []SpendingCategory `json:"categories"`
	Insights   []Insight          `json:"insights,omitempty"`
}

// AnomalyTransaction is one flagged transaction.
type AnomalyTransaction struct {
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Narration string  `json:"narration"`
}

// AnomalyReport lists transactions above the spend threshold.
type AnomalyReport struct {
	Status            string               `json:"status"`
	AnomaliesDetected int                  `json:"anomalies_detected"`
	Threshold         float64              `json:"threshold,omitempty"`
	Anomalies         []AnomalyTransaction `json:"anomalies"`
	Insights          []Insight            `json:"insights,omitempty"`
}

// CashFlowForecast projects income and expenses 30 days forward from
// daily averages.
type CashFlowForecast struct {
	Status            string  `json:"status"`
	PeriodAnalyzed    string  `json:"period_analyzed,omitempty"`
	TotalIncome       float64 `json:"total_income"`
	TotalExpenses     float64 `json:"total_expenses"`
	DailyAvgIncome    float64 `json:"daily_avg_income"`
	DailyAvgExpense   float64 `json:"daily_avg_expense"`
	Projected30Income float64 `json:"projected_30day_income"`
	Projected30Spend  float64 `json:"projected_30day_expenses"`
	ProjectedNet      float64 `json:"projected_net"`
	Trend             string  `json:"trend,omitempty"`
	Message           string  `json:"message,omitempty"`
}

// Engine computes insights over the store's transaction history.
type Engine struct {
	store    *store.Store
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewEngine creates an analytics engine. A zero cacheTTL disables caching.
func NewEngine(s *store.Store, cacheTTL time.Duration) *Engine {
	return &Engine{store: s, cacheTTL: cacheTTL}
}

// cached runs compute under singleflight, serving from and refreshing the
// store's insight cache when a TTL is configured.
func (e *Engine) cached(userID int64, key string, out any, compute func() (any, error)) error {
	if e.cacheTTL > 0 {
		if raw, err := e.store.CachedInsight(userID, key); err == nil {
			logging.StoreDebug("Insight cache hit: user=%d type=%s", userID, key)
			return json.Unmarshal(raw, out)
		}
	}

	flightKey := fmt.Sprintf("%d:%s", userID, key)
	v, err, _ := e.group.Do(flightKey, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if e.cacheTTL > 0 {
			if err := e.store.SaveInsight(userID, key, result, e.cacheTTL); err != nil {
				logging.Store("Failed to cache insight %s: %v", key, err)
			}
		}
		return result, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON so cache hits and fresh computes produce
	// identical values.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// SpendingBreakdown analyzes debits over the last days, optionally limited
// to one category.
func (e *Engine) SpendingBreakdown(userID int64, days int, category string) (SpendingAnalysis, error) {
	if days <= 0 {
		days = 30
	}
	period := fmt.Sprintf("last_%d_days", days)
	key := fmt.Sprintf("spending_breakdown:%d:%s", days, category)

	var result SpendingAnalysis
	err := e.cached(userID, key, &result, func() (any, error) {
		debits, err := e.recentDebits(userID, days)
		if err != nil {
			return nil, err
		}
		if category != "" {
			filtered := debits[:0]
			for _, t := range debits {
				if strings.EqualFold(t.Category, category) {
					filtered = append(filtered, t)
				}
			}
			debits = filtered
		}

		if len(debits) == 0 {
			return SpendingAnalysis{
				Status: StatusNoData,
				Period: period,
				Insights: []Insight{{
					Type: "alert", Severity: "low",
					Message: "No spending data found for this period.",
				}},
			}, nil
		}

		amounts := map[string]float64{}
		counts := map[string]int{}
		total := 0.0
		for _, t := range debits {
			cat := t.Category
			if cat == "" {
				cat = "Uncategorized"
			}
			amounts[cat] += t.Amount
			counts[cat]++
			total += t.Amount
		}

		categories := make([]SpendingCategory, 0, len(amounts))
		for cat, amount := range amounts {
			categories = append(categories, SpendingCategory{
				Category:         cat,
				Amount:           round2(amount),
				Percentage:       round2(amount / total * 100),
				TransactionCount: counts[cat],
			})
		}
		sort.Slice(categories, func(i, j int) bool {
			return categories[i].Amount > categories[j].Amount
		})

		analysis := SpendingAnalysis{
			Status:     StatusSuccess,
			TotalSpent: round2(total),
			Period:     period,
			Categories: categories,
		}
		if top := categories[0]; top.Percentage > 40 {
			analysis.Insights = append(analysis.Insights, Insight{
				Type:     "trend",
				Severity: "medium",
				Message:  fmt.Sprintf("High spending in %s (%.2f%% of total).", top.Category, top.Percentage),
				Metadata: map[string]any{"category": top.Category, "percentage": top.Percentage},
			})
		}
		return analysis, nil
	})
	return result, err
}

// DetectAnomalies flags debits above mean + 2 standard deviations. At least
// five debits are required for the statistics to mean anything.
func (e *Engine) DetectAnomalies(userID int64, days int) (AnomalyReport, error) {
	if days <= 0 {
		days = 30
	}
	key := fmt.Sprintf("anomalies:%d", days)

	var result AnomalyReport
	err := e.cached(userID, key, &result, func() (any, error) {
		debits, err := e.recentDebits(userID, days)
		if err != nil {
			return nil, err
		}
		if len(debits) == 0 {
			return AnomalyReport{
				Status:    StatusNoData,
				Anomalies: []AnomalyTransaction{},
				Insights: []Insight{{
					Type: "alert", Severity: "low",
					Message: "No transaction data found for anomaly detection in this period.",
				}},
			}, nil
		}
		if len(debits) < 5 {
			return AnomalyReport{
				Status:    StatusInsufficientData,
				Anomalies: []AnomalyTransaction{},
			}, nil
		}

		mean, stdev := meanStdev(debits)
		threshold := mean + 2*stdev

		var flagged []AnomalyTransaction
		for _, t := range debits {
			if t.Amount > threshold {
				cat := t.Category
				if cat == "" {
					cat = "Uncategorized"
				}
				flagged = append(flagged, AnomalyTransaction{
					Date:      t.Date,
					Amount:    t.Amount,
					Category:  cat,
					Narration: t.Narration,
				})
			}
		}
		if flagged == nil {
			flagged = []AnomalyTransaction{}
		}

		report := AnomalyReport{
			Status:            StatusSuccess,
			AnomaliesDetected: len(flagged),
			Threshold:         round2(threshold),
			Anomalies:         flagged,
		}
		if len(flagged) > 0 {
			severity := "medium"
			if len(flagged) > 2 {
				severity = "high"
			}
			report.Insights = append(report.Insights, Insight{
				Type:     "anomaly",
				Severity: severity,
				Message:  fmt.Sprintf("Detected %d unusual transactions above ₹%d.", len(flagged), int(threshold)),
				Metadata: map[string]any{"threshold": threshold, "count": len(flagged)},
			})
		}
		return report, nil
	})
	return result, err
}

// ForecastCashFlow projects the next 30 days from daily averages over the
// analyzed window.
func (e *Engine) ForecastCashFlow(userID int64, days int) (CashFlowForecast, error) {
	if days <= 0 {
		days = 30
	}
	key := fmt.Sprintf("cash_flow:%d", days)

	var result CashFlowForecast
	err := e.cached(userID, key, &result, func() (any, error) {
		txns, err := e.recentTransactions(userID, days)
		if err != nil {
			return nil, err
		}
		if len(txns) == 0 {
			return CashFlowForecast{
				Status:  StatusNoData,
				Message: "No transaction data found.",
			}, nil
		}

		var totalDebits, totalCredits float64
		for _, t := range txns {
			switch t.Type {
			case store.TxnDebit:
				totalDebits += t.Amount
			case store.TxnCredit:
				totalCredits += t.Amount
			}
		}

		dailyExpense := totalDebits / float64(days)
		dailyIncome := totalCredits / float64(days)
		projExpense := dailyExpense * 30
		projIncome := dailyIncome * 30
		net := projIncome - projExpense

		trend := "negative"
		if net > 0 {
			trend = "positive"
		}
		return CashFlowForecast{
			Status:            StatusSuccess,
			PeriodAnalyzed:    fmt.Sprintf("last_%d_days", days),
			TotalIncome:       round2(totalCredits),
			TotalExpenses:     round2(totalDebits),
			DailyAvgIncome:    round2(dailyIncome),
			DailyAvgExpense:   round2(dailyExpense),
			Projected30Income: round2(projIncome),
			Projected30Spend:  round2(projExpense),
			ProjectedNet:      round2(net),
			Trend:             trend,
		}, nil
	})
	return result, err
}

func (e *Engine) recentTransactions(userID int64, days int) ([]store.Transaction, error) {
	start := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	return e.store.ListTransactions(userID, store.TxnFilter{StartDate: start})
}

func (e *Engine) recentDebits(userID int64, days int) ([]store.Transaction, error) {
	txns, err := e.recentTransactions(userID, days)
	if err != nil {
		return nil, err
	}
	debits := txns[:0]
	for _, t := range txns {
		if t.Type == store.TxnDebit && t.Amount > 0 {
			debits = append(debits, t)
		}
	}
	return debits, nil
}

func meanStdev(txns []store.Transaction) (mean, stdev float64) {
	n := float64(len(txns))
	for _, t := range txns {
		mean += t.Amount
	}
	mean /= n

	if len(txns) < 2 {
		return mean, 0
	}
	var sumSq float64
	for _, t := range txns {
		d := t.Amount - mean
		sumSq += d * d
	}
	// Sample standard deviation.
	return mean, math.Sqrt(sumSq / (n - 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

