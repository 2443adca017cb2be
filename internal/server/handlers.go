package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"finguard/internal/logging"
	"finguard/internal/store"
)

// userIDParam reads and validates the user_id query parameter shared by
// the REST endpoints.
func (s *Server) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "valid user_id is required", http.StatusBadRequest)
		return 0, false
	}
	return id, s.checkUser(w, id)
}

// checkUser verifies a user id from either a query parameter or a request
// body. Writes the error response on failure.
func (s *Server) checkUser(w http.ResponseWriter, id int64) bool {
	if id <= 0 {
		http.Error(w, "valid user_id is required", http.StatusBadRequest)
		return false
	}
	ok, err := s.store.UserExists(id)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return false
	}
	if !ok {
		http.Error(w, "user not found", http.StatusNotFound)
		return false
	}
	return true
}

// writeStoreError maps store failures onto HTTP statuses: missing rows are
// 404, everything else surfaces as a 400 with the store's message.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	logging.Server("Store write failed: %v", err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txns, err := s.store.ListTransactions(userID, store.TxnFilter{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
		Limit:     limit,
	})
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"count": len(txns), "transactions": txns})
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBudgets(w, r)
	case http.MethodPost:
		s.setBudget(w, r)
	case http.MethodDelete:
		s.removeBudget(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = store.CurrentMonth()
	}
	budgets, err := s.store.ListBudgets(userID, month)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"month": month, "budgets": budgets})
}

type budgetRequest struct {
	UserID      int64   `json:"user_id"`
	Category    string  `json:"category"`
	AmountLimit float64 `json:"amount_limit"`
	Month       string  `json:"month,omitempty"`
}

func (s *Server) setBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !s.checkUser(w, req.UserID) {
		return
	}
	if req.Category == "" {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}

	b, err := s.store.UpsertBudget(req.UserID, req.Category, req.AmountLimit, req.Month)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logging.API("Budget set for user %d: %s %v (%s)", req.UserID, b.CategoryName, b.AmountLimit, b.Month)
	writeJSON(w, map[string]any{"budget": b, "success": true})
}

func (s *Server) removeBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !s.checkUser(w, req.UserID) {
		return
	}
	if req.Category == "" {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteBudget(req.UserID, req.Category, req.Month); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listGoals(w, r)
	case http.MethodPost:
		s.createGoal(w, r)
	case http.MethodDelete:
		s.removeGoal(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	goals, err := s.store.ListGoals(userID)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"goals": goals})
}

type goalRequest struct {
	UserID       int64   `json:"user_id"`
	GoalID       int64   `json:"goal_id,omitempty"`
	Name         string  `json:"name,omitempty"`
	TargetAmount float64 `json:"target_amount,omitempty"`
	TargetDate   string  `json:"target_date,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !s.checkUser(w, req.UserID) {
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	id, err := s.store.CreateGoal(req.UserID, req.Name, req.TargetAmount, req.TargetDate)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	goal, err := s.store.GoalByID(req.UserID, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	logging.API("Goal created for user %d: %s (target %v)", req.UserID, req.Name, req.TargetAmount)
	writeJSON(w, map[string]any{"goal": goal, "success": true})
}

func (s *Server) removeGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !s.checkUser(w, req.UserID) {
		return
	}

	if err := s.store.DeleteGoal(req.UserID, req.GoalID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// handleGoalAddFunds applies a manual contribution to a goal's progress.
func (s *Server) handleGoalAddFunds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req goalRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !s.checkUser(w, req.UserID) {
		return
	}

	goal, err := s.store.AddToGoal(req.UserID, req.GoalID, req.Amount)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, map[string]any{"goal": goal, "success": true})
}

type manualTransactionRequest struct {
	UserID    int64   `json:"user_id"`
	Type      string  `json:"type"` // DEBIT or CREDIT
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Narration string  `json:"narration,omitempty"`
	Date      string  `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// handleManualTransaction records a transaction directly, bypassing the
// chat flow. The running balance is updated like any other transaction.
func (s *Server) handleManualTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req manualTransactionRequest
	if !readJSON(w, r, &req) {
		return
	}
	if !s.checkUser(w, req.UserID) {
		return
	}

	id, err := s.store.AddTransaction(store.Transaction{
		UserID:    req.UserID,
		Category:  req.Category,
		Date:      req.Date,
		Type:      req.Type,
		Amount:    req.Amount,
		Narration: req.Narration,
		Source:    store.SourceManual,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	balance, err := s.store.Balance(req.UserID)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	logging.API("Manual %s of %v recorded for user %d", req.Type, req.Amount, req.UserID)
	writeJSON(w, map[string]any{
		"transaction_id": id,
		"new_balance":    balance,
		"success":        true,
	})
}

func (s *Server) handleLiabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	loans, err := s.store.ListLoans(userID)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	cards, err := s.store.ListCreditCards(userID)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"loans": loans, "credit_cards": cards})
}

// handleSnapshot returns balance plus 30-day cash flow for dashboards.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := s.userIDParam(w, r)
	if !ok {
		return
	}

	balance, err := s.store.Balance(userID)
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}

	start := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	txns, err := s.store.ListTransactions(userID, store.TxnFilter{StartDate: start})
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	var income, expenses float64
	for _, t := range txns {
		switch t.Type {
		case store.TxnCredit:
			income += t.Amount
		case store.TxnDebit:
			expenses += t.Amount
		}
	}

	writeJSON(w, map[string]any{
		"balance": balance,
		"period":  "last_30_days",
		"cash_flow": map[string]any{
			"total_income":   income,
			"total_expenses": expenses,
			"net_flow":       income - expenses,
		},
		"transaction_count": len(txns),
	})
}
