// Package server is the HTTP boundary. It accepts chat messages, forwards
// them to the orchestration engine, and exposes REST endpoints over the
// store for dashboards and direct record management.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"finguard/internal/logging"
	"finguard/internal/orchestrator"
	"finguard/internal/store"
)

// QueryProcessor is the orchestration engine as seen by the boundary.
type QueryProcessor interface {
	Process(ctx context.Context, userID int64, query string) (*orchestrator.Result, error)
}

// apologyMessage hides internal failures from the user; the cause is
// logged server-side.
const apologyMessage = "Sorry, I ran into a problem handling that. Please try again in a moment."

// Server serves the chat and REST endpoints.
type Server struct {
	store     *store.Store
	processor QueryProcessor
	listener  net.Listener
	server    *http.Server
}

// New creates a server bound to addr.
func New(addr string, st *store.Store, processor QueryProcessor) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding listener: %w", err)
	}

	s := &Server{store: st, processor: processor, listener: ln}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/chat/message", s.handleChatMessage)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/manual", s.handleManualTransaction)
	mux.HandleFunc("/api/budgets", s.handleBudgets)
	mux.HandleFunc("/api/goals", s.handleGoals)
	mux.HandleFunc("/api/goals/add-funds", s.handleGoalAddFunds)
	mux.HandleFunc("/api/liabilities", s.handleLiabilities)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Addr returns the bound address, useful when addr was ":0".
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves until Shutdown. Call in a goroutine.
func (s *Server) Start() error {
	logging.Server("Listening on %s", s.Addr())
	err := s.server.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Server("Shutting down")
	return s.server.Shutdown(ctx)
}

type chatRequest struct {
	UserID      int64  `json:"user_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Message     string `json:"message"`
}

type chatResponse struct {
	Response   string   `json:"response"`
	AgentsUsed []string `json:"agents_used"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

// handleChatMessage is the main entry point: resolve the user, run the
// orchestrator, answer. Orchestration failures become a generic apology
// with the cause logged.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	userID, err := s.resolveUser(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logging.API("Chat from user %d: %.80q", userID, req.Message)
	result, err := s.processor.Process(r.Context(), userID, req.Message)
	if err != nil {
		logging.API("Orchestration failed for user %d: %v", userID, err)
		writeJSON(w, chatResponse{
			Response: apologyMessage,
			Success:  false,
			Error:    "processing_failed",
		})
		return
	}

	agents := make([]string, len(result.AgentsUsed))
	for i, c := range result.AgentsUsed {
		agents[i] = string(c)
	}
	writeJSON(w, chatResponse{
		Response:   result.Response,
		AgentsUsed: agents,
		Success:    true,
	})
}

// resolveUser maps the request to a user id. A phone number creates the
// user on first contact; an explicit id must already exist.
func (s *Server) resolveUser(req chatRequest) (int64, error) {
	if req.PhoneNumber != "" {
		return s.store.GetOrCreateUser(req.PhoneNumber)
	}
	if req.UserID > 0 {
		ok, err := s.store.UserExists(req.UserID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("user %d not found", req.UserID)
		}
		return req.UserID, nil
	}
	return 0, fmt.Errorf("user_id or phone_number is required")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encoding response: %v", err), http.StatusInternalServerError)
	}
}
