package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"minichat/internal/app"
	"minichat/internal/identity"
	"minichat/internal/ratelimit"
	"minichat/internal/util"
	"minichat/pkg/domain"
)

// Config wires required dependencies for the HTTP server. AskLimiter is
// optional; when nil, askModel runs unthrottled.
type Config struct {
	App            *app.App
	Auth           *identity.Authenticator
	AskLimiter     *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
}

// Server exposes the chat RPC procedures over HTTP. Every procedure is a
// single request/response call; clients compose them.
type Server struct {
	app     *app.App
	auth    *identity.Authenticator
	limiter *ratelimit.FixedWindowLimiter
	trusted *util.TrustedProxies
	mux     *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:     cfg.App,
		auth:    cfg.Auth,
		limiter: cfg.AskLimiter,
		trusted: cfg.TrustedProxies,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	handler := util.WithRequestLog("server", s.trusted, s.mux)
	handler = util.WithRequestID(handler)
	return util.WithSecurityHeaders(util.WithCORS(handler))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/me", s.withIdentity(s.handleMe))

	s.mux.Handle("/rpc/askModel", s.withIdentity(s.handleAskModel))
	s.mux.Handle("/rpc/createConversation", s.withIdentity(s.handleCreateConversation))
	s.mux.Handle("/rpc/getConversations", s.withIdentity(s.handleGetConversations))
	s.mux.Handle("/rpc/insertMessage", s.withIdentity(s.handleInsertMessage))
	s.mux.Handle("/rpc/updateConversation", s.withIdentity(s.handleUpdateConversation))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityHandler func(http.ResponseWriter, *http.Request, domain.Identity)

func (s *Server) withIdentity(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			writeError(w, http.StatusInternalServerError, "authenticator not configured")
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		who, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, who)
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, who domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, who)
}

func (s *Server) handleAskModel(w http.ResponseWriter, r *http.Request, who domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.limiter != nil && !s.limiter.Allow(r.Context(), who.Subject) {
		writeError(w, http.StatusTooManyRequests, "model call quota exceeded, try again shortly")
		return
	}
	var req askModelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	text, err := s.app.AskModel(r.Context(), req.Prompt)
	if err != nil {
		writeProcedureError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askModelResponse{Text: text})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request, who domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req createConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !ownUser(w, who, req.UserID) {
		return
	}
	conv, err := s.app.CreateConversation(r.Context(), req.UserID, req.Title)
	if err != nil {
		writeProcedureError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleGetConversations(w http.ResponseWriter, r *http.Request, who domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if !ownUser(w, who, userID) {
		return
	}
	items, err := s.app.GetConversations(r.Context(), userID)
	if err != nil {
		writeProcedureError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleInsertMessage(w http.ResponseWriter, r *http.Request, who domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req app.InsertMessageInput
	if !decodeBody(w, r, &req) {
		return
	}
	if !ownUser(w, who, req.UserID) {
		return
	}
	msg, err := s.app.InsertMessage(r.Context(), req)
	if err != nil {
		writeProcedureError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req updateConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	conv, err := s.app.UpdateConversation(r.Context(), req.ConversationID, req.Title)
	if err != nil {
		writeProcedureError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type askModelRequest struct {
	Prompt string `json:"prompt"`
}

type askModelResponse struct {
	Text string `json:"text"`
}

type createConversationRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

type updateConversationRequest struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// Procedures act on explicit user IDs, but only ever on the caller's own.
func ownUser(w http.ResponseWriter, who domain.Identity, userID string) bool {
	if strings.TrimSpace(userID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return false
	}
	if userID != who.Subject {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func writeProcedureError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *app.ValidationError
		nerr *app.NotFoundError
		merr *app.ModelError
		serr *app.StoreError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nerr):
		status = http.StatusNotFound
	case errors.As(err, &merr):
		status = http.StatusBadGateway
	case errors.As(err, &serr):
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		util.LoggerFromContext(r.Context()).Error("procedure failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
