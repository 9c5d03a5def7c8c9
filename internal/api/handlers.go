package api

import (
	"net/http"

	"go.uber.org/zap"

	"authchat/internal/auth"
	"authchat/internal/chat"
	"authchat/internal/errutil"
	"authchat/internal/logging"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(WelcomeText))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			logging.FromContext(r.Context(), s.logger).Warn("health check failed", zap.Error(err))
			writeJSONError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": auth.MsgUserCreated,
		"token":   res.Token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":  res.Token,
		"userId": res.UserID,
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": auth.MsgResetLinkSent})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": auth.MsgPasswordResetSuccess})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, msgMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userId": userID})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.chat.Reply(r.Context(), req.Message)
	if err != nil {
		if errutil.Code(err) == errutil.CodeValidation {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		errutil.LogError(logging.FromContext(r.Context(), s.logger), "chat reply failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"reply": chat.FallbackReply})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
