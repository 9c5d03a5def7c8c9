package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"authchat/internal/errutil"
	"authchat/internal/logging"
)

const (
	msgInvalidPayload = "Invalid request payload"
	msgInternalError  = "Internal server error"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes an error response in JSON.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON request body into v. It answers the request itself and
// returns false when the body is malformed.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return false
	}
	return true
}

// statusFor maps an error code to the HTTP status returned to the client.
func statusFor(code string) int {
	switch code {
	case errutil.CodeValidation, errutil.CodeConflict, errutil.CodeInvalidResetToken:
		return http.StatusBadRequest
	case errutil.CodeInvalidCredentials, errutil.CodeInvalidAuthToken:
		return http.StatusUnauthorized
	case errutil.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the public message of err, or logs err and
// answers with a generic 500 when its message must not leave the server.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errutil.IsPublic(err) {
		writeJSONError(w, statusFor(errutil.Code(err)), err.Error())
		return
	}
	logger := logging.FromContext(r.Context(), s.logger)
	errutil.LogError(logger, "request failed", err, zap.String("path", r.URL.Path))
	writeJSONError(w, http.StatusInternalServerError, msgInternalError)
}
