package api

import (
	"errors"
	"net/http"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/httputil"
)

// requestReset handles POST /auth/request-reset-password. The response
// never carries the code; it reaches the requester only through the
// delivery channel.
func (s *Server) requestReset(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.resetFlow.Request(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingIdentifier),
			errors.Is(err, auth.ErrAmbiguousIdentifier),
			errors.Is(err, auth.ErrInvalidPhone),
			errors.Is(err, auth.ErrUnknownIdentifier):
			s.countResetRequest("rejected")
			httputil.WriteValidationError(w, err.Error())
		default:
			s.countResetRequest("error")
			s.logger.WithError(err).Error("reset request failed")
			httputil.WriteInternalError(w, errors.New("could not process reset request"))
		}
		return
	}

	s.countResetRequest("success")
	httputil.WriteSuccess(w, map[string]string{"details": "Password reset requested."})
}

// validateReset handles GET /auth/reset-password?otp=<code>. It probes
// code validity without consuming it.
func (s *Server) validateReset(w http.ResponseWriter, r *http.Request) {
	code := httputil.ParseQueryString(r, "otp", "")
	if code == "" {
		httputil.WriteSuccess(w, map[string]bool{"valid": false})
		return
	}

	valid, err := s.resetFlow.Validate(r.Context(), code)
	if err != nil {
		s.logger.WithError(err).Error("reset validation failed")
		httputil.WriteInternalError(w, errors.New("could not validate reset code"))
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"valid": valid})
}

type consumeResetRequest struct {
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// consumeReset handles POST /auth/reset-password. Validation failures
// surface as 400s; a failure of the atomic consume itself is a hard 500,
// never silently swallowed.
func (s *Server) consumeReset(w http.ResponseWriter, r *http.Request) {
	var req consumeResetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := s.resetFlow.Consume(r.Context(), req.OTP, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSecretMismatch),
			errors.Is(err, auth.ErrUnknownCode),
			errors.Is(err, auth.ErrRequestExpired),
			errors.Is(err, auth.ErrUnknownIdentifier):
			s.countResetConsume("rejected")
			httputil.WriteValidationError(w, err.Error())
		default:
			s.countResetConsume("error")
			s.logger.WithError(err).Error("reset consumption failed")
			httputil.WriteInternalError(w, errors.New("could not reset password"))
		}
		return
	}

	s.countResetConsume("success")
	httputil.WriteSuccess(w, map[string]string{"details": "Password reset successfully"})
}

func (s *Server) countResetRequest(result string) {
	if s.metrics != nil {
		s.metrics.ResetRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Server) countResetConsume(result string) {
	if s.metrics != nil {
		s.metrics.ResetConsumesTotal.WithLabelValues(result).Inc()
	}
}
