package api

import (
	"errors"
	"net/http"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/contextkeys"
	"github.com/theschoolhq/gatekeeper/pkg/httputil"
)

// loginResponse echoes the issued token together with the identity's
// public fields, matching what clients need to bootstrap a session.
type loginResponse struct {
	Token  string   `json:"token"`
	ID     int64    `json:"id"`
	Email  string   `json:"email,omitempty"`
	Phone  string   `json:"phone,omitempty"`
	Groups []string `json:"groups"`
}

// login handles POST /auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if !httputil.ParseJSONOrError(w, r, &creds) {
		return
	}

	identity, token, err := s.service.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.countLogin("failure")
			httputil.WriteValidationError(w, err.Error())
			return
		}
		var rejection *auth.HookRejectionError
		if errors.As(err, &rejection) {
			s.countLogin("rejected")
			httputil.WriteValidationError(w, err.Error())
			return
		}
		s.countLogin("error")
		s.logger.WithError(err).Error("login failed")
		httputil.WriteInternalError(w, errors.New("could not process login"))
		return
	}

	s.countLogin("success")
	httputil.WriteSuccess(w, loginResponse{
		Token:  token.Key,
		ID:     identity.ID,
		Email:  identity.Email,
		Phone:  identity.Phone,
		Groups: identity.Groups,
	})
}

// checkLogin handles GET /auth/check-login
func (s *Server) checkLogin(w http.ResponseWriter, r *http.Request) {
	identity := contextkeys.IdentityFrom(r.Context())
	if identity == nil {
		httputil.WriteSuccess(w, map[string]interface{}{"connected": false})
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"connected": true,
		"groups":    identity.Groups,
	})
}

// logout handles POST /auth/logout. It revokes exactly the token that
// authenticated this request; the identity's other sessions stay alive.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := contextkeys.TokenFrom(r.Context())
	if token == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := s.service.Logout(r.Context(), token.Key); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			// Already revoked by a concurrent logout.
			httputil.WriteNoContent(w)
			return
		}
		s.logger.WithError(err).Error("logout failed")
		httputil.WriteInternalError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.LogoutsTotal.Inc()
	}
	httputil.WriteNoContent(w)
}

func (s *Server) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}
