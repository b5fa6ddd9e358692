package api

import (
	"net/http"

	"github.com/theschoolhq/gatekeeper/pkg/httputil"
)

// listGroups handles GET /auth/groups. Read-only; group composition is
// managed elsewhere.
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("group listing failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, groups)
}
