package http

import (
	"net/http"

	"github.com/utafrali/fitvibe/internal/domain"
	"github.com/utafrali/fitvibe/pkg/middleware"
)

// viewerFrom returns the signed-in user of r, or an anonymous viewer.
func viewerFrom(r *http.Request) domain.Viewer {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		return domain.Viewer{}
	}
	return domain.Viewer{ID: v.UserID, Name: v.Name, Avatar: v.Avatar, Role: v.Role}
}
