package api

import (
	"net/http"

	"github.com/gradeflow/gradeflow-api/internal/api/shared"
	"github.com/gradeflow/gradeflow-api/internal/service"
)

// AnalyticsHandler handles analytics-related HTTP requests
type AnalyticsHandler struct {
	queryService service.QueryService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(queryService service.QueryService) *AnalyticsHandler {
	return &AnalyticsHandler{
		queryService: queryService,
	}
}

// GetAnalytics handles GET /api/analytics requests. An owner with no
// completed sheets receives a zero-valued snapshot with 200 OK.
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	snapshot, err := h.queryService.GetAnalytics(r.Context(), ownerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snapshot))
}
