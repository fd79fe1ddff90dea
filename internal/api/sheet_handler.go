package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gradeflow/gradeflow-api/internal/api/shared"
	"github.com/gradeflow/gradeflow-api/internal/artifact"
	"github.com/gradeflow/gradeflow-api/internal/service"
)

// multipartMemoryLimit bounds how much of the upload is buffered in memory
// while parsing; the remainder spills to temporary files.
const multipartMemoryLimit = 8 << 20 // 8 MiB

// SheetHandler handles answer-sheet-related HTTP requests
type SheetHandler struct {
	ingestionService service.IngestionService
	queryService     service.QueryService
	artifacts        artifact.Store
	maxUploadBytes   int64
}

// NewSheetHandler creates a new SheetHandler
func NewSheetHandler(
	ingestionService service.IngestionService,
	queryService service.QueryService,
	artifacts artifact.Store,
	maxUploadBytes int64,
) *SheetHandler {
	return &SheetHandler{
		ingestionService: ingestionService,
		queryService:     queryService,
		artifacts:        artifacts,
		maxUploadBytes:   maxUploadBytes,
	}
}

// SubmitSheet handles POST /api/sheets requests. The body is multipart form
// data with a "title" field and a "file" field carrying the scanned sheet.
func (h *SheetHandler) SubmitSheet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	// Reject oversized bodies before buffering them. A little headroom is
	// left for the non-file form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form data")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("failed to clean up multipart form temp files", "error", err)
		}
	}()

	title := r.FormValue("title")

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Failed to read file upload", err)
		return
	}

	contentType := header.Header.Get("Content-Type")

	sheet, err := h.ingestionService.Submit(r.Context(), ownerID, title, data, contentType)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// 202 Accepted: grading happens asynchronously.
	shared.RespondWithJSON(w, r, http.StatusAccepted, sheetToResponse(sheet))
}

// ListSheets handles GET /api/sheets requests. An optional limit query
// parameter caps the page size; the query service applies its default when
// it is absent or invalid.
func (h *SheetHandler) ListSheets(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	sheets, err := h.queryService.ListSheets(r.Context(), ownerID, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := SheetListResponse{Sheets: make([]SheetResponse, 0, len(sheets))}
	for _, sheet := range sheets {
		response.Sheets = append(response.Sheets, sheetToResponse(sheet))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// GetSheet handles GET /api/sheets/{id} requests
func (h *SheetHandler) GetSheet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	sheetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	detail, err := h.queryService.GetSheetDetail(r.Context(), ownerID, sheetID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// The artifact link is best effort; the detail view is still useful
	// when storage is briefly unavailable.
	artifactURL, err := h.artifacts.PublicURL(r.Context(), detail.Sheet.ArtifactRef)
	if err != nil {
		slog.Warn("failed to presign artifact URL",
			"error", err,
			"sheet_id", sheetID)
		artifactURL = ""
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailToResponse(detail, artifactURL))
}

// WithdrawSheet handles DELETE /api/sheets/{id} requests
func (h *SheetHandler) WithdrawSheet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	sheetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	if err := h.ingestionService.Withdraw(r.Context(), ownerID, sheetID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownerFromRequest extracts the authenticated owner ID set by the auth
// middleware, writing a 401 response if it is absent.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, ok := r.Context().Value(shared.OwnerIDContextKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return uuid.Nil, false
	}
	return ownerID, true
}
