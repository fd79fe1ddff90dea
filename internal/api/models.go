package api

import (
	"time"

	"github.com/gradeflow/gradeflow-api/internal/domain"
	"github.com/gradeflow/gradeflow-api/internal/service"
)

// SheetResponse represents the response data for an answer sheet
type SheetResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// ResultResponse represents the grading result data for a completed sheet
type ResultResponse struct {
	Score         int       `json:"score"`
	TotalScore    int       `json:"total_score"`
	Percentage    float64   `json:"percentage"`
	Feedback      string    `json:"feedback,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SheetDetailResponse represents a sheet together with its result, if any
type SheetDetailResponse struct {
	SheetResponse
	Result      *ResultResponse `json:"result,omitempty"`
	ArtifactURL string          `json:"artifact_url,omitempty"`
}

// SheetListResponse wraps the dashboard listing
type SheetListResponse struct {
	Sheets []SheetResponse `json:"sheets"`
}

// AnalyticsResponse represents the per-owner aggregate snapshot
type AnalyticsResponse struct {
	TotalSheetsProcessed   int        `json:"total_sheets_processed"`
	AverageScore           float64    `json:"average_score"`
	TotalProcessingSeconds float64    `json:"total_processing_seconds"`
	LastUpdated            *time.Time `json:"last_updated,omitempty"`
}

// sheetToResponse converts a domain.AnswerSheet to a SheetResponse
func sheetToResponse(sheet *domain.AnswerSheet) SheetResponse {
	return SheetResponse{
		ID:            sheet.ID.String(),
		Title:         sheet.Title,
		Status:        string(sheet.Status),
		FailureReason: sheet.FailureReason,
		UploadedAt:    sheet.UploadedAt,
		ProcessedAt:   sheet.ProcessedAt,
	}
}

// resultToResponse converts a domain.GradingResult to a ResultResponse
func resultToResponse(result *domain.GradingResult) *ResultResponse {
	return &ResultResponse{
		Score:         result.Score,
		TotalScore:    result.TotalScore,
		Percentage:    result.Percentage(),
		Feedback:      result.Feedback,
		ExtractedText: result.ExtractedText,
		CreatedAt:     result.CreatedAt,
	}
}

// detailToResponse converts a service.SheetDetail to a SheetDetailResponse
func detailToResponse(detail *service.SheetDetail, artifactURL string) SheetDetailResponse {
	resp := SheetDetailResponse{
		SheetResponse: sheetToResponse(detail.Sheet),
		ArtifactURL:   artifactURL,
	}
	if detail.Result != nil {
		resp.Result = resultToResponse(detail.Result)
	}
	return resp
}

// snapshotToResponse converts a domain.AnalyticsSnapshot to an AnalyticsResponse.
// A zero snapshot has no meaningful update time, so LastUpdated is omitted.
func snapshotToResponse(snapshot *domain.AnalyticsSnapshot) AnalyticsResponse {
	resp := AnalyticsResponse{
		TotalSheetsProcessed:   snapshot.TotalSheetsProcessed,
		AverageScore:           snapshot.AverageScore,
		TotalProcessingSeconds: snapshot.TotalProcessingSeconds,
	}
	if snapshot.TotalSheetsProcessed > 0 {
		lastUpdated := snapshot.LastUpdated
		resp.LastUpdated = &lastUpdated
	}
	return resp
}
