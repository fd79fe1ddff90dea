package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gradeflow/gradeflow-api/internal/api"
	apiMiddleware "github.com/gradeflow/gradeflow-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	// Create API handlers using the application's services
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	sheetHandler := api.NewSheetHandler(
		app.ingestionService,
		app.queryService,
		app.artifactStore,
		app.config.Ingestion.MaxUploadBytes,
	)
	analyticsHandler := api.NewAnalyticsHandler(app.queryService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		// All endpoints require an authenticated owner; identity is issued
		// by the external provider and only verified here.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Sheet endpoints
			r.Post("/sheets", sheetHandler.SubmitSheet)
			r.Get("/sheets", sheetHandler.ListSheets)
			r.Get("/sheets/{id}", sheetHandler.GetSheet)
			r.Delete("/sheets/{id}", sheetHandler.WithdrawSheet)

			// Analytics endpoint
			r.Get("/analytics", analyticsHandler.GetAnalytics)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
