package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminauthsvc "github.com/Envologia/unimatch-ethio/internal/services/adminauth"
	confsvc "github.com/Envologia/unimatch-ethio/internal/services/confessions"
	reportsvc "github.com/Envologia/unimatch-ethio/internal/services/reports"
	"github.com/Envologia/unimatch-ethio/internal/transport/http/handlers"
)

type Dependencies struct {
	AdminAuthService  *adminauthsvc.Service
	ConfessionService *confsvc.Service
	ReportService     *reportsvc.Service
	Logger            *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	adminAuthHandler := handlers.NewAdminAuthHandler(deps.AdminAuthService)
	confessionHandler := handlers.NewConfessionHandler(deps.ConfessionService)
	reportHandler := handlers.NewReportHandler(deps.ReportService)
	adminMW := AdminAuthMiddleware(deps.AdminAuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", adminAuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(adminMW)
			r.Get("/confessions/next", confessionHandler.Next)
			r.Get("/confessions/recent", confessionHandler.Recent)
			r.Post("/confessions/{id}/approve", confessionHandler.Approve)
			r.Post("/confessions/{id}/reject", confessionHandler.Reject)
			r.Get("/reports", reportHandler.ListPending)
			r.Post("/reports/{id}/resolve", reportHandler.Resolve)
		})
	})
}
