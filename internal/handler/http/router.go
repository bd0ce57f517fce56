package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/jwt"
)

func NewRouter(JWTService jwt.Service, batchHandler BatchHandler, policyHandler PolicyHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-batch"),
		slog.String("version", "v1.0.0"),
		slog.String("env", "development"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/payroll-batches", func(r chi.Router) {
				r.Get("/", batchHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", batchHandler.Get)
					r.Get("/payrolls", batchHandler.ListPayrolls)
					r.Get("/snapshot", batchHandler.GetSnapshot)
				})

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Post("/", batchHandler.Create)
					r.Post("/{id}/calculate", batchHandler.Calculate)
					r.Post("/{id}/confirm", batchHandler.Confirm)
					r.Post("/{id}/pay", batchHandler.Pay)
				})
			})

			r.Route("/payroll-policies", func(r chi.Router) {
				r.Get("/", policyHandler.List)
				r.Get("/{id}", policyHandler.Get)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Post("/", policyHandler.Create)

					r.Route("/{id}", func(r chi.Router) {
						r.Put("/", policyHandler.Update)
						r.Delete("/", policyHandler.Delete)
						r.Post("/activate", policyHandler.Activate)
						r.Post("/expire", policyHandler.Expire)
						r.Post("/copy", policyHandler.Copy)

						r.Route("/items", func(r chi.Router) {
							r.Post("/", policyHandler.CreateItem)
							r.Put("/{itemId}", policyHandler.UpdateItem)
							r.Delete("/{itemId}", policyHandler.DeleteItem)
							r.Put("/{itemId}/targets", policyHandler.ReplaceItemTargets)
						})
					})
				})
			})
		})
	})
	return r
}
