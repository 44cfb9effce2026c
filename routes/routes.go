package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cybermouflons/CTFNote/feed"
	"github.com/cybermouflons/CTFNote/handlers"
	"github.com/cybermouflons/CTFNote/middleware"
	"github.com/cybermouflons/CTFNote/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	CTF        *handlers.CTFHandler
	Task       *handlers.TaskHandler
	Invitation *handlers.InvitationHandler
	Profile    *handlers.ProfileHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator, hub *feed.Hub) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/login", h.Auth.LoginHandler)
	router.Post("/auth/register", h.Auth.RegisterHandler)

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(models.RoleAdmin))

		r.Post("/auth/registration-tokens", h.Auth.CreateRegistrationTokenHandler)
		r.Put("/profiles/{profileID}/role", h.Profile.UpdateRoleHandler)
	})

	router.Route("/ctfs", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/", h.CTF.ListHandler)
		r.Get("/{ctfID}", h.CTF.GetByIDHandler)
		r.Get("/{ctfID}/tasks", h.Task.ListHandler)
		r.Get("/{ctfID}/secrets", h.CTF.GetSecretsHandler)
		r.Get("/{ctfID}/invitations", h.Invitation.ListHandler)

		r.Post("/{ctfID}/tasks", h.Task.CreateHandler)
		r.Post("/{ctfID}/tasks/import", h.Task.ImportHandler)

		// Управление соревнованиями доступно менеджерам и админам.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authorize(models.RoleManager, models.RoleAdmin))

			r.Post("/", h.CTF.CreateHandler)
			r.Put("/{ctfID}", h.CTF.UpdateHandler)
			r.Delete("/{ctfID}", h.CTF.DeleteHandler)
			r.Post("/{ctfID}/logo", h.CTF.UploadLogoHandler)
			r.Put("/{ctfID}/secrets", h.CTF.UpsertSecretsHandler)
			r.Post("/{ctfID}/invitations", h.Invitation.InviteHandler)
			r.Delete("/{ctfID}/invitations/{profileID}", h.Invitation.UninviteHandler)
		})
	})

	router.Route("/tasks", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/{taskID}", h.Task.GetByIDHandler)
		r.Patch("/{taskID}", h.Task.UpdateHandler)
		r.Delete("/{taskID}", h.Task.DeleteHandler)
		r.Post("/{taskID}/flag", h.Task.SubmitFlagHandler)
		r.Post("/{taskID}/tags", h.Task.AddTagsHandler)
		r.Post("/{taskID}/work", h.Task.StartWorkingHandler)
		r.Delete("/{taskID}/work", h.Task.StopWorkingHandler)
		r.Get("/{taskID}/workers", h.Task.ListWorkersHandler)
	})

	router.Route("/profiles", func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Get("/me", h.Profile.MeHandler)
		r.Get("/me/ctfs", h.Profile.AccessibleCTFsHandler)
		r.Put("/me/discord", h.Profile.LinkDiscordHandler)
		r.Delete("/me/discord", h.Profile.ResetDiscordHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/ws/ctfs/{ctfID}", func(w http.ResponseWriter, r *http.Request) {
			handlers.ServeFeed(hub, w, r)
		})
	})

	return router
}
