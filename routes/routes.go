package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/vulca/torneos/docs"
	"github.com/vulca/torneos/handlers"
	"github.com/vulca/torneos/metrics"
	"github.com/vulca/torneos/middleware"
	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/urls"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Games         *handlers.GameHandler
	Tournaments   *handlers.TournamentHandler
	Registrations *handlers.RegistrationHandler
	Users         *handlers.UserHandler
	Dashboard     *handlers.DashboardHandler
	WebSocket     *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *slog.Logger
}

// bind регистрирует обработчик по имени маршрута: метод и путь берутся из urls.
func bind(r chi.Router, name string, h http.HandlerFunc) {
	route, err := urls.Lookup(name)
	if err != nil {
		panic(err)
	}
	r.Method(route.Method, route.Pattern, h)
}

func SetupRoutes(router *chi.Mux, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-HTTP-Method-Override"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.MethodOverride)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", metrics.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Публичные маршруты
	router.Group(func(r chi.Router) {
		bind(r, urls.AuthLogin, h.Auth.Login)
		bind(r, urls.AuthRegister, h.Auth.Register)
		bind(r, urls.GamesIndex, h.Games.ListGames)
		bind(r, urls.GamesShow, h.Games.GetGame)
		bind(r, urls.TournamentsIndex, h.Tournaments.ListTournaments)
		bind(r, urls.TournamentsShow, h.Tournaments.GetTournament)
		bind(r, urls.WSTournament, h.WebSocket.ServeWs)
	})

	// Любой вошедший пользователь
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))
		bind(r, urls.TournamentsRegister, h.Tournaments.Register)
	})

	// Админка
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))
		r.Use(middleware.RequireRole(models.RoleAdmin))

		bind(r, urls.GamesStore, h.Games.CreateGame)
		bind(r, urls.GamesUpdate, h.Games.UpdateGame)
		bind(r, urls.GamesDestroy, h.Games.DeleteGame)
		bind(r, urls.GamesImage, h.Games.UploadImage)

		bind(r, urls.TournamentsStore, h.Tournaments.CreateTournament)
		bind(r, urls.TournamentsUpdate, h.Tournaments.UpdateTournament)
		bind(r, urls.TournamentsDestroy, h.Tournaments.DeleteTournament)
		bind(r, urls.TournamentsImage, h.Tournaments.UploadImage)
		bind(r, urls.TournamentsStatus, h.Tournaments.UpdateStatus)

		bind(r, urls.RegistrationsIndex, h.Registrations.ListRegistrations)
		bind(r, urls.RegistrationsStore, h.Registrations.CreateRegistration)
		bind(r, urls.RegistrationsShow, h.Registrations.GetRegistration)
		bind(r, urls.RegistrationsUpdate, h.Registrations.UpdateRegistration)
		bind(r, urls.RegistrationsDestroy, h.Registrations.DeleteRegistration)
		bind(r, urls.RegistrationsPayment, h.Registrations.ChangePaymentStatus)

		bind(r, urls.UsersIndex, h.Users.ListUsers)
		bind(r, urls.DashboardStats, h.Dashboard.Stats)
	})
}
