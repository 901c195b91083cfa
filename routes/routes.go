package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/clashpoint/arena-system/handlers"
	"github.com/clashpoint/arena-system/middleware"
	"github.com/clashpoint/arena-system/models"
)

// SetupRoutes собирает все HTTP маршруты приложения.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret []byte,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tournamentHandler *handlers.TournamentHandler,
	participantHandler *handlers.ParticipantHandler,
	walletHandler *handlers.WalletHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
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

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)

		// Анонимный просмотр разрешён, но залогиненный пользователь
		// видит больше (реквизиты комнаты после входа в турнир).
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthenticateOptional(jwtSecret))
			r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		})

		r.Get("/{tournamentID}/slots", tournamentHandler.SlotBoardHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/{tournamentID}/join", participantHandler.JoinHandler)
		})
	})

	router.Route("/me", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Get("/", userHandler.ProfileHandler)
		r.Post("/avatar", userHandler.UploadAvatarHandler)

		r.Get("/registrations", participantHandler.MyRegistrationsHandler)
		r.Post("/registrations/{participantID}/ack", participantHandler.AcknowledgeResultHandler)

		r.Get("/wallet", walletHandler.BalanceHandler)
		r.Get("/wallet/transactions", walletHandler.HistoryHandler)
		r.Post("/wallet/deposit", walletHandler.DepositHandler)
		r.Post("/wallet/withdraw", walletHandler.WithdrawHandler)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.RequireRole(models.RoleAdmin))

		r.Post("/tournaments", tournamentHandler.CreateHandler)
		r.Patch("/tournaments/{tournamentID}/room", tournamentHandler.PublishRoomHandler)
		r.Post("/tournaments/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)
		r.Post("/tournaments/{tournamentID}/settle/winner", adminHandler.SettleWinnerHandler)
		r.Post("/tournaments/{tournamentID}/settle/per-kill", adminHandler.SettlePerKillHandler)
		r.Post("/wallets/reconcile", adminHandler.ReconcileWalletsHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
