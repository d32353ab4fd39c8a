package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ntkhang/classline/config"
	_ "github.com/ntkhang/classline/docs" // swagger spec registration
	"github.com/ntkhang/classline/internal/logger"
	"github.com/ntkhang/classline/internal/mockserver"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			mockserver.NewServer,
			mockserver.NewEngine,
		),
		fx.Invoke(registerRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start mock server")
	}

	<-app.Done()
	log.Info().Msg("Mock server shutting down gracefully...")
}

func registerRoutesAndStartServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Config, srv *mockserver.Server) {
	srv.Register(router)

	server := &http.Server{
		Addr:    ":" + cfg.MockServer.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Mock LMS server starting on port %s", cfg.MockServer.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.MockServer.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
