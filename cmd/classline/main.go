package main

import (
	"context"
	"os"

	"github.com/ntkhang/classline/config"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/logger"
	"github.com/ntkhang/classline/internal/service"
	"github.com/ntkhang/classline/internal/store"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

func main() {
	logger.Init()

	app := fx.New(
		fx.NopLogger,

		// Core application components
		fx.Provide(
			config.NewConfig,
			client.NewTokenCache,
			func(cfg *config.Config, cache *client.TokenCache) *client.Client {
				return client.New(cfg, cache)
			},
			func(cfg *config.Config) (store.CredentialStore, error) {
				return store.NewSQLite(cfg)
			},
		),

		// Services layer
		fx.Provide(
			service.NewSessionService,
			service.NewQuizService,
			service.NewCampusService,
			service.NewInterviewService,
			newCLIApp,
		),

		fx.Invoke(runCLI),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()
	_ = app.Stop(context.Background())
}

func runCLI(lc fx.Lifecycle, sh fx.Shutdowner, app *cliApp) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := app.Run(context.Background(), os.Args[1:])
				_ = sh.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}
