package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/mosaicpm/mosaic/internal/bootstrap"
	"github.com/mosaicpm/mosaic/internal/bootstrap/logging"
	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/server"
)

// serveCmd runs the webhook server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var srv *server.Server
		var app *bootstrap.App
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&srv, &app),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 15*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		logging.Info(ctx, "server running", slog.String("addr", app.Config.HTTP.Addr))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		logging.Info(ctx, "shutdown signal received")
		stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelStop()
		if err := fxApp.Stop(stopCtx); err != nil {
			return errs.Wrap(err, "stop fx application")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
