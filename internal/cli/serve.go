package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/errmsg"
	"github.com/llehouerou/wavelet/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		noAudio bool
		listen  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session headless behind the HTTP/WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			a.startSession(!noAudio)

			srvCfg := a.cfg.GetServerConfig()
			if listen != "" {
				srvCfg.Listen = listen
			}
			srv := newServer(a, srvCfg.Listen, srvCfg.SendBuffer)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return errmsg.Wrap(errmsg.OpServerStart, err)
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdown(srv, a.logger)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "run the session without opening an audio device")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from config)")
	return cmd
}

func shutdown(srv *server.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
