package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/catalog"
	"github.com/llehouerou/wavelet/internal/errmsg"
	"github.com/llehouerou/wavelet/internal/server"
	"github.com/llehouerou/wavelet/internal/stderr"
	"github.com/llehouerou/wavelet/internal/ui/nowplaying"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var noAudio bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the terminal player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, !noAudio)
		},
	}
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "run the session without opening an audio device")
	return cmd
}

func runTUI(ctx context.Context, opts *globalOptions, audio bool) error {
	// The terminal belongs to the UI: log to file only.
	a, err := setup(opts, nil)
	if err != nil {
		return err
	}
	capture, err := stderr.Start(a.logger.Named("stderr"))
	if err != nil {
		a.logger.Warn("capture stderr", zap.Error(err))
	}
	defer func() {
		a.Close()
		if capture != nil {
			capture.Stop()
		}
	}()

	a.startSession(audio)

	tracks, err := a.catalog.List(ctx)
	if err != nil {
		return errmsg.Wrap(errmsg.OpCatalogList, err)
	}

	p := tea.NewProgram(nowplaying.New(a.service, tracks), tea.WithAltScreen(), tea.WithContext(ctx))
	id := a.service.RegisterObserver("tui", nowplaying.NewBridge(p.Send))
	defer a.service.UnregisterObserver(id)

	if srvCfg := a.cfg.GetServerConfig(); srvCfg.Enabled {
		srv := newServer(a, srvCfg.Listen, srvCfg.SendBuffer)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				a.logger.Error(errmsg.Format(errmsg.OpServerStart, err))
			}
		}()
		defer shutdown(srv, a.logger)
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errmsg.Wrap(errmsg.OpInitialize, err)
	}
	return nil
}

func newServer(a *app, addr string, sendBuffer int) *server.Server {
	return server.New(a.service, a.catalog, server.Options{
		Addr:       addr,
		SendBuffer: sendBuffer,
		Logger:     a.logger,
		NotFound:   func(err error) bool { return errors.Is(err, catalog.ErrNotFound) },
	})
}
