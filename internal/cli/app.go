package cli

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/catalog"
	"github.com/llehouerou/wavelet/internal/config"
	"github.com/llehouerou/wavelet/internal/errmsg"
	"github.com/llehouerou/wavelet/internal/logger"
	"github.com/llehouerou/wavelet/internal/mpris"
	"github.com/llehouerou/wavelet/internal/notify"
	"github.com/llehouerou/wavelet/internal/playback"
	"github.com/llehouerou/wavelet/internal/player"
)

// app holds what every local command needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	syncLog  func() error
	catalog  *catalog.Catalog
	closers  []func() error
	service  playback.Service
	audioOut *player.Player
}

// setup loads config, the logger and the catalog. console receives log
// lines too when non-nil.
func setup(opts *globalOptions, console io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, errmsg.Wrap(errmsg.OpConfigLoad, err)
	}
	log, syncLog, err := logger.New(cfg.GetLogConfig(), logger.Options{Console: console})
	if err != nil {
		return nil, errmsg.Wrap(errmsg.OpInitialize, err)
	}

	path, err := cfg.CatalogPath()
	if err != nil {
		_ = syncLog()
		return nil, errmsg.Wrap(errmsg.OpCatalogOpen, err)
	}
	cat, err := catalog.Open(path, log.Named("catalog"))
	if err != nil {
		_ = syncLog()
		return nil, errmsg.Wrap(errmsg.OpCatalogOpen, err)
	}
	return &app{cfg: cfg, logger: log, syncLog: syncLog, catalog: cat}, nil
}

// startSession creates the playback session with its local observers.
// Without audio the session still runs its clock but drives no device.
func (a *app) startSession(audio bool) {
	opts := playback.Options{
		TickInterval: a.cfg.TickInterval(),
		Logger:       a.logger,
	}
	if audio {
		a.audioOut = player.New(a.logger.Named("player"))
		opts.Backend = a.audioOut
		a.closers = append(a.closers, a.audioOut.Close)
	}
	a.service = playback.New(opts)
	a.closers = append(a.closers, a.service.Close)

	if a.cfg.MPRISEnabled() {
		adapter, err := mpris.New(a.service, a.openURI, a.logger)
		if err != nil {
			a.logger.Warn(errmsg.Format(errmsg.OpMPRISStart, err))
		} else {
			a.closers = append(a.closers, adapter.Close)
		}
	}

	if a.cfg.NotifyEnabled() {
		n, err := notify.New()
		if err != nil {
			a.logger.Warn(errmsg.Format(errmsg.OpNotify, err))
		} else {
			np := notify.NewNowPlaying(n, a.service, a.logger)
			a.closers = append(a.closers, func() error { np.Close(); return nil })
		}
	}
}

// openURI adds a file to the catalog so it gets an id, then returns it.
func (a *app) openURI(uri string) (playback.Track, error) {
	t, err := catalog.ReadFile(player.SourcePath(uri))
	if err != nil {
		return playback.Track{}, err
	}
	id, err := a.catalog.Add(context.Background(), t)
	if err != nil {
		return playback.Track{}, err
	}
	t.ID = id
	return t, nil
}

// Close tears down in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Debug("close", zap.Error(err))
		}
	}
	if err := a.catalog.Close(); err != nil {
		a.logger.Debug("close catalog", zap.Error(err))
	}
	_ = a.syncLog()
}
