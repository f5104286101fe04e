package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/lib/ipc"
	"github.com/benz9527/xdispatch/xlog"
)

// Watch reloads the file whenever it is written or replaced and delivers
// every valid reload on the returned channel. Invalid reloads are logged
// and skipped. The directory is watched, editors usually replace the
// file by a rename. The channel is closed once ctx is done.
func Watch(ctx context.Context, path string, logger xlog.XLogger) (ipc.ReadOnlyChannel[*Config], error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "failed to create config watcher")
	}
	if err = watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, infra.WrapErrorStackWithMessage(err, "failed to add config directory to watcher")
	}
	reloadC := ipc.NewSafeClosableChannel[*Config](1)
	go watchAndReload(ctx, abs, watcher, reloadC, logger)
	return reloadC, nil
}

func watchAndReload(
	ctx context.Context,
	path string,
	watcher *fsnotify.Watcher,
	reloadC ipc.ClosableChannel[*Config],
	logger xlog.XLogger,
) {
	defer func() {
		_ = reloadC.Close()
		_ = watcher.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path ||
				!(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.ErrorStack(err, "config reload rejected", zap.String("path", path))
				continue
			}
			logger.Info("config reloaded", zap.String("path", path), zap.String("logLevel", cfg.Log.Level))
			if err = reloadC.Send(ctx, cfg); err != nil {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.ErrorStack(infra.WrapErrorStack(err), "config watcher failed", zap.String("path", path))
		}
	}
}

// ApplyLogLevel switches the dynamic level of the logger.
func ApplyLogLevel(logger xlog.XLogger, cfg *Config) error {
	lvl, err := ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.IncreaseLogLevel(lvl.ZapLevel())
	return nil
}
