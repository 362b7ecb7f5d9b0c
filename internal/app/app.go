// Package app wires the configured backends into a dispatcher. Both the
// bot and the operator CLI start from here.
package app

import (
	"fmt"

	"github.com/awfufu/go-dstbot/internal/cmds"
	"github.com/awfufu/go-dstbot/internal/config"
	"github.com/awfufu/go-dstbot/internal/db"
	"github.com/awfufu/go-dstbot/internal/dst"
	"github.com/awfufu/go-dstbot/internal/llm"
	"go.uber.org/zap"
)

type App struct {
	Config     *config.Config
	Registry   *dst.Registry
	Dispatcher *cmds.Dispatcher
	Store      *db.Store
}

// New expects cfg.EnsureDirs to have run; the log file needs the same
// directories before the logger exists.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	reg, err := dst.NewRegistry(cfg.DstServers)
	if err != nil {
		return nil, fmt.Errorf("加载服务器列表失败: %w", err)
	}

	chat, err := llm.New(cfg.Chat, cfg.RequestTimeout, log)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	d := cmds.NewDispatcher(reg,
		dst.NewClient(cfg.RequestTimeout, log.Named("dst")),
		chat,
		log.Named("cmds"),
		cmds.WithAudit(store),
		cmds.WithRcon(cmds.NewRconClient(cfg.RequestTimeout)),
	)

	log.Info("app ready",
		zap.Int("servers", reg.Len()),
		zap.String("chat", cfg.Chat.Provider),
		zap.Bool("audit", store.Enabled()),
	)
	return &App{Config: cfg, Registry: reg, Dispatcher: d, Store: store}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
