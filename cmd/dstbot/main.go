package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awfufu/go-dstbot/internal/app"
	"github.com/awfufu/go-dstbot/internal/config"
	"github.com/awfufu/go-dstbot/internal/logging"
	"github.com/awfufu/go-dstbot/internal/qbot"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup, including the
// final log flush, happens before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("dstbot", flag.ContinueOnError)
	configPath := fs.String("c", "config.yaml", "配置文件路径")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("init failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	receiver := qbot.NewServer(cfg.HttpListen, log.Named("qbot"))
	sender := qbot.NewSender(cfg.HttpRemote, cfg.AccessToken, cfg.RequestTimeout, log.Named("qbot"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- receiver.ListenAndServe()
	}()

	for {
		select {
		case ev := <-receiver.OnMessage():
			if cfg.BotID != "" && ev.UserID == cfg.BotID {
				continue
			}
			go handle(ctx, a, sender, ev, log)
		case err := <-serveErr:
			if err != nil {
				log.Error("reverse http server stopped", zap.Error(err))
				return 1
			}
			return 0
		case <-ctx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := receiver.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutdown", zap.Error(err))
			}
			return 0
		}
	}
}

func handle(ctx context.Context, a *app.App, sender *qbot.Sender, ev *qbot.Event, log *zap.Logger) {
	reply, ok := a.Dispatcher.Handle(ctx, ev)
	if !ok {
		return
	}
	if err := sender.Reply(ctx, ev, reply); err != nil {
		log.Error("send reply failed",
			zap.Stringer("scope", ev.Scope),
			zap.String("user_id", ev.UserID),
			zap.String("group_id", ev.GroupID),
			zap.Error(err),
		)
	}
}
