package cmds

import (
	"context"
	"regexp"
	"strings"

	"github.com/awfufu/go-dstbot/internal/db"
	"github.com/awfufu/go-dstbot/internal/dst"
	"github.com/awfufu/go-dstbot/internal/llm"
	"github.com/awfufu/go-dstbot/internal/qbot"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const commandPrefix = "#"

// QQ clients often send U+3000 between words, and RE2's \s is ASCII only.
const (
	space    = `[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`
	nonSpace = `[^\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`
)

const (
	ReplyInvalidCommand   = "Invalid command."
	ReplyPermissionDenied = "Permission denied."
	ReplyMethodNotFound   = "Method not found."
	ReplyInternalError    = "Internal error."
)

type serverRoute struct {
	srv     dst.Server
	match   *regexp.Regexp // ^#\s*<name>
	grammar *regexp.Regexp // ^#\s*<name>\s*(\S+)\s*(.*)
}

// Dispatcher turns one inbound event into one reply. It holds only
// read-only state and is safe for concurrent use.
type Dispatcher struct {
	routes []serverRoute
	ctl    dst.Controller
	chat   llm.Chatter
	audit  *db.Store
	rcon   RconExecutor
	log    *zap.Logger
}

type Option func(*Dispatcher)

// WithAudit records every daemon call in store.
func WithAudit(store *db.Store) Option {
	return func(d *Dispatcher) { d.audit = store }
}

func WithRcon(exec RconExecutor) Option {
	return func(d *Dispatcher) { d.rcon = exec }
}

func NewDispatcher(reg *dst.Registry, ctl dst.Controller, chat llm.Chatter, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ctl:  ctl,
		chat: chat,
		rcon: NewRconClient(0),
		log:  log,
	}
	for _, srv := range reg.Servers() {
		name := regexp.QuoteMeta(srv.Name)
		d.routes = append(d.routes, serverRoute{
			srv:     srv,
			match:   regexp.MustCompile(`^#` + space + `*` + name),
			grammar: regexp.MustCompile(`(?s)^#` + space + `*` + name + space + `*(` + nonSpace + `+)` + space + `*(.*)`),
		})
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle returns the reply for ev. ok is false when the event is not a
// private or group message; nothing should be sent back then.
func (d *Dispatcher) Handle(ctx context.Context, ev *qbot.Event) (reply string, ok bool) {
	if ev == nil || ev.Scope == qbot.Other {
		return "", false
	}
	log := d.log.With(
		zap.String("req_id", uuid.NewString()),
		zap.Stringer("scope", ev.Scope),
		zap.String("user_id", ev.UserID),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic", zap.Any("panic", r), zap.String("msg", ev.Text))
			reply, ok = ReplyInternalError, true
		}
	}()
	return d.route(ctx, ev, log), true
}

func (d *Dispatcher) route(ctx context.Context, ev *qbot.Event, log *zap.Logger) string {
	if !strings.HasPrefix(ev.Text, commandPrefix) {
		log.Debug("chat fallback", zap.String("msg", ev.Text))
		return d.chat.Reply(ctx, ev.Text)
	}

	// first configured name wins, so "alpha" shadows "alphabeta"
	for i := range d.routes {
		if d.routes[i].match.MatchString(ev.Text) {
			return d.serverCommand(ctx, &d.routes[i], ev, log)
		}
	}
	log.Info("invalid command", zap.String("msg", ev.Text))
	return ReplyInvalidCommand
}
