package cmds

import (
	"context"
	"fmt"
	"strings"

	"github.com/awfufu/go-dstbot/internal/db"
	"github.com/awfufu/go-dstbot/internal/dst"
	"github.com/awfufu/go-dstbot/internal/qbot"
	"go.uber.org/zap"
)

const dstHelpMsg = `Control a DST server.
Usage: #<server> <verb> [param]
Verbs:
  start | stop | restart | update | create-cluster
  player-list | mod-list
  mod-add <id...> | mod-add return {...}
  mod-del <id...>
  say <text>
  rcon <console command>
  history`

// dstCommand is one parsed "#<server> <verb> <param>" message.
type dstCommand struct {
	srv   dst.Server
	verb  string
	param string
	ev    *qbot.Event
	log   *zap.Logger
}

// publicVerbs may be used by anyone; everything else needs an admin.
var publicVerbs = map[string]bool{
	"mod-list":    true,
	"player-list": true,
	"say":         true,
}

// controlVerbs build the request sent to the control daemon.
var controlVerbs = map[string]func(c *dstCommand) dst.Request{
	"start":          actionRequest,
	"stop":           actionRequest,
	"restart":        actionRequest,
	"update":         actionRequest,
	"mod-list":       actionRequest,
	"player-list":    actionRequest,
	"create-cluster": actionRequest,
	"mod-add":        modAddRequest,
	"mod-del":        modDelRequest,
	"say":            sayRequest,
}

// localVerbs are answered without calling the control daemon.
var localVerbs map[string]func(d *Dispatcher, ctx context.Context, c *dstCommand) string

func init() {
	localVerbs = map[string]func(d *Dispatcher, ctx context.Context, c *dstCommand) string{
		"rcon":    (*Dispatcher).rconExec,
		"history": (*Dispatcher).history,
		"help":    func(*Dispatcher, context.Context, *dstCommand) string { return dstHelpMsg },
	}
}

func (d *Dispatcher) serverCommand(ctx context.Context, r *serverRoute, ev *qbot.Event, log *zap.Logger) string {
	m := r.grammar.FindStringSubmatch(ev.Text)
	if m == nil {
		log.Info("invalid command", zap.String("server", r.srv.Name), zap.String("msg", ev.Text))
		return ReplyInvalidCommand
	}
	c := &dstCommand{
		srv:   r.srv,
		verb:  m[1],
		param: m[2],
		ev:    ev,
		log:   log.With(zap.String("server", r.srv.Name), zap.String("verb", m[1])),
	}
	c.log.Info("recv dst_server control",
		zap.String("param", c.param),
		zap.String("who", ev.Name),
		zap.Bool("is_admin", ev.IsAdmin),
	)

	if !publicVerbs[c.verb] && !ev.IsAdmin {
		c.log.Info("permission denied")
		return ReplyPermissionDenied
	}

	if build, ok := controlVerbs[c.verb]; ok {
		resp := d.ctl.Control(ctx, c.srv, build(c))
		d.record(c, resp)
		return formatResponse(c.srv.Name, c.verb, resp)
	}
	if local, ok := localVerbs[c.verb]; ok {
		return local(d, ctx, c)
	}
	return ReplyMethodNotFound
}

func actionRequest(c *dstCommand) dst.Request {
	return dst.Request{Method: dst.MethodName(c.verb), Kwargs: map[string]any{}}
}

func modAddRequest(c *dstCommand) dst.Request {
	if strings.HasPrefix(strings.TrimSpace(c.param), "return") {
		return dst.Request{Method: "mod_add", Kwargs: map[string]any{"mod_overrides": c.param}}
	}
	return dst.Request{Method: "mod_add", Kwargs: map[string]any{"mod_lst": splitMods(c.param)}}
}

func modDelRequest(c *dstCommand) dst.Request {
	return dst.Request{Method: "mod_del", Kwargs: map[string]any{"mod_lst": splitMods(c.param)}}
}

func sayRequest(c *dstCommand) dst.Request {
	return dst.Request{Method: "say", Kwargs: map[string]any{"msg": c.ev.Name + ": " + c.param}}
}

// splitMods never returns nil so the daemon always receives a JSON array.
func splitMods(param string) []string {
	mods := strings.Fields(param)
	if mods == nil {
		mods = []string{}
	}
	return mods
}

func formatResponse(name, verb string, resp dst.Response) string {
	if !resp.OK() {
		info := ""
		if resp.Info != nil && *resp.Info != "" {
			info = ": " + *resp.Info
		}
		return fmt.Sprintf("%s %s failed%s.", name, verb, info)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s success.\n", name, verb)

	if resp.PlayerList != nil {
		sb.WriteString("\n当前在线玩家:\n")
		if len(*resp.PlayerList) == 0 {
			sb.WriteString("无\n")
		}
		for _, player := range *resp.PlayerList {
			sb.WriteString(player + "\n")
		}
	}

	if resp.ModList != nil {
		sb.WriteString("\nMod 列表:\n")
		if len(*resp.ModList) == 0 {
			sb.WriteString("无\n")
		}
		for i, modID := range *resp.ModList {
			fmt.Fprintf(&sb, "  (%d) %s\n", i+1, modID)
		}
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func (d *Dispatcher) record(c *dstCommand, resp dst.Response) {
	if !d.audit.Enabled() {
		return
	}
	entry := &db.ControlLog{
		Server:   c.srv.Name,
		Verb:     c.verb,
		UserID:   c.ev.UserID,
		UserName: c.ev.Name,
		Ret:      resp.Ret,
	}
	if resp.Info != nil {
		entry.Info = *resp.Info
	}
	if err := d.audit.SaveControlLog(entry); err != nil {
		c.log.Warn("save control log failed", zap.Error(err))
	}
}

const historyLimit = 10

func (d *Dispatcher) history(_ context.Context, c *dstCommand) string {
	if !d.audit.Enabled() {
		return "Audit log disabled."
	}
	logs, err := d.audit.RecentControlLogs(c.srv.Name, historyLimit)
	if err != nil {
		c.log.Error("load control logs failed", zap.Error(err))
		return fmt.Sprintf("%s history failed.", c.srv.Name)
	}
	if len(logs) == 0 {
		return fmt.Sprintf("%s history: empty.", c.srv.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s history:", c.srv.Name)
	for _, l := range logs {
		result := "ok"
		if l.Ret != 0 {
			result = "failed"
		}
		fmt.Fprintf(&sb, "\n[%s] %s %s %s", l.Time.Local().Format("2006-01-02 15:04"), l.UserName, l.Verb, result)
	}
	return sb.String()
}
