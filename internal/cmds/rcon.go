package cmds

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorcon/rcon"
	"go.uber.org/zap"
)

const rconMaxOutput = 2048

// RconExecutor runs one console command on a game server.
type RconExecutor interface {
	Execute(ctx context.Context, address, password, command string) (string, error)
}

type RconClient struct {
	timeout time.Duration
}

func NewRconClient(timeout time.Duration) *RconClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RconClient{timeout: timeout}
}

func (c *RconClient) Execute(ctx context.Context, address, password, command string) (string, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	conn, err := rcon.Dial(address, password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	response, err := conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("failed: %w", err)
	}
	return response, nil
}

func (d *Dispatcher) rconExec(ctx context.Context, c *dstCommand) string {
	if c.srv.Rcon == nil {
		return ReplyMethodNotFound
	}
	command := strings.TrimSpace(c.param)
	if command == "" {
		return fmt.Sprintf("%s rcon failed: empty command.", c.srv.Name)
	}

	c.log.Info("begin rcon", zap.String("command", command))
	response, err := d.rcon.Execute(ctx, c.srv.Rcon.Address, c.srv.Rcon.Password, command)
	if err != nil {
		c.log.Error("rcon failed", zap.Error(err))
		return fmt.Sprintf("%s rcon failed: %s.", c.srv.Name, err.Error())
	}

	if len(response) > rconMaxOutput {
		response = truncateUTF8(response, rconMaxOutput) + "... (truncated)"
	}
	if response == "" {
		response = "No output"
	}
	return fmt.Sprintf("%s rcon:\n%s", c.srv.Name, response)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
