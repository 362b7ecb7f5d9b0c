// Package dst speaks the JSON control protocol of the DST server daemon.
//
// A request is a single HTTP POST of {"method": ..., "kwargs": {...}} to
// http://<ip>:<port>; the reply is {"ret": 0, "info": ..., "player_list": [...],
// "mod_list": [...]}, where ret != 0 means failure.
package dst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const InfoConnectRefused = "connect refused"

type Request struct {
	Method string         `json:"method"`
	Kwargs map[string]any `json:"kwargs"`
}

// Response fields are pointers so an empty list can be told apart from an
// absent one.
type Response struct {
	Ret        int       `json:"ret"`
	Info       *string   `json:"info,omitempty"`
	PlayerList *[]string `json:"player_list,omitempty"`
	ModList    *[]string `json:"mod_list,omitempty"`
}

func (r Response) OK() bool {
	return r.Ret == 0
}

func failure(info string) Response {
	return Response{Ret: 1, Info: &info}
}

// Controller is implemented by Client; the command layer depends on this so
// tests can swap the transport.
type Controller interface {
	Control(ctx context.Context, srv Server, req Request) Response
}

type Client struct {
	http *http.Client
	log  *zap.Logger
}

func NewClient(timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Control sends one request and never returns an error: transport failures
// and undecodable bodies are folded into a failed Response.
func (c *Client) Control(ctx context.Context, srv Server, req Request) Response {
	if req.Kwargs == nil {
		req.Kwargs = map[string]any{}
	}
	log := c.log.With(zap.String("server", srv.Name), zap.String("method", req.Method))
	log.Info("begin control", zap.Any("kwargs", req.Kwargs))

	payload, err := json.Marshal(req)
	if err != nil {
		log.Error("marshal request failed", zap.Error(err))
		return failure(err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL(), bytes.NewReader(payload))
	if err != nil {
		log.Error("build request failed", zap.Error(err))
		return failure(InfoConnectRefused)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Error("post failed", zap.Error(err))
		return failure(InfoConnectRefused)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("read response failed", zap.Error(err))
		return failure(InfoConnectRefused)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		log.Error("json decode failed", zap.String("resp_text", string(body)), zap.Error(err))
		return failure(string(body))
	}
	log.Info("control done", zap.Int("ret", out.Ret), zap.ByteString("resp_data", body))
	return out
}

// MethodName maps a chat verb to the daemon's method name.
func MethodName(verb string) string {
	return strings.ReplaceAll(verb, "-", "_")
}

func (s Server) URL() string {
	return fmt.Sprintf("http://%s:%d", s.IP, s.Port)
}
