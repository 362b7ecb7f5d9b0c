package qbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Sender calls the gateway's forward HTTP API.
type Sender struct {
	baseURL     string
	accessToken string
	timeout     time.Duration
	http        *fasthttp.Client
	log         *zap.Logger
}

func NewSender(baseURL, accessToken string, timeout time.Duration, log *zap.Logger) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		timeout:     timeout,
		http:        &fasthttp.Client{ReadTimeout: timeout, WriteTimeout: timeout},
		log:         log,
	}
}

// Reply sends text back to where ev came from. Group replies mention the
// sender.
func (s *Sender) Reply(ctx context.Context, ev *Event, text string) error {
	switch ev.Scope {
	case Private:
		_, err := s.SendPrivateMsg(ctx, ev.UserID, EncodeSpecialChars(text))
		return err
	case Group:
		_, err := s.SendGroupMsg(ctx, ev.GroupID, CQAt(ev.UserID)+EncodeSpecialChars(text))
		return err
	default:
		return fmt.Errorf("cannot reply to scope %s", ev.Scope)
	}
}

func (s *Sender) SendPrivateMsg(ctx context.Context, userID, message string) (int64, error) {
	if message == "" {
		message = " "
	}
	req := cqRequest{
		Action: "send_private_msg",
		Params: map[string]any{
			"user_id": idParam(userID),
			"message": message,
		},
	}
	resp, err := s.sendWithResponse(ctx, &req)
	if err != nil {
		return 0, err
	}
	s.log.Info("send-private", zap.String("user_id", userID), zap.String("message", message))
	return resp.Data.MessageId, nil
}

func (s *Sender) SendGroupMsg(ctx context.Context, groupID, message string) (int64, error) {
	if message == "" {
		message = " "
	}
	req := cqRequest{
		Action: "send_msg",
		Params: map[string]any{
			"message_type": "group",
			"group_id":     idParam(groupID),
			"message":      message,
		},
	}
	resp, err := s.sendWithResponse(ctx, &req)
	if err != nil {
		return 0, err
	}
	s.log.Info("send-group", zap.String("group_id", groupID), zap.String("message", message))
	return resp.Data.MessageId, nil
}

func (s *Sender) sendWithResponse(ctx context.Context, r *cqRequest) (*cqResponse, error) {
	payload, err := json.Marshal(r.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(s.baseURL + "/" + r.Action)
	req.Header.SetContentType("application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}
	req.SetBody(payload)

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := s.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%s: %w", r.Action, err)
	}

	body := resp.Body()
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, fmt.Errorf("%s: HTTP error %d: %s", r.Action, status, string(body))
	}

	var cqResp cqResponse
	if err := json.Unmarshal(body, &cqResp); err != nil {
		return nil, fmt.Errorf("%s: 解析响应失败: %w", r.Action, err)
	}
	if cqResp.Status == "failed" {
		return nil, fmt.Errorf("%s: retcode %d: %s", r.Action, cqResp.Retcode, cqResp.Message)
	}
	return &cqResp, nil
}

// numeric ids go out as numbers, anything else verbatim
func idParam(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
