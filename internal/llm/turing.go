package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	ReplyDecodeFailed  = "json decode failed"
	ReplyGetTextFailed = "get text failed"
	ReplyRequestFailed = "request failed"
)

// Chatter answers free-form chat. Reply never fails; problems are reported
// as a short diagnostic string.
type Chatter interface {
	Reply(ctx context.Context, text string) string
}

type turingRequest struct {
	ReqType    int `json:"reqType"`
	Perception struct {
		InputText struct {
			Text string `json:"text"`
		} `json:"inputText"`
	} `json:"perception"`
	UserInfo struct {
		APIKey string `json:"apiKey"`
		UserID string `json:"userId"`
	} `json:"userInfo"`
}

type turingResponse struct {
	Results *[]struct {
		ResultType *string `json:"resultType"`
		Values     *struct {
			Text *string `json:"text"`
		} `json:"values"`
	} `json:"results"`
}

type TuringClient struct {
	url    string
	userID string
	apiKey string
	http   *http.Client
	log    *zap.Logger
}

func NewTuringClient(url, userID, apiKey string, timeout time.Duration, log *zap.Logger) *TuringClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TuringClient{
		url:    url,
		userID: userID,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (c *TuringClient) Reply(ctx context.Context, text string) string {
	var reqData turingRequest
	reqData.Perception.InputText.Text = text
	reqData.UserInfo.APIKey = c.apiKey
	reqData.UserInfo.UserID = c.userID

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		c.log.Error("marshal turing request failed", zap.Error(err))
		return ReplyRequestFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		c.log.Error("build turing request failed", zap.Error(err))
		return ReplyRequestFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("turing request failed", zap.Error(err))
		return ReplyRequestFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("read turing response failed", zap.Error(err))
		return ReplyRequestFailed
	}

	var respData turingResponse
	if err := json.Unmarshal(body, &respData); err != nil {
		c.log.Error(ReplyDecodeFailed, zap.String("resp_text", string(body)), zap.Error(err))
		return ReplyDecodeFailed
	}

	if text, ok := firstText(&respData); ok {
		return text
	}
	c.log.Error(ReplyGetTextFailed, zap.ByteString("resp_data", body))
	return ReplyGetTextFailed
}

// firstText returns the first "text" result. Later text results are ignored.
func firstText(resp *turingResponse) (string, bool) {
	if resp.Results == nil {
		return "", false
	}
	for _, res := range *resp.Results {
		if res.ResultType == nil {
			return "", false
		}
		if *res.ResultType != "text" {
			continue
		}
		if res.Values == nil || res.Values.Text == nil {
			return "", false
		}
		return *res.Values.Text, true
	}
	return "", false
}
