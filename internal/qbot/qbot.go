package qbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server receives events pushed by the gateway (reverse HTTP).
type Server struct {
	addr     string
	log      *zap.Logger
	messages chan *Event
	server   *http.Server
}

func NewServer(addr string, log *zap.Logger) *Server {
	s := &Server{
		addr:     addr,
		log:      log,
		messages: make(chan *Event, 64),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTPEvent)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// OnMessage delivers private and group message events. Other events are
// acknowledged and dropped.
func (s *Server) OnMessage() <-chan *Event {
	return s.messages
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) ListenAndServe() error {
	s.log.Info("reverse http listening", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHTTPEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Warn("read request body failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	jsonMap := make(map[string]any)
	if err := dec.Decode(&jsonMap); err != nil {
		s.log.Warn("decode event failed", zap.Error(err), zap.ByteString("body", body))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.log.Debug("recv event", zap.ByteString("body", body))

	if postType, _ := jsonMap["post_type"].(string); postType == "message" {
		ev := ParseEvent(jsonMap)
		if ev.Scope == Other {
			s.log.Debug("drop message event", zap.Any("message_type", jsonMap["message_type"]))
		} else {
			select {
			case s.messages <- ev:
			case <-r.Context().Done():
				s.log.Warn("drop message event: consumer busy", zap.String("user_id", ev.UserID))
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
