package bot

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/chatroom/internal/messaging"
)

// ReplyRequest is the payload sent on messaging.SubjectBotReply.
type ReplyRequest struct {
	Text string `json:"text"`
}

// ReplyResponse is what the responder service answers with.
type ReplyResponse struct {
	Reply string `json:"reply"`
}

// Requester is the request/reply subset of the NATS client.
type Requester interface {
	Request(subject string, data []byte, timeout time.Duration) ([]byte, error)
}

// RemoteResponder asks the responder service for a reply and falls back to a
// local Responder when the request fails, times out or returns nothing.
type RemoteResponder struct {
	requester Requester
	fallback  Responder
	timeout   time.Duration
	log       *zap.Logger
}

// NewRemoteResponder creates a RemoteResponder.
func NewRemoteResponder(requester Requester, fallback Responder, timeout time.Duration, log *zap.Logger) *RemoteResponder {
	return &RemoteResponder{
		requester: requester,
		fallback:  fallback,
		timeout:   timeout,
		log:       log,
	}
}

// Respond implements Responder.
func (r *RemoteResponder) Respond(message string) string {
	reply, err := r.request(message)
	if err != nil {
		r.log.Warn("remote reply failed, using local selector", zap.Error(err))
		return r.fallback.Respond(message)
	}
	return reply
}

func (r *RemoteResponder) request(message string) (string, error) {
	data, err := json.Marshal(ReplyRequest{Text: message})
	if err != nil {
		return "", fmt.Errorf("bot: marshal request: %w", err)
	}
	raw, err := r.requester.Request(messaging.SubjectBotReply, data, r.timeout)
	if err != nil {
		return "", fmt.Errorf("bot: request: %w", err)
	}
	var resp ReplyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("bot: decode reply: %w", err)
	}
	if resp.Reply == "" {
		return "", fmt.Errorf("bot: empty reply")
	}
	return resp.Reply, nil
}

// HandleRequest is the responder-service side of the exchange: it decodes a
// ReplyRequest, asks responder and encodes the ReplyResponse.
func HandleRequest(responder Responder, data []byte) ([]byte, error) {
	var req ReplyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("bot: decode request: %w", err)
	}
	out, err := json.Marshal(ReplyResponse{Reply: responder.Respond(req.Text)})
	if err != nil {
		return nil, fmt.Errorf("bot: marshal reply: %w", err)
	}
	return out, nil
}
