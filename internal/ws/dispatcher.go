package ws

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/whisper/chatroom/internal/protocol"
)

// MessageHandler handles one parsed client message. msg is the concrete
// struct returned by protocol.ParseClientMessage (protocol.LoginMsg,
// protocol.ChatMsg, ...).
type MessageHandler func(conn *Connection, msg interface{})

// MessageDispatcher routes incoming frames to registered handlers by message
// type. Ping is answered internally; malformed frames and unregistered types
// get an error reply.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	log      *zap.Logger
}

// NewMessageDispatcher creates an empty MessageDispatcher.
func NewMessageDispatcher(log *zap.Logger) *MessageDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		log:      log,
	}
}

// Register associates a handler with a message type, replacing any earlier
// one.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// Dispatch is the Server's onMessage callback.
func (d *MessageDispatcher) Dispatch(conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			d.log.Debug("payload rejected", zap.String("session", conn.ID), zap.String("type", msgType), zap.Error(err))
			d.sendError(conn, protocol.CodeInvalidPayload, "payload field too long")
			return
		}
		d.log.Debug("dispatch parse error", zap.String("session", conn.ID), zap.Error(err))
		d.sendError(conn, protocol.CodeInvalidMessage, "invalid message format")
		return
	}

	if msgType == protocol.TypePing {
		d.sendPong(conn)
		return
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		d.log.Debug("unsupported message type", zap.String("session", conn.ID), zap.String("type", msgType))
		d.sendError(conn, protocol.CodeInvalidMessage, "unsupported message type")
		return
	}

	handler(conn, msg)
}

func (d *MessageDispatcher) sendError(conn *Connection, code string, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		d.log.Error("failed to build error message", zap.String("session", conn.ID), zap.Error(err))
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		d.log.Info("failed to send error message", zap.String("session", conn.ID), zap.Error(err))
	}
}

func (d *MessageDispatcher) sendPong(conn *Connection) {
	conn.Touch()

	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		d.log.Error("failed to build pong message", zap.String("session", conn.ID), zap.Error(err))
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		d.log.Info("failed to send pong message", zap.String("session", conn.ID), zap.Error(err))
	}
}
