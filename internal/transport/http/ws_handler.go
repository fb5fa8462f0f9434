package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type tagPayload struct {
	Tag string `json:"tag"`
}

type joinedPayload struct {
	SessionID  string `json:"sessionId"`
	PlayerName string `json:"playerName"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session per
// connection. Session events are forwarded as messages typed by event kind.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session := h.service.Open(ctx, r.URL.Query().Get("name"))
	sessionID := session.ID()
	defer h.service.Leave(ctx, sessionID)

	events, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Kind), Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		SessionID:  sessionID,
		PlayerName: session.PlayerName(),
	}}

	sendError := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			// the first question arrives as a question event
			if _, err := h.service.Start(ctx, sessionID); err != nil {
				sendError(err.Error())
			}
		case "select":
			tag, ok := decodeTag(inbound.Payload)
			if !ok {
				sendError("invalid select payload")
				continue
			}
			if err := h.service.Select(ctx, sessionID, tag); err != nil {
				sendError(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "selected", Payload: tagPayload{Tag: string(tag)}}
		case "confirm":
			if _, err := h.service.Confirm(ctx, sessionID); err != nil {
				sendError(err.Error())
			}
		case "answer":
			tag, ok := decodeTag(inbound.Payload)
			if !ok {
				sendError("invalid answer payload")
				continue
			}
			if _, err := h.service.Answer(ctx, sessionID, tag); err != nil {
				sendError(err.Error())
			}
		case "skip":
			if _, err := h.service.Skip(ctx, sessionID); err != nil {
				sendError(err.Error())
			}
		case "result":
			res, err := h.service.Result(ctx, sessionID)
			if err != nil {
				sendError(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: app.Event{Kind: app.EventResult, Ratio: 1, Result: &res}}
		default:
			sendError("unsupported message type")
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func decodeTag(raw json.RawMessage) (domain.OptionTag, bool) {
	var payload tagPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false
	}
	return domain.ParseOptionTag(payload.Tag)
}
