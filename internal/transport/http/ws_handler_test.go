package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/domain"
	"knowledge-quiz-service/internal/infra/memory"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	conn := dialTestServer(t, "?name=Alice")

	_, joined := readNext(conn, t, "joined")
	if joined["playerName"] != "Alice" || joined["sessionId"] == "" {
		t.Fatalf("unexpected joined payload %v", joined)
	}

	writeMessage(t, conn, "start", nil)
	question := readUntil(conn, t, "question")
	q, ok := question["question"].(map[string]any)
	if !ok {
		t.Fatalf("expected question payload, got %v", question)
	}
	options, _ := q["options"].([]any)
	if len(options) != 2 {
		t.Fatalf("expected true/false options, got %v", q["options"])
	}

	writeMessage(t, conn, "select", map[string]any{"tag": "F"})
	readUntil(conn, t, "selected")
	writeMessage(t, conn, "confirm", nil)

	answered := readUntil(conn, t, "answered")
	answer, ok := answered["answer"].(map[string]any)
	if !ok || answer["correct"] != true {
		t.Fatalf("expected correct answer, got %v", answered)
	}

	next := readUntil(conn, t, "question")
	nq, _ := next["question"].(map[string]any)
	if nq["index"] != float64(1) {
		t.Fatalf("expected second question, got %v", nq)
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	conn := dialTestServer(t, "")

	_, joined := readNext(conn, t, "joined")
	if joined["playerName"] != domain.DefaultPlayerName {
		t.Fatalf("expected default player name, got %v", joined["playerName"])
	}

	writeMessage(t, conn, "confirm", nil)
	_, payload := readNext(conn, t, "error")
	if payload["message"] != domain.ErrNotInProgress.Error() {
		t.Fatalf("expected not in progress error, got %v", payload)
	}

	writeMessage(t, conn, "dance", nil)
	_, payload = readNext(conn, t, "error")
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", payload)
	}

	writeMessage(t, conn, "start", nil)
	readUntil(conn, t, "question")
	writeMessage(t, conn, "select", map[string]any{"tag": "Z"})
	errPayload := readUntil(conn, t, "error")
	if errPayload["message"] != "invalid select payload" {
		t.Fatalf("unexpected error %v", errPayload)
	}
}

func dialTestServer(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	store := memory.NewSessionStore()
	poolRepo := memory.NewPoolRepository(memory.NewStaticPoolLoader(samplePool()), time.Minute)
	service := app.NewQuizService(store, poolRepo)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeMessage(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

// readUntil skips countdown and other messages until one of type expect arrives.
func readUntil(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 200; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == expect {
			return payload
		}
	}
	t.Fatalf("no %s message received", expect)
	return nil
}

// samplePool is all true/false with F correct, so any presented question can be
// answered without knowing which one was drawn.
func samplePool() []domain.Question {
	pool := make([]domain.Question, 0, 8)
	for i := 0; i < 8; i++ {
		pool = append(pool, domain.Question{
			ID:     fmt.Sprintf("q%d", i),
			Type:   domain.TypeTrueFalse,
			Answer: domain.TagF,
			Prompt: fmt.Sprintf("Statement %d is true?", i),
			Options: []domain.Option{
				{Tag: domain.TagF, Text: "True"},
				{Tag: domain.TagG, Text: "False"},
			},
			Area:       domain.Areas[i%len(domain.Areas)],
			Difficulty: domain.DifficultyEasy,
		})
	}
	return pool
}
