package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Cell    *int            `json:"cell,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ws streams the game state as JSON and accepts play, reset, hint and
// request_state commands from the seated player.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	pid := ensurePlayerCookie(w, r)
	_, _, _ = h.svc.Join(id, pid)

	conn, err := upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		h.log.Debug().Err(err).Str("game", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsub()

	out := make(chan []byte, 8)
	out <- h.stateMessage(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := h.writeWSWithHeartbeat(ctx, conn, id, updates, out); err != nil {
			h.log.Debug().Err(err).Str("game", id).Msg("websocket write")
		}
		cancel()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		var reply []byte
		switch msg.Type {
		case "play":
			if msg.Cell == nil {
				reply = mustMarshal(wsMessage{Type: "error", Error: "Invalid move"})
				break
			}
			if _, err := h.svc.Play(id, pid, *msg.Cell); err != nil {
				reply = mustMarshal(wsMessage{Type: "error", Error: errorMessage(err)})
			}
		case "reset":
			if _, err := h.svc.Reset(id, pid); err != nil {
				reply = mustMarshal(wsMessage{Type: "error", Error: errorMessage(err)})
			}
		case "hint":
			if _, err := h.svc.Hint(id, pid); err != nil {
				reply = mustMarshal(wsMessage{Type: "error", Error: errorMessage(err)})
			}
		case "request_state":
			reply = h.stateMessage(id)
		}
		if reply != nil {
			select {
			case out <- reply:
			case <-ctx.Done():
			}
		}
	}
	cancel()
	<-done
}

func (h *handlers) stateMessage(id string) []byte {
	gs, ok := h.svc.Get(id)
	if !ok {
		return mustMarshal(wsMessage{Type: "error", Error: app.ErrNotFound.Error()})
	}
	return mustMarshal(wsMessage{Type: "state", Payload: mustMarshal(newStateDTO(*gs))})
}

// writeWSWithHeartbeat is the only writer on conn. Service notifications are
// turned into fresh state messages; a ping goes out after an idle interval.
func (h *handlers) writeWSWithHeartbeat(ctx context.Context, conn *websocket.Conn, id string, updates <-chan []byte, out <-chan []byte) error {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	write := func(msg []byte) error {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return err
		}
		lastWrite = time.Now()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-out:
			if err := write(msg); err != nil {
				return err
			}
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			if err := write(h.stateMessage(id)); err != nil {
				return err
			}
		case <-ticker.C:
			if time.Since(lastWrite) < h.heartbeat {
				continue
			}
			if err := write(pingPayload); err != nil {
				return err
			}
		}
	}
}
