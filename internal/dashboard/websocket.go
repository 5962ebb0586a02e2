package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"calibri-dashboard/internal/device"
	"calibri-dashboard/internal/hub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxReadBytes = 64 * 1024
	sendQueue    = 64
)

var (
	errViewerClosed = errors.New("viewer closed")
	errViewerSlow   = errors.New("viewer send queue full")
)

type clientMessage struct {
	Type string `json:"type"`
}

type stateMessage struct {
	Type   string          `json:"type"`
	Device device.Snapshot `json:"device"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsWriter queues messages for a single writer goroutine. Write never blocks;
// a full queue fails the write so the hub drops the viewer.
type wsWriter struct {
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSWriter(conn *websocket.Conn) *wsWriter {
	return &wsWriter{
		conn:   conn,
		send:   make(chan []byte, sendQueue),
		closed: make(chan struct{}),
	}
}

func (w *wsWriter) Write(message []byte) error {
	select {
	case <-w.closed:
		return errViewerClosed
	default:
	}
	select {
	case w.send <- message:
		return nil
	default:
		return errViewerSlow
	}
}

func (w *wsWriter) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.conn.Close()
	})
	return err
}

func (w *wsWriter) pump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.closed:
			return
		case msg := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = w.Close()
				return
			}
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = w.Close()
				return
			}
		}
	}
}

// stream sends the device state, then every generated sample, to one viewer.
func (a *App) stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	writer := newWSWriter(ws)
	sub := &hub.Subscriber{Topic: samplesTopic, Writer: writer}
	go writer.pump()

	if out, err := json.Marshal(stateMessage{Type: "state", Device: a.session.Snapshot()}); err == nil {
		_ = writer.Write(out)
	}
	a.hub.Subscribe(sub)
	defer func() {
		a.hub.Unsubscribe(sub)
		_ = writer.Close()
	}()

	ws.SetReadLimit(maxReadBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	pong, _ := json.Marshal(clientMessage{Type: "pong"})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "ping":
			if err := writer.Write(pong); err != nil {
				return
			}
		case "state":
			if out, err := json.Marshal(stateMessage{Type: "state", Device: a.session.Snapshot()}); err == nil {
				_ = writer.Write(out)
			}
		}
	}
}
