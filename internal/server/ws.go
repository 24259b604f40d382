package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message types sent to and received from sockets.
const (
	MsgTrack   = "track"
	MsgPhase   = "phase"
	MsgElapsed = "elapsed"
	MsgError   = "error"
	MsgLoad    = "load"
)

// Message is one WebSocket frame. Facet messages carry exactly the field
// named by Type; a track message without Track means no track is loaded.
type Message struct {
	Type    string          `json:"type"`
	Track   *playback.Track `json:"track,omitempty"`
	Phase   *playback.Phase `json:"phase,omitempty"`
	Elapsed *int            `json:"elapsed,omitempty"`
	ID      int64           `json:"id,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var errSendBufferFull = errors.New("send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// hub tracks open sockets so Shutdown can disconnect them.
type hub struct {
	mu         sync.Mutex
	clients    map[*client]struct{}
	sendBuffer int
	logger     *zap.Logger
}

func newHub(sendBuffer int, logger *zap.Logger) *hub {
	return &hub{
		clients:    make(map[*client]struct{}),
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.shutdown()
	}
}

// client is one socket registered as a session observer.
type client struct {
	tag    string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newClient(conn *websocket.Conn, buffer int, logger *zap.Logger) *client {
	tag := uuid.NewString()
	return &client{
		tag:    tag,
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("conn", tag)),
	}
}

// shutdown stops the write pump. The observer reports itself gone on its
// next delivery.
func (c *client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) TrackChanged(t *playback.Track) error {
	return c.enqueue(Message{Type: MsgTrack, Track: t})
}

func (c *client) PhaseChanged(p playback.Phase) error {
	return c.enqueue(Message{Type: MsgPhase, Phase: &p})
}

func (c *client) ElapsedChanged(seconds int) error {
	return c.enqueue(Message{Type: MsgElapsed, Elapsed: &seconds})
}

// enqueue never blocks. A socket that cannot keep up is disconnected.
func (c *client) enqueue(m Message) error {
	select {
	case <-c.done:
		return playback.ErrObserverGone
	default:
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("dropping slow socket", zap.Int("buffer", cap(c.send)))
		c.shutdown()
		return errors.Join(playback.ErrObserverGone, errSendBufferFull)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		}
	}
}

// readPump applies commands until the peer goes away.
func (c *client) readPump(handle func(Message) error) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.reply(err)
			continue
		}
		if err := handle(m); err != nil {
			c.reply(err)
		}
	}
}

func (c *client) reply(err error) {
	data, _ := json.Marshal(Message{Type: MsgError, Error: err.Error()})
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	c := newClient(conn, s.hub.sendBuffer, s.logger)
	s.hub.add(c)
	go c.writePump()

	id := s.service.RegisterObserver("ws:"+c.tag, c)
	c.logger.Info("socket connected", zap.Uint64("observer", uint64(id)))

	c.readPump(func(m Message) error { return s.handleMessage(r, m) })

	s.service.UnregisterObserver(id)
	s.hub.remove(c)
	c.shutdown()
	c.logger.Info("socket disconnected")
}

func (s *Server) handleMessage(r *http.Request, m Message) error {
	if m.Type == MsgLoad {
		t, _, err := s.resolve(r.Context(), playback.Track{ID: m.ID})
		if err != nil {
			return err
		}
		s.service.LoadTrack(t)
		return nil
	}
	if !s.apply(m.Type) {
		return errors.New("unknown command: " + m.Type)
	}
	return nil
}
