package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/edufford/aerosim/internal/message"
	"github.com/edufford/aerosim/internal/timestamp"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one connected renderer/FMU process, grounded on the teacher's
// handlers.Client: a send buffer plus a read/write pump pair.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *WSBroker
}

// WSBroker is a broker-backed Transport over websockets: the orchestrator
// process is the hub, external renderers/FMUs are clients. Grounded on the
// teacher's handlers.Hub/Client (register/unregister/broadcast loop,
// read-pump/write-pump goroutines), generalized from a single chat-style
// broadcast channel into topic/type-routed publish and subscribe.
type WSBroker struct {
	mu         sync.RWMutex
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	subs       map[string][]RawHandler
	closed     bool
	done       chan struct{}
}

// NewWSBroker constructs a broker and starts its registration loop.
func NewWSBroker() *WSBroker {
	b := &WSBroker{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		subs:       make(map[string][]RawHandler),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *WSBroker) run() {
	for {
		select {
		case c := <-b.register:
			b.mu.Lock()
			b.clients[c] = true
			b.mu.Unlock()
		case c := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.send)
			}
			b.mu.Unlock()
		case <-b.done:
			return
		}
	}
}

// ServeHTTP upgrades an incoming connection and spawns its pumps, mirroring
// the teacher's ws_handler.WebSocketHandler.ServeHTTP.
func (b *WSBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &wsClient{id: uuid.New().String(), conn: conn, send: make(chan []byte, wsSendBuffer), hub: b}
	b.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		meta, err := message.DeserializeMetadata(raw)
		if err != nil {
			continue
		}
		c.hub.dispatch(meta, raw)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *WSBroker) dispatch(meta message.Metadata, raw []byte) {
	b.mu.RLock()
	handlers := append([]RawHandler(nil), b.subs[subKey(meta.TypeName, meta.Topic)]...)
	wildcard := append([]RawHandler(nil), b.subs[subKey("*", meta.Topic)]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(raw)
	}
	for _, h := range wildcard {
		h(raw)
	}
}

// Publish broadcasts the message to every connected client, mirroring the
// teacher's Hub.Broadcast, and also dispatches to any local in-process
// subscribers (the orchestrator process itself may subscribe to its own
// published topics).
func (b *WSBroker) Publish(typeName, topic string, data []byte, simTime timestamp.Timestamp) error {
	meta := message.Metadata{Topic: topic, TypeName: typeName, SimTime: simTime, PlatformTime: timestamp.Now()}
	raw, err := message.SerializeMessage(meta, data)
	if err != nil {
		return err
	}

	b.mu.RLock()
	closed := b.closed
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()
	if closed {
		return nil
	}
	for _, c := range clients {
		select {
		case c.send <- raw:
		default:
		}
	}
	b.dispatch(meta, raw)
	return nil
}

// SubscribeRaw registers a local handler invoked whenever a client message
// matching (typeName, topic) arrives.
func (b *WSBroker) SubscribeRaw(typeName, topic string, handler RawHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := subKey(typeName, topic)
	b.subs[key] = append(b.subs[key], handler)
	return nil
}

// SubscribeAllRaw registers handler across many (typeName, topic) pairs.
func (b *WSBroker) SubscribeAllRaw(pairs []TopicType, handler RawHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range pairs {
		key := subKey(p.TypeName, p.Topic)
		b.subs[key] = append(b.subs[key], handler)
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (b *WSBroker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close shuts down the broker and disconnects all clients.
func (b *WSBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	clients := make([]*wsClient, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()
	close(b.done)
	for _, c := range clients {
		c.conn.Close()
	}
	return nil
}
