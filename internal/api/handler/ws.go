package handler

import (
	"civicgo/backend/internal/lifecycle"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/stats"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Lock this down in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and streams live snapshots and
// stats to the dashboard. The scope is chosen by query parameter:
// unscoped for the admin dashboard, ?department= for a department
// dashboard, ?mine=1 for the citizen's own complaints.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	actor := currentActor(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	dept := c.Query("department")
	mine := c.Query("mine") == "1"

	events := make(chan models.StreamEvent, 32)
	done := make(chan struct{})
	defer close(done)

	switch {
	case dept != "":
		snapshots, unsubscribe := h.Engine.SubscribeByDepartment(c.Request.Context(), models.Department(dept))
		defer unsubscribe()
		go relayScoped(snapshots, events, done)
	case mine:
		snapshots, unsubscribe := h.Engine.SubscribeByUser(c.Request.Context(), actor.ID)
		defer unsubscribe()
		go relayScoped(snapshots, events, done)
	default:
		sub, unsubscribe := h.Engine.SubscribeToAll()
		defer unsubscribe()
		go relayGlobal(sub, events, done)
	}

	client := &streamClient{Conn: conn, Events: events}
	client.run()
}

// relayScoped turns store-level scoped snapshots into stream events. Stats
// for a scoped view are derived from that view's own snapshot, which is
// why department dashboards can show different overdue/pending figures
// than the global one.
func relayScoped(snapshots <-chan []models.Complaint, events chan<- models.StreamEvent, done <-chan struct{}) {
	for snapshot := range snapshots {
		scoped := stats.Compute(snapshot)
		if !push(events, models.StreamEvent{Type: "snapshot", Complaints: snapshot}, done) {
			return
		}
		if !push(events, models.StreamEvent{Type: "stats", Stats: &scoped}, done) {
			return
		}
	}
	close(events)
}

// relayGlobal forwards events from a lifecycle-engine subscriber.
func relayGlobal(sub *lifecycle.Subscriber, events chan<- models.StreamEvent, done <-chan struct{}) {
	for event := range sub.Send {
		if !push(events, event, done) {
			return
		}
	}
	close(events)
}

// push delivers an event unless the connection has already gone away.
func push(events chan<- models.StreamEvent, event models.StreamEvent, done <-chan struct{}) bool {
	select {
	case events <- event:
		return true
	case <-done:
		return false
	}
}

// streamClient is the write side of a dashboard connection. The read pump
// only services control frames; dashboards never send data upstream.
type streamClient struct {
	Conn   *websocket.Conn
	Events chan models.StreamEvent
}

func (c *streamClient) run() {
	go c.writePump()
	c.readPump()
}

func (c *streamClient) readPump() {
	defer c.Conn.Close()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Events:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
