package handlers

import (
	"log"
	"net/http"
	"time"

	"team-shortlink/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// FeedHandler streams captured click events to dashboard clients as they are
// persisted by the pipeline. Events arrive through the cache manager's
// pub/sub channel, so the hub also sees clicks captured by other instances.
type FeedHandler struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	cache      *cache.CacheManager
}

func NewFeedHandler(cm *cache.CacheManager) *FeedHandler {
	return &FeedHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for testing
			},
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		cache:      cm,
	}
}

func (h *FeedHandler) HandleConnections(c *gin.Context) {
	log.Println("WebSocket connection attempt from:", c.Request.RemoteAddr)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer func() {
		h.unregister <- ws
		ws.Close()
		log.Println("WebSocket connection closed")
	}()

	h.register <- ws

	go h.handleClientMessages(ws)

	// Keep connection alive
	for {
		time.Sleep(30 * time.Second)
		if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
			log.Println("Ping failed:", err)
			return
		}
	}
}

func (h *FeedHandler) handleClientMessages(ws *websocket.Conn) {
	for {
		var msg map[string]interface{}

		err := ws.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		switch msg["type"] {
		case "subscribe":
			ws.WriteJSON(map[string]interface{}{
				"type":      "subscribed",
				"message":   "Successfully subscribed to the click feed",
				"timestamp": time.Now().Unix(),
			})

		case "ping":
			ws.WriteJSON(map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			})

		default:
			ws.WriteJSON(map[string]interface{}{
				"type":      "error",
				"message":   "Unknown message type",
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

// RunHub owns the client set and relays pipeline click events to every
// connected client.
func (h *FeedHandler) RunHub() {
	log.Println("Starting click feed hub")

	feed := h.cache.SubscribeClicks(64)
	go func() {
		for msg := range feed {
			h.broadcast <- msg
		}
	}()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Println("Feed client registered. Total clients:", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.Println("Feed client unregistered. Total clients:", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				err := client.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					log.Printf("Error broadcasting to client: %v", err)
					client.Close()
					delete(h.clients, client)
				}
			}
		}
	}
}
