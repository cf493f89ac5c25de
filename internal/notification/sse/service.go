// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"fddhub/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventNotification EventType = "notification"
	EventLeadUpdated  EventType = "lead_updated"
)

// Event represents an SSE event payload
type Event struct {
	Type    EventType   `json:"type"`
	LeadID  uuid.UUID   `json:"leadId,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const clientBuffer = 32

// client represents a connected SSE client
type client struct {
	userID       uuid.UUID
	franchisorID uuid.UUID
	events       chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu            sync.RWMutex
	clients       map[uuid.UUID][]*client // userID -> clients
	franchisorMap map[uuid.UUID]map[uuid.UUID]int
	log           *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients:       make(map[uuid.UUID][]*client),
		franchisorMap: make(map[uuid.UUID]map[uuid.UUID]int),
		log:           log,
	}
}

// addClient registers a new client connection
func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)

	if c.franchisorID != uuid.Nil {
		if s.franchisorMap[c.franchisorID] == nil {
			s.franchisorMap[c.franchisorID] = make(map[uuid.UUID]int)
		}
		s.franchisorMap[c.franchisorID][c.userID]++
	}
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}

	if members := s.franchisorMap[c.franchisorID]; members != nil {
		members[c.userID]--
		if members[c.userID] <= 0 {
			delete(members, c.userID)
		}
		if len(members) == 0 {
			delete(s.franchisorMap, c.franchisorID)
		}
	}

	close(c.events)
}

// Publish sends an event to a specific user
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients[userID] {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full", "userId", userID, "type", event.Type)
		}
	}
}

// PublishToFranchisor broadcasts an event to every connected team member.
func (s *Service) PublishToFranchisor(franchisorID uuid.UUID, event Event) {
	s.mu.RLock()
	userIDs := make([]uuid.UUID, 0, len(s.franchisorMap[franchisorID]))
	for userID := range s.franchisorMap[franchisorID] {
		userIDs = append(userIDs, userID)
	}
	s.mu.RUnlock()

	for _, userID := range userIDs {
		s.Publish(userID, event)
	}
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), getFranchisorID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		franchisorID, _ := getFranchisorID(c)

		// Set SSE headers
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID:       userID,
			franchisorID: franchisorID,
			events:       make(chan Event, clientBuffer),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
