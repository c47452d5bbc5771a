package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/infrastructure/eventbus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// RecalculationFeed is the source of recalculation requests streamed to
// websocket clients.
type RecalculationFeed interface {
	Subscribe(ctx context.Context) (eventbus.SubscriptionID, <-chan domain.RecalculationRequest)
}

// EventMessage is a JSON frame sent to websocket clients.
type EventMessage struct {
	Type    string                      `json:"type"`
	Payload domain.RecalculationRequest `json:"payload"`
}

// EventsHandler streams recalculation requests over websockets. Clients
// that fall behind lose requests, like any other subscriber.
type EventsHandler struct {
	feed     RecalculationFeed
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(feed RecalculationFeed) *EventsHandler {
	return &EventsHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Stream upgrades the connection and forwards every request until the client
// goes away. An account_id query parameter keeps only requests that touch
// that account, including unrestricted ones.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id, events := h.feed.Subscribe(ctx)
	log.Debug().Str("subscription_id", string(id)).Msg("events client connected")

	// The read pump only detects disconnects and answers pongs.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
			return
		}
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-events:
			if !ok {
				closing := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
				if err := writeFrame(conn, websocket.CloseMessage, closing); err != nil {
					log.Debug().Err(err).Str("subscription_id", string(id)).Msg("events client close failed")
				}
				return
			}
			if !touchesAccount(req, accountID) {
				continue
			}
			if err := writeEvent(conn, req); err != nil {
				log.Debug().Err(err).Str("subscription_id", string(id)).Msg("events client write failed")
				return
			}
		case <-ticker.C:
			if err := writeFrame(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, req domain.RecalculationRequest) error {
	data, err := json.Marshal(EventMessage{Type: domain.EventTypePortfolioRecalculate, Payload: req})
	if err != nil {
		return err
	}
	return writeFrame(conn, websocket.TextMessage, data)
}

func writeFrame(conn *websocket.Conn, messageType int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}

func touchesAccount(req domain.RecalculationRequest, accountID string) bool {
	if accountID == "" || req.AccountIDs == nil {
		return true
	}
	return slices.Contains(req.AccountIDs, accountID)
}
