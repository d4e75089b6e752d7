package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// CartSubscriber streams cart event names for one user, see cache.CartEvents.
type CartSubscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan string, func())
}

type CartFeed struct {
	cart     *services.CartService
	events   CartSubscriber
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewCartFeed accepts connections from allowedOrigins only. An empty list
// allows every origin.
func NewCartFeed(cart *services.CartService, events CartSubscriber, allowedOrigins []string, logger *slog.Logger) *CartFeed {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &CartFeed{
		cart:   cart,
		events: events,
		log:    orDefault(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

type cartMessage struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	*services.CartView
}

// GET /cart/ws sends a snapshot on connect and again after every cart
// event for the caller.
func (f *CartFeed) Serve(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the read pump only notices the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events, stop := f.events.Subscribe(ctx, userID)
	defer stop()

	if err := f.sendSnapshot(ctx, conn, userID, "connected", ""); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := f.sendSnapshot(ctx, conn, userID, "cart_updated", ev); err != nil {
				f.log.Debug("websocket write failed", "user_id", userID, "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (f *CartFeed) sendSnapshot(ctx context.Context, conn *websocket.Conn, userID uuid.UUID, typ, event string) error {
	view, err := f.cart.ListItems(ctx, userID)
	if err != nil {
		f.log.Error("cart snapshot failed", "user_id", userID, "err", err)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(cartMessage{Type: typ, Event: event, CartView: view})
}
