package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	errors "github.com/Dhia9030/CarRental-sub000/internal"
	"github.com/Dhia9030/CarRental-sub000/internal/auth"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/booking"
	"github.com/Dhia9030/CarRental-sub000/internal/core/datamodel/chat"
	"github.com/Dhia9030/CarRental-sub000/internal/transport"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// RepositoryAPI persists chat history.
type RepositoryAPI interface {
	Create(m *chat.Message) error
	GetByBooking(bookingID int64, limit int) ([]*chat.Message, error)
}

// BookingAccessAPI answers who may join a booking's conversation.
type BookingAccessAPI interface {
	GetByID(id int64) (*booking.Booking, error)
	GetAgencyIDForBooking(bookingID int64) (int64, error)
}

// OutboundMessage is what travels over the socket and the redis channel.
type OutboundMessage struct {
	BookingID int64     `json:"booking_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// Gateway upgrades chat connections and routes messages between the renter
// and the agency through redis pub/sub, so participants connected to
// different instances still share one conversation. Delivery is
// fire-and-forget; history lives in the messages table.
type Gateway struct {
	*transport.BaseHandler
	repo     RepositoryAPI
	bookings BookingAccessAPI
	redis    *redis.Client
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewGateway(base *transport.BaseHandler, repo RepositoryAPI, bookings BookingAccessAPI, redisClient *redis.Client, logger *slog.Logger) *Gateway {
	return &Gateway{
		BaseHandler: base,
		repo:        repo,
		bookings:    bookings,
		redis:       redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", g.ServeChat)
	r.Get("/chat/history/{bookingId}", g.History)
}

func channelFor(bookingID int64) string {
	return fmt.Sprintf("chat:%d", bookingID)
}

// ServeChat upgrades the request and pumps messages both ways until either
// side hangs up.
func (g *Gateway) ServeChat(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		g.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	bookingID, err := strconv.ParseInt(r.URL.Query().Get("booking_id"), 10, 64)
	if err != nil || bookingID <= 0 {
		g.HandleError(w, errors.NewValidationError("booking_id query parameter is required", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := g.authorize(user, bookingID); appErr != nil {
		g.HandleError(w, appErr)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	g.logger.Info("chat participant connected",
		"booking_id", bookingID,
		"user_id", user.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go g.readPump(ctx, cancel, conn, user.ID, bookingID)
	g.writePump(ctx, conn, bookingID)

	conn.Close()
	g.logger.Info("chat participant disconnected",
		"booking_id", bookingID,
		"user_id", user.ID)
}

func (g *Gateway) authorize(user *auth.User, bookingID int64) *errors.AppError {
	if user.IsAdmin() {
		return nil
	}

	b, err := g.bookings.GetByID(bookingID)
	if err != nil {
		return errors.ErrBookingNotFound
	}

	if b.UserID == user.ID {
		return nil
	}

	if user.IsAgency() && user.AgencyID != 0 {
		agencyID, err := g.bookings.GetAgencyIDForBooking(bookingID)
		if err == nil && agencyID == user.AgencyID {
			return nil
		}
	}

	return errors.ErrUnauthorizedAccess
}

// readPump consumes frames from the socket, persists them and publishes to
// the booking's redis channel.
func (g *Gateway) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, senderID, bookingID int64) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var incoming struct {
			Body string `json:"body"`
		}
		if err := conn.ReadJSON(&incoming); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("chat read error", "error", err, "booking_id", bookingID)
			}
			return
		}
		if incoming.Body == "" {
			continue
		}

		msg := &chat.Message{
			BookingID: bookingID,
			SenderID:  senderID,
			Body:      incoming.Body,
		}
		if err := g.repo.Create(msg); err != nil {
			g.logger.Error("failed to persist chat message", "error", err, "booking_id", bookingID)
			continue
		}

		payload, _ := json.Marshal(OutboundMessage{
			BookingID: bookingID,
			SenderID:  senderID,
			Body:      incoming.Body,
			SentAt:    msg.CreatedAt,
		})

		if g.redis != nil {
			if err := g.redis.Publish(ctx, channelFor(bookingID), payload).Err(); err != nil {
				g.logger.Error("failed to publish chat message", "error", err, "booking_id", bookingID)
			}
		}
	}
}

// writePump relays the booking's redis channel to the socket and keeps the
// connection alive with pings.
func (g *Gateway) writePump(ctx context.Context, conn *websocket.Conn, bookingID int64) {
	var msgs <-chan *redis.Message
	if g.redis != nil {
		sub := g.redis.Subscribe(ctx, channelFor(bookingID))
		defer sub.Close()
		msgs = sub.Channel()
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}

// History returns the persisted conversation, newest last.
func (g *Gateway) History(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		g.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingId"), 10, 64)
	if err != nil || bookingID <= 0 {
		g.HandleError(w, errors.NewValidationError("bookingId must be a positive integer", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := g.authorize(user, bookingID); appErr != nil {
		g.HandleError(w, appErr)
		return
	}

	messages, err := g.repo.GetByBooking(bookingID, 100)
	if err != nil {
		g.HandleServiceError(w, err)
		return
	}

	g.WriteJSON(w, http.StatusOK, messages)
}
