package websocket

import (
	"context"
	"strings"

	domainSession "github.com/AzielCF/az-chat/domains/session"
	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/AzielCF/az-chat/validations"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const localsUserID = "ws_user_id"

// SessionFactory builds the session for a freshly accepted connection.
type SessionFactory func(connectionID, userID string) domainSession.ISession

func RegisterRoutes(app fiber.Router, hub *Hub, newSession SessionFactory, identityHeader string) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(localsUserID, strings.TrimSpace(c.Get(identityHeader)))
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		serveConnection(conn, hub, newSession)
	}))
}

func serveConnection(conn *websocket.Conn, hub *Hub, newSession SessionFactory) {
	id := uuid.NewString()
	userID, _ := conn.Locals(localsUserID).(string)

	hub.Register(id, conn)
	sess := newSession(id, userID)

	defer func() {
		sess.Close()
		hub.Unregister(id)
	}()

	if err := sess.Open(); err != nil {
		logrus.Errorf("[WS] Could not open session %s: %v", id, err)
		return
	}
	logrus.Debugf("[WS] Connection %s accepted (user %q)", id, userID)

	ctx := context.Background()
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logrus.Debugf("[WS] Read error on %s: %v", id, err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			logrus.Debugf("[WS] Ignoring message type %d on %s", messageType, id)
			continue
		}

		if kind, err := handleFrame(ctx, sess, message); err != nil {
			_ = hub.Deliver(id, domainTopic.Event{Name: EventError, Payload: errorPayload(kind, err)})
		}
	}
}

func handleFrame(ctx context.Context, sess domainSession.ISession, raw []byte) (string, error) {
	intent, err := ParseIntent(raw)
	if err != nil {
		return intent.Kind, err
	}

	if intent.UserID == "" {
		intent.UserID = sess.UserID()
	}
	if err := validations.ValidateIntent(ctx, intent); err != nil {
		return intent.Kind, err
	}

	return intent.Kind, sess.HandleIntent(intent)
}
