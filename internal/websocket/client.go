package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/maplayer"
	"github.com/meetnearby/meetnearby/pkg/logger"
	"github.com/meetnearby/meetnearby/pkg/validator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one websocket connection bound to one map view. Updates the
// view emits flow out through send; commands the client sends flow into
// the view.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan maplayer.Update
	connID    string
	userID    string
	view      *maplayer.View
	validator validator.Validator
	log       logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, view *maplayer.View, val validator.Validator, log logger.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan maplayer.Update, 256),
		connID:    uuid.NewString(),
		userID:    userID,
		view:      view,
		validator: val,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Enqueue hands an update to the write pump, dropping when the client is
// too far behind. The next full redraw resynchronizes it.
func (c *Client) Enqueue(u maplayer.Update) {
	select {
	case c.send <- u:
	default:
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.view.Stop()
		c.hub.unregister <- c
		c.conn.Close()
		c.cancel()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket read failed", "user", c.userID, "conn", c.connID, "error", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendNotice("error", "Invalid message format")
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case MessageTypeTap:
		if err := c.validator.ValidateCoordinates(msg.Lat, msg.Lng); err != nil {
			c.sendNotice("error", err.Error())
			return
		}
		c.view.SetManualLocation(geo.Coordinate{Lat: msg.Lat, Lng: msg.Lng})

	case MessageTypeGPS:
		if err := c.validator.ValidateCoordinates(msg.Lat, msg.Lng); err != nil {
			c.sendNotice("error", err.Error())
			return
		}
		if err := c.view.UpdateGPSLocation(c.ctx, geo.Coordinate{Lat: msg.Lat, Lng: msg.Lng}); err != nil {
			c.sendNotice("error", "Could not save your location")
		}

	case MessageTypeRadius:
		if err := c.validator.ValidateRadius(msg.RadiusKm); err != nil {
			c.sendNotice("error", err.Error())
			return
		}
		c.view.SetRadius(msg.RadiusKm)

	case MessageTypePrivacy:
		if msg.Privacy == nil {
			c.sendNotice("error", "Missing privacy settings")
			return
		}
		if err := c.view.SetPrivacy(c.ctx, *msg.Privacy); err != nil {
			c.sendNotice("error", "Could not save privacy settings")
		}

	case MessageTypeZoom:
		c.view.SetZoom(msg.Resolution)

	case MessageTypeSelect:
		c.view.Select(msg.UserID)

	case MessageTypeVisibility:
		c.view.SetVisible(msg.Visible)

	case MessageTypeMovement:
		c.view.SetMeetupMovement(msg.UserID, msg.Moving)

	case MessageTypeRefresh:
		c.view.RefreshNow(c.ctx)

	case MessageTypePing:
		c.Enqueue(maplayer.Update{Type: "pong"})
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case update, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			data, err := json.Marshal(update)
			if err != nil {
				c.log.Debug("failed to marshal update", "error", err)
				w.Close()
				continue
			}
			w.Write(data)

			// Add queued updates to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				queued := <-c.send
				data, err := json.Marshal(queued)
				if err != nil {
					continue
				}
				w.Write([]byte("\n"))
				w.Write(data)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) sendNotice(level, msg string) {
	c.Enqueue(maplayer.Update{Type: "notice", Level: level, Message: msg})
}
