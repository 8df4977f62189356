package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/shared/utils"

	"github.com/gorilla/websocket"
)

const (
	// pingInterval — как часто сервер отправляет ping клиенту
	pingInterval = 30 * time.Second

	// pongWait — максимальное время ожидания pong от клиента
	pongWait = 60 * time.Second

	// maxMessageSize — максимальный размер входящего сообщения (8 KB)
	maxMessageSize = 8192

	// writeWait — таймаут на отправку одного сообщения
	writeWait = 10 * time.Second
)

var (
	// ErrClientClosed соединение уже закрыто
	ErrClientClosed = errors.New("client closed")

	// ErrSendBufferFull исходящая очередь клиента переполнена
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Upgrader конвертирует HTTP запрос в WebSocket соединение
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить origins перед выкаткой наружу
		return true
	},
}

// MessageHandler обрабатывает входящее сообщение от клиента.
// Вызывается последовательно для сообщений одного соединения.
type MessageHandler func(c *Client, msgType string, data json.RawMessage) error

// Client представляет одно WebSocket соединение.
// Principal == nil означает анонимное соединение: рукопожатие прошло,
// но admission-политика сессии еще не приняла клиента.
type Client struct {
	ID        string
	Principal *user.User

	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
	log  *logger.Logger
}

// NewClient оборачивает установленное соединение
func NewClient(conn *websocket.Conn, principal *user.User, log *logger.Logger) *Client {
	return &Client{
		ID:        "ws_" + utils.NewUUID(),
		Principal: principal,
		conn:      conn,
		send:      make(chan []byte, 256),
		quit:      make(chan struct{}),
		log:       log,
	}
}

// Send ставит сообщение в исходящую очередь клиента
func (c *Client) Send(message []byte) error {
	select {
	case <-c.quit:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- message:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendJSON сериализует и отправляет значение
func (c *Client) SendJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(b)
}

// Close разрывает соединение. Идемпотентен.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.quit)
		_ = c.conn.Close()
	})
}

// Reject закрывает соединение с policy-violation фреймом.
// Используется admission-политикой для неаутентифицированных клиентов.
func (c *Client) Reject(reason string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	c.Close()
}

// Serve запускает write/read pumps. Блокируется до разрыва соединения,
// затем вызывает onDisconnect ровно один раз.
func (c *Client) Serve(handler MessageHandler, onDisconnect func()) {
	go c.writePump()
	c.readPump(handler)
	if onDisconnect != nil {
		onDisconnect()
	}
}

// readPump читает сообщения от клиента
func (c *Client) readPump(handler MessageHandler) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error(logger.Entry{
					Action:  "ws_read_error",
					Message: c.ID,
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
			}
			return
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}

		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.Error(logger.Entry{
				Action:  "ws_parse_message_error",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
				Additional: map[string]any{
					"client_id": c.ID,
					"raw":       string(message),
				},
			})
			continue
		}

		if handler != nil {
			if err := handler(c, msg.Type, msg.Data); err != nil {
				c.log.Error(logger.Entry{
					Action:  "ws_handle_message_error",
					Message: err.Error(),
					Error:   &logger.ErrObj{Msg: err.Error()},
					Additional: map[string]any{
						"client_id": c.ID,
						"msg_type":  msg.Type,
					},
				})
			}
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.quit:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
