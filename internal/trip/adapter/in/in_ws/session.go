package in_ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/shared/ws"
	"github.com/yangakandeni/kwella/internal/trip/application/ports/in"
	"github.com/yangakandeni/kwella/internal/trip/application/ports/out"
	"github.com/yangakandeni/kwella/internal/trip/domain"
)

// Типы сообщений протокола
const (
	MsgEcho       = "echo.message"
	MsgCreateTrip = "create.trip"
	MsgUpdateTrip = "update.trip"
	MsgError      = "error"
)

// TripWSHandler — dispatch-сессия: admission при подключении, вступление
// в группы, маршрутизация входящих сообщений по типу, выход из всех
// групп при разрыве.
type TripWSHandler struct {
	registry   ws.Registry
	authn      *Authenticator
	createTrip in.CreateTripUseCase
	updateTrip in.UpdateTripUseCase
	trips      out.TripRepository
	log        *logger.Logger
}

// NewTripWSHandler создает обработчик WebSocket соединений поездок
func NewTripWSHandler(
	registry ws.Registry,
	authn *Authenticator,
	createTrip in.CreateTripUseCase,
	updateTrip in.UpdateTripUseCase,
	trips out.TripRepository,
	log *logger.Logger,
) *TripWSHandler {
	return &TripWSHandler{
		registry:   registry,
		authn:      authn,
		createTrip: createTrip,
		updateTrip: updateTrip,
		trips:      trips,
		log:        log,
	}
}

// ServeWS обрабатывает HTTP запрос на WebSocket соединение
func (h *TripWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	// Стадия 1: разрешение идентичности. Рукопожатие проходит всегда.
	principal := h.authn.Authenticate(r.Context(), r)

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "ws_upgrade_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	client := ws.NewClient(conn, principal, h.log)

	// Стадия 2: admission. Анонимные соединения закрываются сразу после
	// рукопожатия — наблюдаемое "нельзя подключиться без валидного токена".
	if principal == nil {
		h.log.Info(logger.Entry{
			Action:  "ws_connection_refused",
			Message: client.ID,
		})
		client.Reject("authentication required")
		return
	}

	ctx := r.Context()
	h.onConnect(ctx, client)

	client.Serve(
		func(c *ws.Client, msgType string, data json.RawMessage) error {
			return h.route(ctx, c, msgType, data)
		},
		func() { h.onDisconnect(client) },
	)
}

// onConnect подписывает соединение на его группы: пул водителей для роли
// DRIVER и группу каждой незавершенной поездки, где принципал — rider
// или driver. Повторное подключение после обрыва тем самым прозрачно
// для групповых уведомлений.
func (h *TripWSHandler) onConnect(ctx context.Context, c *ws.Client) {
	if c.Principal.HasRole(user.RoleDriver) {
		h.registry.Join(ws.DriverPoolGroup, c)
	}

	active, err := h.trips.FindActiveByParticipant(ctx, c.Principal.ID)
	if err != nil {
		// соединение остается: принципал просто не будет в trip-группах
		// до первого update.trip
		h.log.Error(logger.Entry{
			Action:  "active_trips_lookup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"user_id": c.Principal.ID,
			},
		})
	}
	for _, t := range active {
		h.registry.Join(t.ID, c)
	}

	h.log.Info(logger.Entry{
		Action:  "ws_client_connected",
		Message: c.ID,
		Additional: map[string]any{
			"user_id":     c.Principal.ID,
			"role":        c.Principal.Type,
			"trip_groups": len(active),
		},
	})
}

func (h *TripWSHandler) onDisconnect(c *ws.Client) {
	h.registry.LeaveAll(c)
	h.log.Info(logger.Entry{
		Action:  "ws_client_disconnected",
		Message: c.ID,
	})
}

// route — таблица диспетчеризации протокола
func (h *TripWSHandler) route(ctx context.Context, c *ws.Client, msgType string, data json.RawMessage) error {
	switch msgType {
	case MsgEcho:
		return h.handleEcho(ctx, c, data)
	case MsgCreateTrip:
		return h.handleCreateTrip(ctx, c, data)
	case MsgUpdateTrip:
		return h.handleUpdateTrip(ctx, c, data)
	default:
		h.log.Warn(logger.Entry{
			Action:  "ws_unknown_message_type",
			Message: msgType,
			Additional: map[string]any{
				"client_id": c.ID,
			},
		})
		return h.sendError(c, fmt.Sprintf("unknown message type: %q", msgType))
	}
}

// handleEcho возвращает payload отправителю без изменений. Если payload —
// объект с полем group, сообщение уходит в эту группу (служебный режим
// для тестов и администрирования).
func (h *TripWSHandler) handleEcho(ctx context.Context, c *ws.Client, data json.RawMessage) error {
	out, err := envelope(MsgEcho, data)
	if err != nil {
		return err
	}

	var target struct {
		Group string `json:"group"`
	}
	// payload может быть и не объектом; тогда группа не указана
	_ = json.Unmarshal(data, &target)

	if target.Group != "" {
		return h.registry.Send(ctx, target.Group, out)
	}
	return h.registry.SendTo(c, out)
}

// handleCreateTrip создает поездку, отвечает создателю и рассылает новую
// заявку в пул водителей
func (h *TripWSHandler) handleCreateTrip(ctx context.Context, c *ws.Client, data json.RawMessage) error {
	var input in.CreateTripInput
	if err := json.Unmarshal(data, &input); err != nil {
		return h.sendError(c, "invalid create.trip payload")
	}
	if input.RiderID == "" {
		input.RiderID = c.Principal.ID
	}

	view, err := h.createTrip.Execute(ctx, input)
	if err != nil {
		h.logHandlerError(c, MsgCreateTrip, err)
		return h.sendError(c, err.Error())
	}

	// создатель подписывается на группу своей поездки
	h.registry.Join(view.ID, c)

	out, err := envelope(MsgCreateTrip, view)
	if err != nil {
		return err
	}
	if err := h.registry.SendTo(c, out); err != nil {
		return err
	}

	// все свободные водители видят новую заявку
	return h.registry.Send(ctx, ws.DriverPoolGroup, out)
}

// handleUpdateTrip применяет переход состояния и рассылает обновленную
// запись в группу поездки
func (h *TripWSHandler) handleUpdateTrip(ctx context.Context, c *ws.Client, data json.RawMessage) error {
	var input in.UpdateTripInput
	if err := json.Unmarshal(data, &input); err != nil {
		return h.sendError(c, "invalid update.trip payload")
	}

	view, err := h.updateTrip.Execute(ctx, input)
	if err != nil {
		h.logHandlerError(c, MsgUpdateTrip, err)
		return h.sendError(c, err.Error())
	}

	// обновляющий с этого момента член группы поездки
	h.registry.Join(view.ID, c)

	out, err := envelope(MsgUpdateTrip, view)
	if err != nil {
		return err
	}

	// контрагент (rider или driver) наблюдает изменение; отправитель
	// получает его же как член группы
	return h.registry.Send(ctx, view.ID, out)
}

// sendError доставляет error-сообщение отправителю; соединение остается
// открытым — ошибки локальны для соединения
func (h *TripWSHandler) sendError(c *ws.Client, message string) error {
	out, err := envelope(MsgError, map[string]string{"message": message})
	if err != nil {
		return err
	}
	return h.registry.SendTo(c, out)
}

func (h *TripWSHandler) logHandlerError(c *ws.Client, msgType string, err error) {
	entry := logger.Entry{
		Action:  "ws_handler_error",
		Message: err.Error(),
		Additional: map[string]any{
			"client_id": c.ID,
			"msg_type":  msgType,
		},
	}
	// not-found и валидация — ожидаемые исходы, не ERROR
	if errors.Is(err, domain.ErrTripNotFound) || errors.Is(err, domain.ErrInvalidStatus) || errors.Is(err, domain.ErrMissingAddress) {
		h.log.Warn(entry)
		return
	}
	entry.Error = &logger.ErrObj{Msg: err.Error()}
	h.log.Error(entry)
}

// envelope собирает wire-сообщение {type, data}
func envelope(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}{Type: msgType, Data: data})
}
