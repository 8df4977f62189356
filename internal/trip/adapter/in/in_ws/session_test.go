package in_ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yangakandeni/kwella/internal/shared/auth"
	"github.com/yangakandeni/kwella/internal/shared/config"
	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/user"
	"github.com/yangakandeni/kwella/internal/shared/ws"
	"github.com/yangakandeni/kwella/internal/trip/application/usecase"
	"github.com/yangakandeni/kwella/internal/trip/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTripRepo struct {
	mu    sync.Mutex
	trips map[string]domain.Trip
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[string]domain.Trip)}
}

func (r *fakeTripRepo) Create(_ context.Context, t *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[t.ID] = *t
	return nil
}

func (r *fakeTripRepo) FindByID(_ context.Context, id string) (*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, domain.ErrTripNotFound
	}
	copied := t
	return &copied, nil
}

func (r *fakeTripRepo) Update(_ context.Context, t *domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[t.ID]; !ok {
		return domain.ErrTripNotFound
	}
	r.trips[t.ID] = *t
	return nil
}

func (r *fakeTripRepo) FindActiveByParticipant(_ context.Context, userID string) ([]*domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Trip
	for _, t := range r.trips {
		if !t.IsActive() {
			continue
		}
		if (t.RiderID != nil && *t.RiderID == userID) || (t.DriverID != nil && *t.DriverID == userID) {
			copied := t
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]user.User
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]user.User)}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	copied := u
	return &copied, nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

// harness — полный стек сессии на InMemoryRegistry и fake-репозиториях
type harness struct {
	server   *httptest.Server
	registry *ws.InMemoryRegistry
	trips    *fakeTripRepo
	users    *fakeUserRepo
	jwt      *auth.JWTService
}

func newHarness(t *testing.T, users ...*user.User) *harness {
	t.Helper()

	log := logger.NewLogger("test")
	log.SetOutput(io.Discard, io.Discard)

	trips := newFakeTripRepo()
	userRepo := newFakeUserRepo(users...)
	registry := ws.NewInMemoryRegistry(log)
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "test_secret", ExpiryMinutes: 60})

	handler := NewTripWSHandler(
		registry,
		NewAuthenticator(jwtSvc, userRepo, log),
		usecase.NewCreateTripService(trips, userRepo, log),
		usecase.NewUpdateTripService(trips, userRepo, log),
		trips,
		log,
	)

	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	t.Cleanup(server.Close)

	return &harness{
		server:   server,
		registry: registry,
		trips:    trips,
		users:    userRepo,
		jwt:      jwtSvc,
	}
}

func (h *harness) tokenFor(t *testing.T, u *user.User) string {
	t.Helper()
	token, err := h.jwt.GenerateToken(u.ID, u.PhoneNumber, string(u.Type))
	require.NoError(t, err)
	return token
}

// dial открывает WebSocket соединение; token == "" — без query-параметра
func (h *harness) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) dialAs(t *testing.T, u *user.User) *websocket.Conn {
	t.Helper()
	return h.dial(t, h.tokenFor(t, u))
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type tripPayload struct {
	ID      string       `json:"id"`
	Pickup  string       `json:"pickup"`
	Dropoff string       `json:"dropoff"`
	Status  string       `json:"status"`
	Rider   *user.Public `json:"rider"`
	Driver  *user.Public `json:"driver"`
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": msgType, "data": data}))
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readTrip(t *testing.T, conn *websocket.Conn, wantType string) tripPayload {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, wantType, msg.Type)
	var trip tripPayload
	require.NoError(t, json.Unmarshal(msg.Data, &trip))
	return trip
}

// waitGroupSize ждет асинхронного вступления в группу
func waitGroupSize(t *testing.T, h *harness, group string, size int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.registry.Size(group) == size
	}, 2*time.Second, 10*time.Millisecond, "group %s did not reach size %d", group, size)
}

func activeRider(id, phone string) *user.User {
	u := user.NewRider(id, phone)
	u.IsActive = true
	return u
}

func activeDriver(id, phone string) *user.User {
	u := user.NewDriver(id, phone)
	u.IsActive = true
	return u
}

func TestConnectWithValidToken(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, rider)

	conn := h.dialAs(t, rider)

	send(t, conn, MsgEcho, map[string]string{"message": "hello"})
	msg := readMessage(t, conn)
	assert.Equal(t, MsgEcho, msg.Type)
	assert.JSONEq(t, `{"message":"hello"}`, string(msg.Data))
}

func TestAnonymousConnectionClosedAfterHandshake(t *testing.T) {
	h := newHarness(t)

	for name, token := range map[string]string{
		"no token":      "",
		"invalid token": "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			// рукопожатие всегда успешно; закрытие приходит следом
			conn := h.dial(t, token)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			_, _, err := conn.ReadMessage()
			require.Error(t, err)
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "expected policy violation close, got: %v", err)
		})
	}
}

func TestInactiveUserNotAdmitted(t *testing.T) {
	dormant := user.NewRider("rider-1", "0731245689") // IsActive == false
	h := newHarness(t, dormant)

	conn := h.dial(t, h.tokenFor(t, dormant))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestCreateTripResponse(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, rider)

	conn := h.dialAs(t, rider)
	send(t, conn, MsgCreateTrip, map[string]string{
		"pickup":  "123 Street Home Address",
		"dropoff": "456 Street Destination",
	})

	trip := readTrip(t, conn, MsgCreateTrip)
	assert.NotEmpty(t, trip.ID)
	assert.Equal(t, "REQUESTED", trip.Status)
	assert.Equal(t, "123 Street Home Address", trip.Pickup)
	assert.Equal(t, "456 Street Destination", trip.Dropoff)
	require.NotNil(t, trip.Rider)
	assert.Equal(t, rider.ID, trip.Rider.ID)
	assert.Equal(t, rider.PhoneNumber, trip.Rider.PhoneNumber)
	assert.Nil(t, trip.Driver)

	// создатель — член группы своей поездки
	waitGroupSize(t, h, trip.ID, 1)
}

func TestDriverJoinsPoolOnConnect(t *testing.T) {
	driver := activeDriver("driver-1", "0839840202")
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, driver, rider)

	h.dialAs(t, driver)
	waitGroupSize(t, h, ws.DriverPoolGroup, 1)

	// rider в пул не попадает
	h.dialAs(t, rider)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.registry.Size(ws.DriverPoolGroup))
}

func TestDriverPoolReceivesCreateBroadcast(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	driver := activeDriver("driver-1", "0839840202")
	h := newHarness(t, rider, driver)

	driverConn := h.dialAs(t, driver)
	waitGroupSize(t, h, ws.DriverPoolGroup, 1)

	riderConn := h.dialAs(t, rider)
	send(t, riderConn, MsgCreateTrip, map[string]string{
		"pickup":  "123 Street Home Address",
		"dropoff": "456 Street Destination",
	})
	_ = readTrip(t, riderConn, MsgCreateTrip)

	broadcast := readTrip(t, driverConn, MsgCreateTrip)
	assert.Equal(t, "REQUESTED", broadcast.Status)
	require.NotNil(t, broadcast.Rider)
	assert.Equal(t, rider.PhoneNumber, broadcast.Rider.PhoneNumber)
}

func TestParticipantsAutoJoinActiveTripOnConnect(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	driver := activeDriver("driver-1", "0839840202")
	h := newHarness(t, rider, driver)

	riderID, driverID := rider.ID, driver.ID
	require.NoError(t, h.trips.Create(context.Background(), &domain.Trip{
		ID:       "trip-1",
		Pickup:   "A",
		Dropoff:  "B",
		Status:   domain.StatusStarted,
		RiderID:  &riderID,
		DriverID: &driverID,
	}))

	h.dialAs(t, rider)
	waitGroupSize(t, h, "trip-1", 1)

	h.dialAs(t, driver)
	waitGroupSize(t, h, "trip-1", 2)
}

func TestCompletedTripNotJoinedOnConnect(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, rider)

	riderID := rider.ID
	require.NoError(t, h.trips.Create(context.Background(), &domain.Trip{
		ID:      "trip-done",
		Pickup:  "A",
		Dropoff: "B",
		Status:  domain.StatusCompleted,
		RiderID: &riderID,
	}))

	conn := h.dialAs(t, rider)
	// соединение живое, но в группу завершенной поездки не вступает
	send(t, conn, MsgEcho, map[string]string{"message": "ping"})
	_ = readMessage(t, conn)
	assert.Equal(t, 0, h.registry.Size("trip-done"))
}

func TestUpdateTripBroadcastToTripGroup(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	driver := activeDriver("driver-1", "0839840202")
	h := newHarness(t, rider, driver)

	riderConn := h.dialAs(t, rider)
	send(t, riderConn, MsgCreateTrip, map[string]string{
		"pickup":  "123 Street Home Address",
		"dropoff": "456 Street Destination",
	})
	created := readTrip(t, riderConn, MsgCreateTrip)
	waitGroupSize(t, h, created.ID, 1)

	driverConn := h.dialAs(t, driver)
	send(t, driverConn, MsgUpdateTrip, map[string]string{
		"id":     created.ID,
		"status": "STARTED",
		"driver": driver.ID,
	})

	// rider наблюдает изменение как член группы поездки
	update := readTrip(t, riderConn, MsgUpdateTrip)
	assert.Equal(t, created.ID, update.ID)
	assert.Equal(t, "STARTED", update.Status)
	require.NotNil(t, update.Driver)
	assert.Equal(t, driver.ID, update.Driver.ID)

	// обновляющий вступил в группу и тоже получает broadcast
	got := readTrip(t, driverConn, MsgUpdateTrip)
	assert.Equal(t, "STARTED", got.Status)
	waitGroupSize(t, h, created.ID, 2)
}

func TestEchoToNamedGroup(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	driver := activeDriver("driver-1", "0839840202")
	h := newHarness(t, rider, driver)

	driverConn := h.dialAs(t, driver)
	waitGroupSize(t, h, ws.DriverPoolGroup, 1)

	riderConn := h.dialAs(t, rider)
	send(t, riderConn, MsgEcho, map[string]string{
		"group":   ws.DriverPoolGroup,
		"message": "pool announcement",
	})

	msg := readMessage(t, driverConn)
	assert.Equal(t, MsgEcho, msg.Type)
	assert.Contains(t, string(msg.Data), "pool announcement")
}

func TestUnknownMessageType(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, rider)

	conn := h.dialAs(t, rider)
	send(t, conn, "no.such.type", map[string]string{})

	msg := readMessage(t, conn)
	assert.Equal(t, MsgError, msg.Type)
	assert.Contains(t, string(msg.Data), `unknown message type`)

	// ошибка локальна: соединение продолжает работать
	send(t, conn, MsgEcho, map[string]string{"message": "still here"})
	echo := readMessage(t, conn)
	assert.Equal(t, MsgEcho, echo.Type)
}

func TestCreateTripValidationError(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, rider)

	conn := h.dialAs(t, rider)
	send(t, conn, MsgCreateTrip, map[string]string{"pickup": "only pickup"})

	msg := readMessage(t, conn)
	assert.Equal(t, MsgError, msg.Type)

	send(t, conn, MsgEcho, map[string]string{"message": "alive"})
	echo := readMessage(t, conn)
	assert.Equal(t, MsgEcho, echo.Type)
}

func TestUpdateUnknownTripReturnsError(t *testing.T) {
	rider := activeRider("rider-1", "0731245689")
	h := newHarness(t, rider)

	conn := h.dialAs(t, rider)
	send(t, conn, MsgUpdateTrip, map[string]string{"id": "missing", "status": "STARTED"})

	msg := readMessage(t, conn)
	assert.Equal(t, MsgError, msg.Type)
}

func TestDisconnectLeavesAllGroups(t *testing.T) {
	driver := activeDriver("driver-1", "0839840202")
	h := newHarness(t, driver)

	conn := h.dialAs(t, driver)
	waitGroupSize(t, h, ws.DriverPoolGroup, 1)

	require.NoError(t, conn.Close())
	waitGroupSize(t, h, ws.DriverPoolGroup, 0)
}

func TestConcurrentSessions(t *testing.T) {
	var users []*user.User
	for i := 0; i < 8; i++ {
		users = append(users, activeRider(fmt.Sprintf("rider-%d", i), fmt.Sprintf("07312456%02d", i)))
	}
	h := newHarness(t, users...)

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u *user.User) {
			defer wg.Done()
			conn := h.dialAs(t, u)
			send(t, conn, MsgCreateTrip, map[string]string{
				"pickup":  "123 Street Home Address",
				"dropoff": "456 Street Destination",
			})
			trip := readTrip(t, conn, MsgCreateTrip)
			assert.Equal(t, "REQUESTED", trip.Status)
			require.NotNil(t, trip.Rider)
			assert.Equal(t, u.ID, trip.Rider.ID)
		}(u)
	}
	wg.Wait()
}
