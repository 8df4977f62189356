package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/yangakandeni/kwella/internal/shared/logger"
)

// DriverPoolGroup — фиксированная группа всех водителей онлайн.
// Существует все время жизни процесса; сюда рассылаются новые заявки.
const DriverPoolGroup = "drivers"

// Registry — реестр групп: именованные fan-out цели для сообщений.
// Dispatch-сессии зависят только от этого интерфейса; за ним стоит либо
// InMemoryRegistry (один инстанс, тесты), либо AMQPRegistry (несколько
// инстансов через RabbitMQ).
type Registry interface {
	// Join добавляет соединение в группу. Идемпотентен.
	Join(group string, c *Client)

	// Leave убирает соединение из группы. Leave несуществующей группы
	// или не-члена — no-op.
	Leave(group string, c *Client)

	// LeaveAll убирает соединение из всех его групп (disconnect)
	LeaveAll(c *Client)

	// Send доставляет message всем текущим членам группы.
	// Пустая группа — тихий no-op.
	Send(ctx context.Context, group string, message []byte) error

	// SendTo доставляет message одному соединению, минуя группы
	SendTo(c *Client, message []byte) error
}

// memberSet — членство одной группы со своим локом, чтобы fan-out
// по разным группам не сериализовался за общим мьютексом.
type memberSet struct {
	mu      sync.RWMutex
	members map[*Client]struct{}
}

// InMemoryRegistry — однопроцессная реализация Registry.
// Группа создается неявно при первом Join и удаляется на последнем
// Leave: membership и есть reference count, sweep-процесс не нужен.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	groups   map[string]*memberSet
	byClient map[*Client]map[string]struct{}
	log      *logger.Logger
}

// NewInMemoryRegistry создает пустой реестр
func NewInMemoryRegistry(log *logger.Logger) *InMemoryRegistry {
	return &InMemoryRegistry{
		groups:   make(map[string]*memberSet),
		byClient: make(map[*Client]map[string]struct{}),
		log:      log,
	}
}

// Join добавляет соединение в группу
func (r *InMemoryRegistry) Join(group string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[group]
	if !ok {
		g = &memberSet{members: make(map[*Client]struct{})}
		r.groups[group] = g
	}
	g.mu.Lock()
	g.members[c] = struct{}{}
	g.mu.Unlock()

	if r.byClient[c] == nil {
		r.byClient[c] = make(map[string]struct{})
	}
	r.byClient[c][group] = struct{}{}
}

// Leave убирает соединение из группы, удаляя опустевшую группу
func (r *InMemoryRegistry) Leave(group string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(group, c)
}

// LeaveAll убирает соединение из всех групп
func (r *InMemoryRegistry) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for group := range r.byClient[c] {
		r.leaveLocked(group, c)
	}
}

func (r *InMemoryRegistry) leaveLocked(group string, c *Client) {
	if g, ok := r.groups[group]; ok {
		g.mu.Lock()
		delete(g.members, c)
		empty := len(g.members) == 0
		g.mu.Unlock()
		if empty {
			delete(r.groups, group)
		}
	}
	if groups, ok := r.byClient[c]; ok {
		delete(groups, group)
		if len(groups) == 0 {
			delete(r.byClient, c)
		}
	}
}

// Send рассылает message членам группы. Снимок membership берется
// атомарно под локом; доставка идет вне лока, поэтому клиент,
// входящий/выходящий во время fan-out, может это сообщение не получить.
func (r *InMemoryRegistry) Send(ctx context.Context, group string, message []byte) error {
	r.mu.RLock()
	g, ok := r.groups[group]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	g.mu.RLock()
	snapshot := make([]*Client, 0, len(g.members))
	for c := range g.members {
		snapshot = append(snapshot, c)
	}
	g.mu.RUnlock()

	for _, c := range snapshot {
		if err := c.Send(message); err != nil {
			// медленный или закрытый клиент не должен ломать fan-out
			r.log.Warn(logger.Entry{
				Action:  "group_send_skipped",
				Message: c.ID,
				Additional: map[string]any{
					"group":  group,
					"reason": err.Error(),
				},
			})
		}
	}
	return nil
}

// SendTo доставляет message одному соединению
func (r *InMemoryRegistry) SendTo(c *Client, message []byte) error {
	return c.Send(message)
}

// SendJSON сериализует и рассылает значение в группу
func SendJSON(ctx context.Context, r Registry, group string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Send(ctx, group, b)
}

// Size возвращает число членов группы (для тестов и health-метрик)
func (r *InMemoryRegistry) Size(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if g, ok := r.groups[group]; ok {
		g.mu.RLock()
		defer g.mu.RUnlock()
		return len(g.members)
	}
	return 0
}

// Groups возвращает группы, в которых состоит соединение
func (r *InMemoryRegistry) Groups(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for group := range r.byClient[c] {
		out = append(out, group)
	}
	return out
}
