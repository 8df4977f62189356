package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yangakandeni/kwella/internal/shared/logger"
	"github.com/yangakandeni/kwella/internal/shared/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// groupEnvelope — формат сообщения в fanout exchange между инстансами
type groupEnvelope struct {
	Group   string          `json:"group"`
	Message json.RawMessage `json:"message"`
}

// AMQPRegistry — распределенная реализация Registry поверх RabbitMQ.
// Membership остается локальным (соединения живут в своем инстансе);
// Send публикуется в fanout exchange, и каждый инстанс — включая
// отправителя — доставляет сообщение своим локальным членам группы.
type AMQPRegistry struct {
	local *InMemoryRegistry
	conn  *mq.RabbitMQ
	log   *logger.Logger
}

// NewAMQPRegistry создает распределенный реестр и запускает consumer
// на эксклюзивной очереди инстанса (см. mq.SetupTopology).
func NewAMQPRegistry(ctx context.Context, conn *mq.RabbitMQ, queueName string, log *logger.Logger) (*AMQPRegistry, error) {
	r := &AMQPRegistry{
		local: NewInMemoryRegistry(log),
		conn:  conn,
		log:   log,
	}

	err := conn.Consume(ctx, queueName, "group-registry", func(d amqp.Delivery) {
		var env groupEnvelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			log.Error(logger.Entry{
				Action:  "group_envelope_parse_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			return
		}
		_ = r.local.Send(ctx, env.Group, env.Message)
	})
	if err != nil {
		return nil, fmt.Errorf("start group consumer: %w", err)
	}

	return r, nil
}

func (r *AMQPRegistry) Join(group string, c *Client) { r.local.Join(group, c) }

func (r *AMQPRegistry) Leave(group string, c *Client) { r.local.Leave(group, c) }

func (r *AMQPRegistry) LeaveAll(c *Client) { r.local.LeaveAll(c) }

// Send публикует сообщение в fanout exchange. Локальная доставка
// произойдет, когда брокер вернет сообщение в очередь этого инстанса.
func (r *AMQPRegistry) Send(ctx context.Context, group string, message []byte) error {
	body, err := json.Marshal(groupEnvelope{Group: group, Message: message})
	if err != nil {
		return err
	}
	if err := r.conn.Publish(ctx, mq.GroupFanoutExchange, "", body); err != nil {
		return fmt.Errorf("publish group message: %w", err)
	}
	return nil
}

func (r *AMQPRegistry) SendTo(c *Client, message []byte) error {
	return r.local.SendTo(c, message)
}
