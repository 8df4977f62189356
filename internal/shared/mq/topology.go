package mq

import (
	"fmt"

	"github.com/yangakandeni/kwella/internal/shared/logger"
)

// GroupFanoutExchange — exchange для рассылки групповых сообщений между
// инстансами trip-service. Каждый инстанс слушает свою эксклюзивную очередь.
const GroupFanoutExchange = "ws.groups"

// SetupTopology создает exchange для распределенного group registry
// и возвращает имя эксклюзивной очереди этого инстанса.
func SetupTopology(mq *RabbitMQ, log *logger.Logger) (queueName string, err error) {
	ch := mq.Channel()
	if ch == nil {
		return "", fmt.Errorf("rabbitmq channel not available")
	}

	if err := ch.ExchangeDeclare(
		GroupFanoutExchange,
		"fanout",
		false, // durable: групповые сообщения эфемерны
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // args
	); err != nil {
		return "", fmt.Errorf("declare %s: %w", GroupFanoutExchange, err)
	}

	// Эксклюзивная auto-delete очередь: имя генерирует брокер,
	// очередь исчезает вместе с соединением инстанса.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare instance queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", GroupFanoutExchange, false, nil); err != nil {
		return "", fmt.Errorf("bind %s to %s: %w", q.Name, GroupFanoutExchange, err)
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: fmt.Sprintf("bound instance queue %s to %s", q.Name, GroupFanoutExchange),
	})

	return q.Name, nil
}
