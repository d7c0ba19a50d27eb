package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"merchant-order-api/internal/dal"
	"merchant-order-api/internal/dto"
)

// ErrNoChannel MQ 未初始化
var ErrNoChannel = errors.New("rabbitmq channel not initialized")

// Publisher 订单事件发布，routing key 为事件名
type Publisher struct {
	Exchange string
	channel  func() *amqp.Channel
	log      *logrus.Logger
}

func NewPublisher(exchange string, log *logrus.Logger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{Exchange: exchange, channel: dal.GetChannel, log: log}
}

// Publish 发布订单事件；MQ 未启用时静默跳过，事件丢失不影响主流程
func (p *Publisher) Publish(ctx context.Context, evt dto.OrderEventMQ) error {
	if evt.OccurredAt == 0 {
		evt.OccurredAt = time.Now().Unix()
	}
	err := p.publish(ctx, p.Exchange, evt.Event, evt)
	if errors.Is(err, ErrNoChannel) {
		return nil
	}
	if err != nil {
		p.log.WithError(err).Errorf("publish %s failed, order=%d", evt.Event, evt.OrderID)
	}
	return err
}

// Requeue 直接投递到指定队列（默认交换机），用于通知重试
func (p *Publisher) Requeue(ctx context.Context, queue string, evt dto.OrderEventMQ) error {
	return p.publish(ctx, "", queue, evt)
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, evt dto.OrderEventMQ) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := p.channel()
	if ch == nil {
		return ErrNoChannel
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return ch.Publish(exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Unix(evt.OccurredAt, 0),
		Body:         b,
	})
}
