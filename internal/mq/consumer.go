package mq

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"merchant-order-api/internal/dal"
	"merchant-order-api/internal/dto"
	"merchant-order-api/internal/signature"
	"merchant-order-api/internal/utils"
)

// Notifier 向商户 notifyUrl 推送签名后的订单完成通知
type Notifier struct {
	Codec  *signature.Codec
	Key    crypto.Signer
	Client *http.Client
	Now    func() time.Time
}

// BuildPayload 通知内容，签名覆盖 sign 以外的全部字段
func (n *Notifier) BuildPayload(evt dto.OrderEventMQ) (*signature.Payload, error) {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	p := signature.NewPayload()
	p.Set("order_id", evt.OrderID)
	p.Set("trade_no", evt.TradeNo)
	p.Set("status", evt.Status)
	p.Set("amount", evt.Amount)
	p.Set(signature.FieldTimestamp, now().Unix())

	sign, err := n.Codec.Sign(p, n.Key)
	if err != nil {
		return nil, fmt.Errorf("sign notify payload: %w", err)
	}
	p.Set(signature.FieldSign, sign)
	return p, nil
}

// Notify 单次推送，非 2xx 视为失败
func (n *Notifier) Notify(ctx context.Context, evt dto.OrderEventMQ) error {
	if evt.NotifyURL == "" {
		return fmt.Errorf("order %d has no notify url", evt.OrderID)
	}
	p, err := n.BuildPayload(evt)
	if err != nil {
		return err
	}
	_, err = utils.HttpPostJson(ctx, n.Client, evt.NotifyURL, p)
	return err
}

// Consumer 消费 order.completed 事件并通知商户，失败按 retry_count 重新入队
type Consumer struct {
	Queue      string
	Notifier   *Notifier
	MaxRetry   int
	RetryDelay time.Duration
	// Requeue 重新投递，默认走 Publisher.Requeue
	Requeue func(ctx context.Context, queue string, evt dto.OrderEventMQ) error
	// Alerter 重试耗尽后告警，可为空
	Alerter Alerter
	// Subscribe 订阅队列，默认取 dal 通道 Consume
	Subscribe func(queue string) (<-chan amqp.Delivery, error)
	// ResubscribeDelay 断线后重新订阅的间隔，默认 5s
	ResubscribeDelay time.Duration
	Log              *logrus.Logger
}

// Alerter 运维告警，*notify.Telegram 实现
type Alerter interface {
	Alert(title string, fields map[string]string)
}

// Start 阻塞消费直到 ctx 结束，通道断开后等待重连并重新订阅
func (c *Consumer) Start(ctx context.Context) error {
	log := c.logger()
	for {
		msgs, err := c.subscribe()
		if err != nil {
			log.WithError(err).Warnf("[Notify] subscribe queue=%s failed, retry in %s", c.Queue, c.resubscribeDelay())
		} else {
			log.Infof("[Notify] consuming queue=%s", c.Queue)
			if err := c.drain(ctx, msgs); err != nil {
				return err
			}
			log.Warnf("[Notify] deliveries closed queue=%s, resubscribing", c.Queue)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.resubscribeDelay()):
		}
	}
}

// drain 消费到通道关闭（返回 nil）或 ctx 结束
func (c *Consumer) drain(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			go c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	if c.Subscribe != nil {
		return c.Subscribe(c.Queue)
	}
	ch := dal.GetChannel()
	if ch == nil {
		return nil, ErrNoChannel
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s failed: %w", c.Queue, err)
	}
	return msgs, nil
}

func (c *Consumer) resubscribeDelay() time.Duration {
	if c.ResubscribeDelay > 0 {
		return c.ResubscribeDelay
	}
	return 5 * time.Second
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	if err := c.Handle(ctx, d.Body); err != nil {
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Handle 处理单条消息。返回 nil 表示消息已处理完毕（成功、已重新入队或放弃）
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	log := c.logger()
	var evt dto.OrderEventMQ
	if err := json.Unmarshal(body, &evt); err != nil {
		log.WithError(err).Error("[Notify] unmarshal event failed")
		return err
	}
	if evt.Event != dto.EventOrderCompleted {
		return nil
	}

	err := c.Notifier.Notify(ctx, evt)
	if err == nil {
		log.Infof("[Notify] notify success order=%d trade_no=%s", evt.OrderID, evt.TradeNo)
		return nil
	}
	log.WithError(err).Warnf("[Notify] notify failed order=%d attempt=%d", evt.OrderID, evt.RetryCount+1)

	if evt.RetryCount >= c.MaxRetry {
		log.Errorf("[Notify] max retry reached order=%d", evt.OrderID)
		if c.Alerter != nil {
			c.Alerter.Alert("商户通知重试耗尽", map[string]string{
				"order_id":   strconv.FormatUint(evt.OrderID, 10),
				"trade_no":   evt.TradeNo,
				"notify_url": evt.NotifyURL,
				"error":      err.Error(),
			})
		}
		return nil
	}
	evt.RetryCount++
	if c.RetryDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
	if c.Requeue == nil {
		return fmt.Errorf("requeue not configured: %w", err)
	}
	if rerr := c.Requeue(ctx, c.Queue, evt); rerr != nil {
		log.WithError(rerr).Errorf("[Notify] requeue failed order=%d", evt.OrderID)
		return rerr
	}
	return nil
}

func (c *Consumer) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}
