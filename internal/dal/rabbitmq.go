package dal

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"merchant-order-api/internal/config"
	"merchant-order-api/internal/dto"
)

var (
	mqConn    *amqp.Connection
	mqChannel *amqp.Channel

	mu sync.Mutex

	// 用 NotifyClose 事件来判断是否已关闭（而不是 IsClosed）
	connClosedCh chan *amqp.Error
	chClosedCh   chan *amqp.Error

	reconnecting bool
	// initialized 首次 InitRabbitMQ 已调用，之后断线才自动重连
	initialized bool

	// reconnectDelay 重连间隔
	reconnectDelay = 5 * time.Second
)

// InitRabbitMQ 初始化（首次连接）
func InitRabbitMQ() error {
	mu.Lock()
	initialized = true
	mu.Unlock()
	return connect()
}

// -------- 内部：连接与自愈 --------

func connect() error {
	mu.Lock()
	defer mu.Unlock()

	if isConnAlive() && isChanAlive() {
		return nil
	}

	// 旧连接可能还活着（只有通道断开），先关掉
	if isConnAlive() {
		_ = mqConn.Close()
	}
	resetLocked()

	c := config.C.RabbitMQ
	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}
	mqConn = conn
	connClosedCh = conn.NotifyClose(make(chan *amqp.Error, 1))

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		mqConn = nil
		connClosedCh = nil
		return fmt.Errorf("创建通道失败: %w", err)
	}
	mqChannel = ch
	chClosedCh = ch.NotifyClose(make(chan *amqp.Error, 1))

	if pc := c.PrefetchCount; pc > 0 {
		if err := ch.Qos(pc, 0, false); err != nil {
			log.Printf("[RabbitMQ] 设置 QoS 失败: %v", err)
		}
	}
	if err := declareTopology(ch, c); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		resetLocked()
		return err
	}

	log.Printf("[RabbitMQ] 初始化成功 → exchange=%s queue=%s", c.Exchange, c.NotifyQueue)

	// 后台监听关闭事件
	go watchClose()

	return nil
}

// resetLocked 清空连接状态，调用方持有 mu
func resetLocked() {
	mqConn, mqChannel = nil, nil
	connClosedCh, chClosedCh = nil, nil
}

// declareTopology 交换机 + 通知队列，通知队列只订阅完成事件
func declareTopology(ch *amqp.Channel, c config.RabbitCfg) error {
	if err := ch.ExchangeDeclare(c.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}
	if _, err := ch.QueueDeclare(c.NotifyQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s failed: %w", c.NotifyQueue, err)
	}
	if err := ch.QueueBind(c.NotifyQueue, dto.EventOrderCompleted, c.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s failed: %w", c.NotifyQueue, err)
	}
	return nil
}

// 监听关闭事件，触发重连
func watchClose() {
	select {
	case err, ok := <-connClosedCh:
		if ok {
			log.Printf("[RabbitMQ] 连接关闭: %v", err)
			reconnect()
		}
	case err, ok := <-chClosedCh:
		if ok {
			log.Printf("[RabbitMQ] 通道关闭: %v", err)
			reconnect()
		}
	}
}

// 自愈重连，重试直至成功或 CloseRabbitMQ
func reconnect() {
	mu.Lock()
	if reconnecting {
		mu.Unlock()
		return
	}
	reconnecting = true
	mu.Unlock()

	defer func() {
		mu.Lock()
		reconnecting = false
		mu.Unlock()
	}()

	for {
		mu.Lock()
		stop := !initialized
		mu.Unlock()
		if stop {
			return
		}
		log.Println("[RabbitMQ] 正在重连...")
		if err := connect(); err == nil {
			log.Println("[RabbitMQ] 重连成功")
			return
		}
		time.Sleep(reconnectDelay)
	}
}

// -------- 状态判断（不用 IsClosed） --------

func isConnAlive() bool {
	if mqConn == nil || connClosedCh == nil {
		return false
	}
	select {
	case <-connClosedCh: // 一旦能读到，说明已关闭
		return false
	default:
		return true
	}
}

func isChanAlive() bool {
	if mqChannel == nil || chClosedCh == nil {
		return false
	}
	select {
	case <-chClosedCh:
		return false
	default:
		return true
	}
}

// -------- 对外获取 --------

// GetChannel 获取可用通道，不阻塞。
// 未初始化或通道不可用时返回 nil，已初始化过则在后台重连
func GetChannel() *amqp.Channel {
	mu.Lock()
	defer mu.Unlock()
	if isChanAlive() {
		return mqChannel
	}
	if initialized && !reconnecting {
		go reconnect()
	}
	return nil
}

// CloseRabbitMQ 关闭连接
func CloseRabbitMQ() {
	mu.Lock()
	defer mu.Unlock()
	if mqChannel != nil {
		_ = mqChannel.Close()
	}
	if mqConn != nil {
		_ = mqConn.Close()
	}
	initialized = false
	resetLocked()
}
