package idgen

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultNode 订单号使用的默认节点
const DefaultNode = "default"

var nodeMap sync.Map // map[string]*snowflake.Node

// InitNode 初始化指定名称的 Snowflake 节点
func InitNode(name string, nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("InitNode failed: %w", err)
	}
	nodeMap.Store(name, n)
	return nil
}

// NewFrom 生成指定节点的 ID
func NewFrom(name string) uint64 {
	val, ok := nodeMap.Load(name)
	if !ok {
		panic(fmt.Sprintf("Snowflake node not initialized: %s", name))
	}
	return uint64(val.(*snowflake.Node).Generate().Int64())
}

// New 默认节点生成器
func New() uint64 {
	return NewFrom(DefaultNode)
}

// Generator 供 service 注入，测试时可替换
type Generator func() uint64

// WatchClock 时间回拨检测，回拨时只告警，snowflake 节点内部会等待追平
func WatchClock(stop <-chan struct{}) {
	last := time.Now().UnixMilli()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			current := now.UnixMilli()
			if current < last {
				log.Printf("[IDGen] System clock moved backward: last=%d, now=%d", last, current)
			}
			last = current
		}
	}
}
