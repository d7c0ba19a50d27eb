package idgen

import (
	"log"
	"os"
	"strconv"
)

// Init 初始化默认节点，SNOWFLAKE_NODE_ID 环境变量优先于配置（多实例部署）
func Init(cfgNode int64) {
	nodeID := cfgNode
	if s := os.Getenv("SNOWFLAKE_NODE_ID"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			log.Fatalf("[IDGen] Invalid SNOWFLAKE_NODE_ID: %v", s)
		}
		nodeID = v
	}
	if nodeID < 0 || nodeID > 1023 {
		log.Fatalf("[IDGen] node id out of range: %d", nodeID)
	}
	if err := InitNode(DefaultNode, nodeID); err != nil {
		log.Fatalf("[IDGen] InitNode failed: %v", err)
	}
	log.Printf("[IDGen] Snowflake node initialized: nodeID=%d", nodeID)
}
