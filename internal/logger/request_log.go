package logger

import (
	"log"

	"gorm.io/gorm"

	"merchant-order-api/internal/dto"
	ordermodel "merchant-order-api/internal/model/order"
)

// AuditWriter 审计日志写入
type AuditWriter interface {
	Write(payload *dto.AuditContextPayload)
}

// DBAuditWriter 异步写入 order_request_log
type DBAuditWriter struct {
	DB *gorm.DB
}

func NewDBAuditWriter(db *gorm.DB) *DBAuditWriter {
	return &DBAuditWriter{DB: db}
}

// Write 写入请求日志
func (w *DBAuditWriter) Write(payload *dto.AuditContextPayload) {
	if payload == nil {
		log.Printf("[AuditLogger] payload 为空，跳过写入")
		return
	}
	if w == nil || w.DB == nil {
		return
	}
	entry := ordermodel.OrderRequestLog{
		OrderID:      payload.OrderID,
		MerchantID:   payload.MerchantID,
		TradeNo:      payload.TradeNo,
		Operation:    payload.Operation,
		TraceID:      payload.TraceID,
		RequestBody:  payload.RequestBody,
		ResponseBody: payload.ResponseBody,
		Status:       payload.Status,
		VerifyCause:  payload.VerifyCause,
		ErrorMsg:     payload.ErrorMsg,
		IP:           payload.IP,
		UserAgent:    payload.UserAgent,
		LatencyMs:    payload.LatencyMs,
		CreatedAt:    payload.StartTime,
	}

	go func(entry ordermodel.OrderRequestLog) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[AuditLogger] goroutine panic: trace_id=%s, err=%v", entry.TraceID, r)
			}
		}()

		if err := w.DB.Create(&entry).Error; err != nil {
			log.Printf("[AuditLogger] 写入失败: trace_id=%s, err=%v", entry.TraceID, err)
		}
	}(entry)
}
