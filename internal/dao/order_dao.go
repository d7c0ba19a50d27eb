package dao

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"merchant-order-api/internal/dal"
	ordermodel "merchant-order-api/internal/model/order"
	"merchant-order-api/internal/order"
)

var (
	// ErrDuplicateTradeNo (merchandiser_id, trade_no) 唯一键冲突
	ErrDuplicateTradeNo = errors.New("duplicate trade_no for merchant")
	// ErrStatusChanged 条件更新未命中，订单状态已被并发修改
	ErrStatusChanged = errors.New("order status changed")
)

type OrderDao struct {
	DB *gorm.DB
}

// 工厂方法：默认使用 dal.OrderDB
func NewOrderDao() *OrderDao {
	if dal.OrderDB == nil {
		log.Panic("[FATAL] dal.OrderDB is nil - database not initialized")
	}
	return &OrderDao{DB: dal.OrderDB}
}

// 支持传入自定义 DB（比如 txDB）
func NewOrderDaoWithDB(db *gorm.DB) *OrderDao {
	if db == nil {
		log.Panic("[FATAL] db cannot be nil")
	}
	return &OrderDao{DB: db}
}

// 安全检查方法
func (r *OrderDao) checkDB() error {
	if r == nil {
		return errors.New("OrderDao is nil")
	}
	if r.DB == nil {
		return errors.New("DB connection is nil")
	}
	return nil
}

// GetByID 根据 id 获取订单，不存在返回 nil, nil
func (r *OrderDao) GetByID(ctx context.Context, id uint64) (*ordermodel.Order, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("get by id failed: %w", err)
	}

	var m ordermodel.Order
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &m, nil
}

// GetByMerchantTradeNo 根据商户 + 商户订单号获取订单
func (r *OrderDao) GetByMerchantTradeNo(ctx context.Context, mid uint64, tradeNo string) (*ordermodel.Order, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("get by trade_no failed: %w", err)
	}

	var m ordermodel.Order
	err := r.DB.WithContext(ctx).Where("merchandiser_id = ? AND trade_no = ?", mid, tradeNo).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &m, nil
}

// Insert 插入订单，唯一键冲突返回 ErrDuplicateTradeNo
func (r *OrderDao) Insert(ctx context.Context, o *ordermodel.Order) error {
	if err := r.checkDB(); err != nil {
		return fmt.Errorf("insert order failed: %w", err)
	}
	err := r.DB.WithContext(ctx).Create(o).Error
	if isDuplicateKey(err) {
		return ErrDuplicateTradeNo
	}
	if err != nil {
		return fmt.Errorf("insert order failed: %w", err)
	}
	return nil
}

// UpdateContent 覆盖 subject/amount/items，仅 pending 状态命中
func (r *OrderDao) UpdateContent(ctx context.Context, o *ordermodel.Order) error {
	if err := r.checkDB(); err != nil {
		return fmt.Errorf("update order failed: %w", err)
	}
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&ordermodel.Order{}).
		Where("id = ? AND status = ?", o.ID, order.StatusPending).
		Updates(map[string]interface{}{
			"subject":    o.Subject,
			"amount":     o.Amount,
			"items":      o.Items,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("update order failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	o.UpdatedAt = now
	return nil
}

// TransitionStatus from -> to 的条件更新，返回是否命中
func (r *OrderDao) TransitionStatus(ctx context.Context, id uint64, from, to order.Status) (bool, error) {
	if err := r.checkDB(); err != nil {
		return false, fmt.Errorf("transition status failed: %w", err)
	}
	res := r.DB.WithContext(ctx).Model(&ordermodel.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition status failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteIfDeletable 仅删除 refunded / cancelled 订单，返回是否命中
func (r *OrderDao) DeleteIfDeletable(ctx context.Context, id uint64) (bool, error) {
	if err := r.checkDB(); err != nil {
		return false, fmt.Errorf("delete order failed: %w", err)
	}
	res := r.DB.WithContext(ctx).
		Where("id = ? AND status IN ?", id, []order.Status{order.StatusRefunded, order.StatusCancelled}).
		Delete(&ordermodel.Order{})
	if res.Error != nil {
		return false, fmt.Errorf("delete order failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// isDuplicateKey 未开启 TranslateError 的驱动按错误文本兜底
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
