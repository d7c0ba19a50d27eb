package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"merchant-order-api/internal/constant"
	"merchant-order-api/internal/dao"
	"merchant-order-api/internal/dto"
	"merchant-order-api/internal/idgen"
	mainmodel "merchant-order-api/internal/model/main"
	ordermodel "merchant-order-api/internal/model/order"
	"merchant-order-api/internal/order"
	"merchant-order-api/internal/signature"
	"merchant-order-api/internal/utils"
)

// MerchantStore 商户只读查询，不存在返回 nil, nil
type MerchantStore interface {
	GetMerchant(ctx context.Context, id uint64) (*mainmodel.Merchant, error)
}

// OrderStore 订单持久化，*dao.OrderDao 实现
type OrderStore interface {
	GetByID(ctx context.Context, id uint64) (*ordermodel.Order, error)
	GetByMerchantTradeNo(ctx context.Context, mid uint64, tradeNo string) (*ordermodel.Order, error)
	Insert(ctx context.Context, o *ordermodel.Order) error
	UpdateContent(ctx context.Context, o *ordermodel.Order) error
	TransitionStatus(ctx context.Context, id uint64, from, to order.Status) (bool, error)
	DeleteIfDeletable(ctx context.Context, id uint64) (bool, error)
}

// EventPublisher 订单事件发布
type EventPublisher interface {
	Publish(ctx context.Context, evt dto.OrderEventMQ) error
}

type OrderService struct {
	merchants MerchantStore
	orders    OrderStore
	events    EventPublisher
	codec     *signature.Codec
	validate  *validator.Validate
	nextID    idgen.Generator
	log       *logrus.Logger
}

type Option func(*OrderService)

// WithEvents 订单事件发布，不设置则不发事件
func WithEvents(p EventPublisher) Option { return func(s *OrderService) { s.events = p } }

// WithIDGenerator 替换订单 ID 生成器
func WithIDGenerator(g idgen.Generator) Option { return func(s *OrderService) { s.nextID = g } }

func WithLogger(l *logrus.Logger) Option { return func(s *OrderService) { s.log = l } }

func NewOrderService(merchants MerchantStore, orders OrderStore, codec *signature.Codec, opts ...Option) *OrderService {
	s := &OrderService{
		merchants: merchants,
		orders:    orders,
		codec:     codec,
		validate:  newValidator(),
		nextID:    idgen.New,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newValidator 错误字段名取 json tag，与请求字段一致
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Submit 创建或更新订单
func (s *OrderService) Submit(ctx context.Context, p *signature.Payload) (*dto.OrderVO, error) {
	audit := dto.AuditFrom(ctx)

	req, mid, amount, items, err := s.bindSubmit(p)
	if err != nil {
		return nil, err
	}
	audit.MerchantID = mid
	audit.TradeNo = req.TradeNo

	merchant, err := s.merchants.GetMerchant(ctx, mid)
	if err != nil {
		return nil, constant.NewInternal(err)
	}
	if !merchant.Alive() {
		return nil, constant.NewNotFound(constant.MsgMerchantNotFound)
	}
	if err := s.verify(ctx, p, merchant); err != nil {
		return nil, err
	}

	existing, err := s.orders.GetByMerchantTradeNo(ctx, mid, req.TradeNo)
	if err != nil {
		return nil, constant.NewInternal(err)
	}

	if existing == nil {
		if _, err := order.DecideSubmit(nil, merchant.Domain, req.ReturnURL, req.NotifyURL); err != nil {
			return nil, err
		}
		m := &ordermodel.Order{
			ID:         s.nextID(),
			MerchantID: mid,
			TradeNo:    req.TradeNo,
			Subject:    req.Subject,
			Amount:     amount,
			Items:      items,
			ReturnURL:  req.ReturnURL,
			NotifyURL:  req.NotifyURL,
			Status:     order.StatusPending,
		}
		err := s.orders.Insert(ctx, m)
		if err == nil {
			audit.OrderID = m.ID
			s.publish(ctx, dto.EventOrderCreated, m)
			return toVO(m), nil
		}
		if !errors.Is(err, dao.ErrDuplicateTradeNo) {
			return nil, constant.NewInternal(err)
		}
		// 并发创建失败，以先写入者为准走更新或冲突分支
		existing, err = s.orders.GetByMerchantTradeNo(ctx, mid, req.TradeNo)
		if err != nil {
			return nil, constant.NewInternal(err)
		}
		if existing == nil {
			return nil, constant.NewInternal(fmt.Errorf("order %d/%s vanished after duplicate insert", mid, req.TradeNo))
		}
	}

	audit.OrderID = existing.ID
	if _, err := order.DecideSubmit(&existing.Status, merchant.Domain, req.ReturnURL, req.NotifyURL); err != nil {
		return nil, err
	}
	existing.Subject = req.Subject
	existing.Amount = amount
	existing.Items = items
	if err := s.orders.UpdateContent(ctx, existing); err != nil {
		if errors.Is(err, dao.ErrStatusChanged) {
			return nil, constant.NewConflict()
		}
		return nil, constant.NewInternal(err)
	}
	s.publish(ctx, dto.EventOrderUpdated, existing)
	return toVO(existing), nil
}

// Fetch 查询订单快照
func (s *OrderService) Fetch(ctx context.Context, id uint64, p *signature.Payload) (*dto.OrderVO, error) {
	o, _, err := s.loadVerified(ctx, id, p, false)
	if err != nil {
		return nil, err
	}
	return toVO(o), nil
}

// Complete processing -> done；其余状态原样返回
func (s *OrderService) Complete(ctx context.Context, id uint64, p *signature.Payload) (*dto.OrderVO, error) {
	o, _, err := s.loadVerified(ctx, id, p, true)
	if err != nil {
		return nil, err
	}

	next, action := order.DecideComplete(o.Status)
	if action != order.ActionTransition {
		return toVO(o), nil
	}
	ok, err := s.orders.TransitionStatus(ctx, o.ID, o.Status, next)
	if err != nil {
		return nil, constant.NewInternal(err)
	}
	if !ok {
		// 状态已被并发修改，返回最新快照
		latest, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, constant.NewInternal(err)
		}
		if latest == nil {
			return nil, constant.NewNotFound(constant.MsgOrderNotFound)
		}
		return toVO(latest), nil
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	s.publish(ctx, dto.EventOrderCompleted, o)
	return toVO(o), nil
}

// Remove 删除 refunded / cancelled 订单，成功时 data 为 null
func (s *OrderService) Remove(ctx context.Context, id uint64, p *signature.Payload) error {
	o, _, err := s.loadVerified(ctx, id, p, true)
	if err != nil {
		return err
	}
	if _, err := order.DecideRemove(o.Status); err != nil {
		return err
	}
	deleted, err := s.orders.DeleteIfDeletable(ctx, o.ID)
	if err != nil {
		return constant.NewInternal(err)
	}
	if !deleted {
		latest, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return constant.NewInternal(err)
		}
		if latest != nil {
			return constant.NewPolicyError()
		}
	}
	s.publish(ctx, dto.EventOrderRemoved, o)
	return nil
}

// loadVerified 订单 -> 所属商户 -> trade_no 比对（可选）-> 验签
func (s *OrderService) loadVerified(ctx context.Context, id uint64, p *signature.Payload, matchTradeNo bool) (*ordermodel.Order, *mainmodel.Merchant, error) {
	audit := dto.AuditFrom(ctx)
	audit.OrderID = id
	audit.TradeNo = p.String("trade_no")

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, nil, constant.NewInternal(err)
	}
	if o == nil {
		return nil, nil, constant.NewNotFound(constant.MsgOrderNotFound)
	}
	audit.MerchantID = o.MerchantID

	merchant, err := s.merchants.GetMerchant(ctx, o.MerchantID)
	if err != nil {
		return nil, nil, constant.NewInternal(err)
	}
	if merchant == nil {
		return nil, nil, constant.NewNotFound(constant.MsgMerchantNotFound)
	}
	if matchTradeNo {
		if err := order.MatchTradeNo(o.TradeNo, p.String("trade_no")); err != nil {
			return nil, nil, err
		}
	}
	if err := s.verify(ctx, p, merchant); err != nil {
		return nil, nil, err
	}
	return o, merchant, nil
}

// bindSubmit 字段校验并转换 merchandiser_id / amount / items
func (s *OrderService) bindSubmit(p *signature.Payload) (dto.SubmitOrderReq, uint64, decimal.Decimal, datatypes.JSON, error) {
	req := dto.SubmitOrderReq{
		MerchandiserID: p.String("merchandiser_id"),
		TradeNo:        p.String("trade_no"),
		Subject:        p.String("subject"),
		Amount:         p.String("amount"),
		ReturnURL:      p.String("returnUrl"),
		NotifyURL:      p.String("notifyUrl"),
	}
	req.Items, _ = p.Get(signature.FieldItems)

	var fields []constant.FieldError
	if err := s.validate.Struct(req); err != nil {
		fields = utils.ValidationMsg(err)
	}
	items, itemsErr := encodeItems(req.Items)
	if itemsErr != nil {
		fields = append(fields, constant.FieldError{Field: signature.FieldItems, Error: "The items must be an array."})
	}
	if len(fields) > 0 {
		return req, 0, decimal.Zero, nil, constant.NewValidationError(constant.MsgInvalidParams, fields...)
	}

	mid, err := strconv.ParseUint(req.MerchandiserID, 10, 64)
	if err != nil {
		return req, 0, decimal.Zero, nil, constant.NewValidationError(constant.MsgInvalidParams,
			constant.FieldError{Field: "merchandiser_id", Error: "The merchandiser id must be an integer."})
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return req, 0, decimal.Zero, nil, constant.NewValidationError(constant.MsgInvalidParams,
			constant.FieldError{Field: "amount", Error: "The amount must be a number."})
	}
	return req, mid, amount, items, nil
}

// encodeItems items 可缺省，存在时必须是数组或关联数组
func encodeItems(v any) (datatypes.JSON, error) {
	switch v.(type) {
	case nil:
		return nil, nil
	case []any, []string, map[string]any:
	default:
		return nil, fmt.Errorf("items must be a list, got %T", v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (s *OrderService) publish(ctx context.Context, event string, o *ordermodel.Order) {
	if s.events == nil {
		return
	}
	evt := dto.OrderEventMQ{
		Event:      event,
		OrderID:    o.ID,
		MerchantID: o.MerchantID,
		TradeNo:    o.TradeNo,
		Status:     o.Status.String(),
		Amount:     o.AmountString(),
		NotifyURL:  o.NotifyURL,
		OccurredAt: time.Now().Unix(),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.WithError(err).WithField("trace_id", dto.AuditFrom(ctx).TraceID).
			Warnf("publish %s failed, order=%d", event, o.ID)
	}
}

// amountConverter 快照金额按列精度输出，"12.50" 不会变成 "12.5"
var amountConverter = copier.TypeConverter{
	SrcType: decimal.Decimal{},
	DstType: copier.String,
	Fn: func(src interface{}) (interface{}, error) {
		d, ok := src.(decimal.Decimal)
		if !ok {
			return nil, fmt.Errorf("amount: unexpected %T", src)
		}
		return d.StringFixed(ordermodel.AmountScale), nil
	},
}

func toVO(m *ordermodel.Order) *dto.OrderVO {
	var vo dto.OrderVO
	_ = copier.CopyWithOption(&vo, m, copier.Option{Converters: []copier.TypeConverter{amountConverter}})
	return &vo
}
