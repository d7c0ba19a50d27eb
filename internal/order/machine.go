// Package order 定义订单状态及各操作允许的状态迁移。
// 所有判断均为纯函数，调用方需先完成验签。
package order

import (
	"net/url"
	"strings"

	"merchant-order-api/internal/constant"
)

// Action 判定结果
type Action int

const (
	ActionNone   Action = iota // 返回当前快照，不做修改
	ActionCreate               // 新建订单，状态 pending
	ActionUpdate               // 原地更新 subject/amount/items
	ActionDelete               // 物理删除
	ActionTransition
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionTransition:
		return "transition"
	}
	return "unknown"
}

// DecideSubmit 提交订单。
// existing 为 nil 表示 (merchant_id, trade_no) 尚无订单，此时回调地址的 host 必须与商户域名一致；
// 已有订单仅在 pending 时允许更新，其余状态均为冲突。
func DecideSubmit(existing *Status, merchantDomain, returnURL, notifyURL string) (Action, error) {
	if existing == nil {
		if !HostMatches(returnURL, merchantDomain) || !HostMatches(notifyURL, merchantDomain) {
			return ActionNone, constant.NewDomainMismatch(merchantDomain)
		}
		return ActionCreate, nil
	}
	if existing.Mutable() {
		return ActionUpdate, nil
	}
	return ActionNone, constant.NewConflict()
}

// MatchTradeNo 请求中的 trade_no 必须与订单一致
func MatchTradeNo(stored, given string) error {
	if given == "" || given != stored {
		return constant.NewNotFound(constant.MsgTradeNoMismatch)
	}
	return nil
}

// DecideComplete 完成订单：processing -> done，其余状态原样返回且不报错
func DecideComplete(current Status) (Status, Action) {
	if current == StatusProcessing {
		return StatusDone, ActionTransition
	}
	return current, ActionNone
}

// DecideRemove 删除订单：仅 refunded / cancelled 可删除
func DecideRemove(current Status) (Action, error) {
	if current.Deletable() {
		return ActionDelete, nil
	}
	return ActionNone, constant.NewPolicyError()
}

// HostMatches 比较 URL 的 host（不含端口）与商户域名
func HostMatches(rawURL, domain string) bool {
	if domain == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), domain)
}
