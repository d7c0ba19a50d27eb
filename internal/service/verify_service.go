package service

import (
	"context"

	"merchant-order-api/internal/constant"
	"merchant-order-api/internal/dto"
	mainmodel "merchant-order-api/internal/model/main"
	"merchant-order-api/internal/signature"
)

// verify 验签，失败原因只写日志，对外统一返回 403
func (s *OrderService) verify(ctx context.Context, p *signature.Payload, merchant *mainmodel.Merchant) error {
	verdict := s.codec.InspectPEM(p, merchant.PubKey)
	audit := dto.AuditFrom(ctx)
	audit.VerifyCause = verdict.Cause.String()
	if verdict.OK() {
		return nil
	}
	s.log.WithFields(map[string]interface{}{
		"trace_id":    audit.TraceID,
		"merchant_id": merchant.ID,
		"cause":       verdict.Cause.String(),
	}).Warnf("signature rejected: %s", verdict)
	return constant.NewAuthError()
}
