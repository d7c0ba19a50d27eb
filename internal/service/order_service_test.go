package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"merchant-order-api/internal/constant"
	"merchant-order-api/internal/dao"
	"merchant-order-api/internal/dto"
	mainmodel "merchant-order-api/internal/model/main"
	ordermodel "merchant-order-api/internal/model/order"
	"merchant-order-api/internal/order"
	"merchant-order-api/internal/signature"
)

type fakeMerchants map[uint64]*mainmodel.Merchant

func (f fakeMerchants) GetMerchant(_ context.Context, id uint64) (*mainmodel.Merchant, error) {
	m, ok := f[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

type fakeOrders struct {
	mu   sync.Mutex
	rows map[uint64]ordermodel.Order
	// beforeInsert 模拟并发写入
	beforeInsert func(o *ordermodel.Order)
}

func newFakeOrders() *fakeOrders { return &fakeOrders{rows: map[uint64]ordermodel.Order{}} }

func (f *fakeOrders) GetByID(_ context.Context, id uint64) (*ordermodel.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeOrders) GetByMerchantTradeNo(_ context.Context, mid uint64, tradeNo string) (*ordermodel.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.rows {
		if o.MerchantID == mid && o.TradeNo == tradeNo {
			o := o
			return &o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) Insert(_ context.Context, o *ordermodel.Order) error {
	if f.beforeInsert != nil {
		hook := f.beforeInsert
		f.beforeInsert = nil
		hook(o)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.MerchantID == o.MerchantID && r.TradeNo == o.TradeNo {
			return dao.ErrDuplicateTradeNo
		}
	}
	now := time.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	f.rows[o.ID] = *o
	return nil
}

func (f *fakeOrders) UpdateContent(_ context.Context, o *ordermodel.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[o.ID]
	if !ok || r.Status != order.StatusPending {
		return dao.ErrStatusChanged
	}
	r.Subject, r.Amount, r.Items = o.Subject, o.Amount, o.Items
	f.rows[o.ID] = r
	return nil
}

func (f *fakeOrders) TransitionStatus(_ context.Context, id uint64, from, to order.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	f.rows[id] = r
	return true, nil
}

func (f *fakeOrders) DeleteIfDeletable(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || !r.Status.Deletable() {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *fakeOrders) setStatus(id uint64, s order.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.Status = s
	f.rows[id] = r
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []dto.OrderEventMQ
}

func (r *recordingEvents) Publish(_ context.Context, evt dto.OrderEventMQ) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

type fixture struct {
	svc    *OrderService
	orders *fakeOrders
	events *recordingEvents
	priv   ed25519.PrivateKey
	codec  *signature.Codec
}

const merchantID = 7

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	merchants := fakeMerchants{
		merchantID: {ID: merchantID, Domain: "example.com", Status: mainmodel.MerchantStatusAlive,
			PubKey: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))},
	}
	merchants[8] = &mainmodel.Merchant{ID: 8, Domain: "example.com", Status: "frozen", PubKey: merchants[merchantID].PubKey}

	var seq uint64 = 1000
	codec := signature.NewCodec()
	orders := newFakeOrders()
	events := &recordingEvents{}
	svc := NewOrderService(merchants, orders, codec,
		WithEvents(events),
		WithIDGenerator(func() uint64 { return atomic.AddUint64(&seq, 1) }),
	)
	return &fixture{svc: svc, orders: orders, events: events, priv: priv, codec: codec}
}

func (f *fixture) signed(t *testing.T, fields map[string]string, items any) *signature.Payload {
	t.Helper()
	p := signature.NewPayload()
	for k, v := range fields {
		p.Set(k, v)
	}
	if items != nil {
		p.Set(signature.FieldItems, items)
	}
	p.Set(signature.FieldTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	sign, err := f.codec.Sign(p, f.priv)
	require.NoError(t, err)
	p.Set(signature.FieldSign, sign)
	return p
}

func submitFields(subject, amount string) map[string]string {
	return map[string]string{
		"merchandiser_id": strconv.Itoa(merchantID),
		"trade_no":        "T-1001",
		"subject":         subject,
		"amount":          amount,
		"returnUrl":       "https://example.com/return",
		"notifyUrl":       "https://example.com/notify",
	}
}

func codeOf(err error) int { return constant.CodeOf(err) }

func TestSubmit_CreateThenUpdateThenConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.signed(t, submitFields("Coffee", "12.50"), []any{map[string]any{"sku": "A1"}}))
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, first.Status)
	assert.JSONEq(t, `[{"sku":"A1"}]`, string(first.Items))
	assert.Equal(t, "12.50", first.Amount)

	second, err := f.svc.Submit(ctx, f.signed(t, submitFields("Tea", "3"), []any{"x", "y"}))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Tea", second.Subject)
	assert.Equal(t, "3.00", second.Amount)
	assert.JSONEq(t, `["x","y"]`, string(second.Items))
	assert.Equal(t, 1, f.orders.count())

	f.orders.setStatus(first.ID, order.StatusProcessing)
	_, err = f.svc.Submit(ctx, f.signed(t, submitFields("Juice", "5"), nil))
	assert.Equal(t, constant.CodeConflict, codeOf(err))
	assert.EqualError(t, err, "code: 409, message: "+constant.MsgTradeNoExists)

	stored, _ := f.orders.GetByID(ctx, first.ID)
	assert.Equal(t, "Tea", stored.Subject)
	assert.Equal(t, []string{dto.EventOrderCreated, dto.EventOrderUpdated}, f.events.names())
}

func TestSubmit_DomainMismatchCreatesNothing(t *testing.T) {
	f := newFixture(t)
	fields := submitFields("Coffee", "1")
	fields["returnUrl"] = "https://other.com/x"

	_, err := f.svc.Submit(context.Background(), f.signed(t, fields, nil))
	require.Error(t, err)
	assert.Equal(t, constant.CodeValidation, codeOf(err))
	assert.Equal(t, `Your URL must belongs to domain "example.com"`, constant.AsError(err).Message())
	assert.Zero(t, f.orders.count())
}

func TestSubmit_UpdateSkipsDomainCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.signed(t, submitFields("Coffee", "1"), nil))
	require.NoError(t, err)

	fields := submitFields("Coffee", "2")
	fields["notifyUrl"] = "https://other.com/n"
	vo, err := f.svc.Submit(ctx, f.signed(t, fields, nil))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/notify", vo.NotifyURL)
}

func TestSubmit_ValidationBeforeMerchant(t *testing.T) {
	f := newFixture(t)
	fields := submitFields("", "abc")
	fields["merchandiser_id"] = "999"
	fields["returnUrl"] = "not a url"

	_, err := f.svc.Submit(context.Background(), f.signed(t, fields, "oops"))
	require.Error(t, err)
	ce := constant.AsError(err)
	assert.Equal(t, constant.CodeValidation, ce.Code())

	got := map[string]bool{}
	for _, fe := range ce.Data().([]constant.FieldError) {
		got[fe.Field] = true
	}
	assert.True(t, got["subject"])
	assert.True(t, got["amount"])
	assert.True(t, got["returnUrl"])
	assert.True(t, got["items"])
}

func TestSubmit_MerchantMustBeAlive(t *testing.T) {
	f := newFixture(t)
	for _, mid := range []string{"8", "99"} {
		fields := submitFields("Coffee", "1")
		fields["merchandiser_id"] = mid
		_, err := f.svc.Submit(context.Background(), f.signed(t, fields, nil))
		assert.Equal(t, constant.CodeNotFound, codeOf(err), "merchant %s", mid)
	}
}

func TestSubmit_BadSignature(t *testing.T) {
	f := newFixture(t)
	p := f.signed(t, submitFields("Coffee", "1"), nil)
	p.Set("amount", "1000")

	audit := &dto.AuditContextPayload{TraceID: "trace-1"}
	_, err := f.svc.Submit(dto.WithAudit(context.Background(), audit), p)
	assert.Equal(t, constant.CodeAuth, codeOf(err))
	assert.Equal(t, constant.MsgSignatureInvalid, constant.AsError(err).Message())
	assert.Equal(t, signature.CauseMismatch.String(), audit.VerifyCause)
	assert.Zero(t, f.orders.count())
}

func TestSubmit_ItemsNotSigned(t *testing.T) {
	f := newFixture(t)
	p := f.signed(t, submitFields("Coffee", "1"), []any{"a"})
	p.Set(signature.FieldItems, []any{"tampered"})

	vo, err := f.svc.Submit(context.Background(), p)
	require.NoError(t, err)
	assert.JSONEq(t, `["tampered"]`, string(vo.Items))
}

func TestSubmit_LostInsertRaceBecomesUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.orders.beforeInsert = func(o *ordermodel.Order) {
		winner := *o
		winner.ID = 1
		winner.Subject = "winner"
		f.orders.mu.Lock()
		f.orders.rows[winner.ID] = winner
		f.orders.mu.Unlock()
	}

	vo, err := f.svc.Submit(ctx, f.signed(t, submitFields("loser", "1"), nil))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), vo.ID)
	assert.Equal(t, "loser", vo.Subject)
	assert.Equal(t, 1, f.orders.count())
}

func TestSubmit_LostInsertRaceConflict(t *testing.T) {
	f := newFixture(t)
	f.orders.beforeInsert = func(o *ordermodel.Order) {
		winner := *o
		winner.ID = 1
		winner.Status = order.StatusProcessing
		f.orders.mu.Lock()
		f.orders.rows[winner.ID] = winner
		f.orders.mu.Unlock()
	}

	_, err := f.svc.Submit(context.Background(), f.signed(t, submitFields("loser", "1"), nil))
	assert.Equal(t, constant.CodeConflict, codeOf(err))
}

func (f *fixture) seed(t *testing.T, status order.Status) *dto.OrderVO {
	t.Helper()
	vo, err := f.svc.Submit(context.Background(), f.signed(t, submitFields("Coffee", "12.50"), nil))
	require.NoError(t, err)
	f.orders.setStatus(vo.ID, status)
	return vo
}

func TestFetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vo := f.seed(t, order.StatusProcessing)

	got, err := f.svc.Fetch(ctx, vo.ID, f.signed(t, map[string]string{}, nil))
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)

	_, err = f.svc.Fetch(ctx, 424242, f.signed(t, map[string]string{}, nil))
	assert.Equal(t, constant.CodeNotFound, codeOf(err))

	unsigned := signature.NewPayload()
	unsigned.Set(signature.FieldTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	_, err = f.svc.Fetch(ctx, vo.ID, unsigned)
	assert.Equal(t, constant.CodeAuth, codeOf(err))
}

func TestComplete_ProcessingToDoneThenStaysDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vo := f.seed(t, order.StatusProcessing)
	req := map[string]string{"trade_no": "T-1001"}

	got, err := f.svc.Complete(ctx, vo.ID, f.signed(t, req, nil))
	require.NoError(t, err)
	assert.Equal(t, order.StatusDone, got.Status)

	got, err = f.svc.Complete(ctx, vo.ID, f.signed(t, req, nil))
	require.NoError(t, err)
	assert.Equal(t, order.StatusDone, got.Status)
	assert.Contains(t, f.events.names(), dto.EventOrderCompleted)
}

// Complete 对 processing 以外的状态直接返回快照且不报错，这里锁定现有行为
func TestComplete_LooseSuccessOnOtherStatuses(t *testing.T) {
	for _, s := range []order.Status{order.StatusPending, order.StatusRefunded, order.StatusCancelled} {
		f := newFixture(t)
		vo := f.seed(t, s)
		got, err := f.svc.Complete(context.Background(), vo.ID, f.signed(t, map[string]string{"trade_no": "T-1001"}, nil))
		require.NoError(t, err, s)
		assert.Equal(t, s, got.Status)
	}
}

func TestComplete_TradeNoMismatchBeforeSignature(t *testing.T) {
	f := newFixture(t)
	vo := f.seed(t, order.StatusProcessing)

	p := signature.NewPayload()
	p.Set("trade_no", "T-OTHER")
	_, err := f.svc.Complete(context.Background(), vo.ID, p)
	assert.Equal(t, constant.CodeNotFound, codeOf(err))
	assert.Equal(t, constant.MsgTradeNoMismatch, constant.AsError(err).Message())

	stored, _ := f.orders.GetByID(context.Background(), vo.ID)
	assert.Equal(t, order.StatusProcessing, stored.Status)
}

func TestRemove_PendingNotAllowed(t *testing.T) {
	f := newFixture(t)
	vo := f.seed(t, order.StatusPending)

	err := f.svc.Remove(context.Background(), vo.ID, f.signed(t, map[string]string{"trade_no": "T-1001"}, nil))
	assert.Equal(t, constant.CodePolicy, codeOf(err))
	assert.Equal(t, constant.MsgCannotDelete, constant.AsError(err).Message())
	assert.Equal(t, 1, f.orders.count())
}

func TestRemove_RefundedDeleted(t *testing.T) {
	f := newFixture(t)
	vo := f.seed(t, order.StatusRefunded)

	err := f.svc.Remove(context.Background(), vo.ID, f.signed(t, map[string]string{"trade_no": "T-1001"}, nil))
	require.NoError(t, err)
	assert.Zero(t, f.orders.count())
}

func TestRemove_BadSignatureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	vo := f.seed(t, order.StatusCancelled)

	p := f.signed(t, map[string]string{"trade_no": "T-1001"}, nil)
	p.Set(signature.FieldTimestamp, strconv.FormatInt(time.Now().Add(-2*time.Minute).Unix(), 10))
	err := f.svc.Remove(context.Background(), vo.ID, p)
	assert.Equal(t, constant.CodeAuth, codeOf(err))
	assert.Equal(t, 1, f.orders.count())
}

func TestRemove_TradeNoMismatch(t *testing.T) {
	f := newFixture(t)
	vo := f.seed(t, order.StatusRefunded)

	err := f.svc.Remove(context.Background(), vo.ID, f.signed(t, map[string]string{"trade_no": "T-OTHER"}, nil))
	assert.Equal(t, constant.CodeNotFound, codeOf(err))
	assert.Equal(t, constant.MsgTradeNoMismatch, constant.AsError(err).Message())

	stored, err := f.orders.GetByID(context.Background(), vo.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, order.StatusRefunded, stored.Status)
	assert.NotContains(t, f.events.names(), dto.EventOrderRemoved)
}
