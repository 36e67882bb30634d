package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopstack/shopstack-payments/internal/checksum"
	"github.com/shopstack/shopstack-payments/internal/domain"
)

// fakeGateway implements domain.PaymentGateway for service tests.
type fakeGateway struct {
	lastIntent  domain.PaymentIntent
	createRaw   json.RawMessage
	createErr   error
	statusResp  *domain.GatewayStatusResponse
	statusErr   error
	statusCalls int
}

func (f *fakeGateway) CreatePayment(ctx context.Context, intent domain.PaymentIntent) (json.RawMessage, error) {
	f.lastIntent = intent
	return f.createRaw, f.createErr
}

func (f *fakeGateway) GetStatus(ctx context.Context, merchantOrderID string) (*domain.GatewayStatusResponse, error) {
	f.statusCalls++
	return f.statusResp, f.statusErr
}

// recordingMailer captures confirmation sends and can be told to fail.
type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendPaymentConfirmation(ctx context.Context, merchantOrderID string, amount float64) error {
	m.sent = append(m.sent, merchantOrderID)
	return m.err
}

func newTestService(gw *fakeGateway, mailer domain.EmailSender) *Service {
	return NewService(gw, checksum.NewSigner("service-test-secret"), mailer, nil)
}

func TestCreatePayment_ConvertsToMinorUnitsOnce(t *testing.T) {
	gw := &fakeGateway{createRaw: json.RawMessage(`{"orderId":"OMO1"}`)}
	svc := newTestService(gw, nil)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		MerchantOrderID: "order-1",
		Amount:          250.75,
		Host:            "shop.example.com",
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if gw.lastIntent.AmountMinor != 25075 {
		t.Errorf("expected 25075 paise for 250.75 rupees, got %d", gw.lastIntent.AmountMinor)
	}
	if gw.lastIntent.ExpireAfter != 1200 {
		t.Errorf("expected 1200s expiry window, got %d", gw.lastIntent.ExpireAfter)
	}
}

func TestCreatePayment_Validation(t *testing.T) {
	svc := newTestService(&fakeGateway{}, nil)

	cases := []CreatePaymentInput{
		{MerchantOrderID: "", Amount: 100},
		{MerchantOrderID: "order-1", Amount: 0},
		{MerchantOrderID: "order-1", Amount: -5},
	}
	for _, in := range cases {
		_, err := svc.CreatePayment(context.Background(), in)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("input %+v: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestCreatePayment_RedirectSchemeSelection(t *testing.T) {
	// http is acceptable only for loopback development hosts; any other
	// host must get https so the redirect never downgrades in production.
	cases := []struct {
		host string
		want string
	}{
		{"localhost:3000", "http://localhost:3000/"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/"},
		{"app.localhost", "http://app.localhost/"},
		{"shop.example.com", "https://shop.example.com/"},
		{"192.168.1.20:8080", "https://192.168.1.20:8080/"},
	}

	for _, tc := range cases {
		gw := &fakeGateway{createRaw: json.RawMessage(`{}`)}
		svc := newTestService(gw, nil)

		_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
			MerchantOrderID: "order-1",
			Amount:          10,
			Host:            tc.host,
		})
		if err != nil {
			t.Fatal(err)
		}
		got := gw.lastIntent.RedirectURL
		if len(got) < len(tc.want) || got[:len(tc.want)] != tc.want {
			t.Errorf("host %q: expected redirect prefix %q, got %q", tc.host, tc.want, got)
		}
	}
}

func TestCreatePayment_GatewayErrorPropagates(t *testing.T) {
	gw := &fakeGateway{createErr: &domain.GatewayHTTPError{StatusCode: 500, Body: []byte(`{"error":"down"}`)}}
	svc := newTestService(gw, nil)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		MerchantOrderID: "order-1",
		Amount:          10,
	})
	if !errors.Is(err, domain.ErrUpstreamGateway) {
		t.Errorf("expected upstream gateway error to propagate, got %v", err)
	}
}

func TestCheckStatus_SignedEnvelopeRoundTrip(t *testing.T) {
	gw := &fakeGateway{statusResp: &domain.GatewayStatusResponse{
		OrderID: "OMO7",
		State:   "COMPLETED",
		Amount:  25075,
	}}
	signer := checksum.NewSigner("service-test-secret")
	svc := NewService(gw, signer, nil, nil)

	envelope, err := svc.CheckStatus(context.Background(), "order-7")
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}

	if envelope.Result.Status != domain.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", envelope.Result.Status)
	}
	if envelope.Code != domain.CodePaymentSuccess {
		t.Errorf("expected PAYMENT_SUCCESS code, got %s", envelope.Code)
	}
	if envelope.Result.Amount != 250.75 {
		t.Errorf("expected 250.75 major units, got %v", envelope.Result.Amount)
	}

	// The envelope checksum must verify against the result it covers.
	ok, err := signer.Verify(envelope.Result, envelope.Checksum)
	if err != nil || !ok {
		t.Errorf("envelope checksum does not verify: ok=%v err=%v", ok, err)
	}
}

func TestCheckStatus_FreshOnEveryCall(t *testing.T) {
	gw := &fakeGateway{statusResp: &domain.GatewayStatusResponse{State: "PENDING", Amount: 100}}
	svc := newTestService(gw, nil)

	for i := 0; i < 3; i++ {
		if _, err := svc.CheckStatus(context.Background(), "order-1"); err != nil {
			t.Fatal(err)
		}
	}
	if gw.statusCalls != 3 {
		t.Errorf("status must hit upstream on every call, got %d calls for 3 queries", gw.statusCalls)
	}
}

func TestCheckStatus_MailerFailureDoesNotFailOperation(t *testing.T) {
	gw := &fakeGateway{statusResp: &domain.GatewayStatusResponse{State: "COMPLETED", Amount: 5000}}
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc := newTestService(gw, mailer)

	envelope, err := svc.CheckStatus(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("a failed confirmation email must not fail the status call: %v", err)
	}
	if envelope.Result.Status != domain.StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", envelope.Result.Status)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected one confirmation attempt, got %d", len(mailer.sent))
	}
}

func TestCheckStatus_NoEmailOnPending(t *testing.T) {
	gw := &fakeGateway{statusResp: &domain.GatewayStatusResponse{State: "PENDING", Amount: 5000}}
	mailer := &recordingMailer{}
	svc := newTestService(gw, mailer)

	if _, err := svc.CheckStatus(context.Background(), "order-1"); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("confirmation email sent for a non-success status")
	}
}

// recordingOrders captures MarkOrderPaid calls and can be told to fail.
type recordingOrders struct {
	marked []string
	err    error
}

func (o *recordingOrders) MarkOrderPaid(ctx context.Context, merchantOrderID, transactionID string) error {
	o.marked = append(o.marked, merchantOrderID)
	return o.err
}

func TestCheckStatus_OrderMarkedPaidOnSuccess(t *testing.T) {
	gw := &fakeGateway{statusResp: &domain.GatewayStatusResponse{
		State:  "COMPLETED",
		Amount: 5000,
		PaymentDetails: []domain.GatewayPaymentDetail{
			{TransactionID: "T42", State: "COMPLETED", Amount: 5000},
		},
	}}
	orders := &recordingOrders{}
	svc := NewService(gw, checksum.NewSigner("service-test-secret"), nil, orders)

	if _, err := svc.CheckStatus(context.Background(), "order-1"); err != nil {
		t.Fatal(err)
	}
	if len(orders.marked) != 1 || orders.marked[0] != "order-1" {
		t.Errorf("expected order-1 marked paid, got %v", orders.marked)
	}
}

func TestCheckStatus_OrderRepoFailureDoesNotFailOperation(t *testing.T) {
	// The document store is a best-effort collaborator, same as email.
	gw := &fakeGateway{statusResp: &domain.GatewayStatusResponse{State: "COMPLETED", Amount: 5000}}
	orders := &recordingOrders{err: errors.New("store unavailable")}
	svc := NewService(gw, checksum.NewSigner("service-test-secret"), nil, orders)

	if _, err := svc.CheckStatus(context.Background(), "order-1"); err != nil {
		t.Fatalf("a failed order update must not fail the status call: %v", err)
	}
}

func TestVerifyClientAssertion(t *testing.T) {
	signer := checksum.NewSigner("service-test-secret")
	svc := NewService(&fakeGateway{}, signer, nil, nil)

	payload := map[string]any{"merchantOrderId": "order-1", "amount": 99.0}
	sum, err := signer.Sign(payload)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.VerifyClientAssertion(payload, sum); err != nil {
		t.Errorf("valid assertion rejected: %v", err)
	}

	payload["amount"] = 1.0
	err = svc.VerifyClientAssertion(payload, sum)
	if !errors.Is(err, domain.ErrIntegrityViolation) {
		t.Errorf("tampered assertion: expected ErrIntegrityViolation, got %v", err)
	}

	err = svc.VerifyClientAssertion(payload, "zz-not-hex")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("malformed hex: expected ErrValidation, got %v", err)
	}
}
