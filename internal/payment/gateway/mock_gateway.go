package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/msdp-platform/msdp-flexstaff/internal/shared/ids"

	"go.uber.org/zap"
)

// MockGateway stands in for the processor in local and demo environments.
// Every call succeeds with generated ids; accounts report fully enabled.
// Webhooks are still signature-checked with the configured secret.
type MockGateway struct {
	webhookSecret string
	logger        *zap.Logger

	mu       sync.Mutex
	accounts map[string]Account
}

func NewMockGateway(webhookSecret string, logger ...*zap.Logger) *MockGateway {
	return &MockGateway{
		webhookSecret: webhookSecret,
		logger:        namedLogger("payment.gateway.mock", logger...),
		accounts:      map[string]Account{},
	}
}

func (g *MockGateway) CreateAccount(_ context.Context, email, country string) (Account, error) {
	acct := Account{
		ID:               "acct_mock_" + strings.ToLower(ids.New()),
		Email:            email,
		Country:          country,
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}
	g.mu.Lock()
	g.accounts[acct.ID] = acct
	g.mu.Unlock()
	g.logger.Info("mock create account", zap.String("account_id", acct.ID))
	return acct, nil
}

func (g *MockGateway) CreateOnboardingLink(_ context.Context, accountID, _, returnURL string) (string, error) {
	return returnURL + "?account=" + accountID, nil
}

func (g *MockGateway) AccountStatus(_ context.Context, accountID string) (Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if acct, ok := g.accounts[accountID]; ok {
		return acct, nil
	}
	return Account{ID: accountID, ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, nil
}

func (g *MockGateway) Charge(_ context.Context, req ChargeRequest) (Charge, error) {
	id := strings.ToLower(ids.New())
	g.logger.Info("mock charge",
		zap.Int64("amount", req.Amount),
		zap.String("idempotency_key", req.IdempotencyKey),
	)
	return Charge{
		IntentID:     "pi_mock_" + id,
		ChargeID:     "ch_mock_" + id,
		ClientSecret: "pi_mock_" + id + "_secret",
		Status:       "succeeded",
	}, nil
}

func (g *MockGateway) Transfer(_ context.Context, req TransferRequest) (Transfer, error) {
	if req.SourceCharge == "" {
		return Transfer{}, ErrNoSourceCharge
	}
	g.logger.Info("mock transfer",
		zap.Int64("amount", req.Amount),
		zap.String("destination", req.Destination),
	)
	return Transfer{ID: "tr_mock_" + strings.ToLower(ids.New())}, nil
}

func (g *MockGateway) Refund(_ context.Context, req RefundRequest) (Refund, error) {
	g.logger.Info("mock refund", zap.String("intent_id", req.IntentID))
	return Refund{ID: "re_mock_" + strings.ToLower(ids.New()), Status: "pending"}, nil
}

func (g *MockGateway) VerifyWebhook(payload []byte, signature string) (Event, error) {
	return parseEvent(payload, signature, g.webhookSecret)
}
