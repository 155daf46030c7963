package gateway_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

func sign(payload string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestVerifyWebhook(t *testing.T) {
	g := gateway.NewMockGateway(testSecret)

	t.Run("payment intent succeeded", func(t *testing.T) {
		payload := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","latest_charge":"ch_1"}}}`

		ev, err := g.VerifyWebhook([]byte(payload), sign(payload))

		assert.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, gateway.EventIntentSucceeded, ev.Type)
		assert.Equal(t, "pi_1", ev.IntentID)
		assert.Equal(t, "ch_1", ev.ChargeID)
		assert.Equal(t, payload, string(ev.Raw))
	})

	t.Run("payment failed carries reason", func(t *testing.T) {
		payload := `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","object":"payment_intent","last_payment_error":{"message":"card declined"}}}}`

		ev, err := g.VerifyWebhook([]byte(payload), sign(payload))

		assert.NoError(t, err)
		assert.Equal(t, "pi_2", ev.IntentID)
		assert.Equal(t, "card declined", ev.FailureMessage)
	})

	t.Run("charge refunded resolves intent", func(t *testing.T) {
		payload := `{"id":"evt_3","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_3","object":"charge","payment_intent":"pi_3"}}}`

		ev, err := g.VerifyWebhook([]byte(payload), sign(payload))

		assert.NoError(t, err)
		assert.Equal(t, "pi_3", ev.IntentID)
		assert.Equal(t, "ch_3", ev.ChargeID)
	})

	t.Run("tampered body", func(t *testing.T) {
		payload := `{"id":"evt_4","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_4"}}}`
		header := sign(payload)

		_, err := g.VerifyWebhook([]byte(strings.Replace(payload, "pi_4", "pi_5", 1)), header)
		assert.ErrorIs(t, err, gateway.ErrInvalidSignature)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := gateway.NewMockGateway("").VerifyWebhook([]byte(`{}`), "t=1,v1=abc")
		assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	})
}

func TestMockGateway(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewMockGateway(testSecret)

	acct, err := g.CreateAccount(ctx, "worker@example.com", "GB")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(acct.ID, "acct_mock_"))

	status, err := g.AccountStatus(ctx, acct.ID)
	assert.NoError(t, err)
	assert.Equal(t, "worker@example.com", status.Email)
	assert.True(t, status.PayoutsEnabled)

	ch, err := g.Charge(ctx, gateway.ChargeRequest{Amount: 4375, Currency: "gbp"})
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(ch.IntentID, "pi_mock_"))
	assert.NotEmpty(t, ch.ChargeID)

	tr, err := g.Transfer(ctx, gateway.TransferRequest{Amount: 3937, Currency: "gbp", Destination: acct.ID, SourceCharge: ch.ChargeID})
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(tr.ID, "tr_mock_"))

	_, err = g.Transfer(ctx, gateway.TransferRequest{Amount: 3937, Currency: "gbp", Destination: acct.ID})
	assert.ErrorIs(t, err, gateway.ErrNoSourceCharge)
}

func TestStripeGateway_TransferNeedsSourceCharge(t *testing.T) {
	g, err := gateway.NewStripeGateway("sk_test_123", testSecret)
	assert.NoError(t, err)

	_, err = g.Transfer(context.Background(), gateway.TransferRequest{Amount: 3937, Currency: "gbp", Destination: "acct_worker"})
	assert.ErrorIs(t, err, gateway.ErrNoSourceCharge)
}

func TestNew(t *testing.T) {
	g, err := gateway.New(gateway.Config{Mock: true, WebhookSecret: testSecret})
	assert.NoError(t, err)
	assert.IsType(t, &gateway.MockGateway{}, g)

	_, err = gateway.New(gateway.Config{})
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)

	g, err = gateway.New(gateway.Config{SecretKey: "sk_test_123"})
	assert.NoError(t, err)
	assert.IsType(t, &gateway.StripeGateway{}, g)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")
	t.Setenv("PAYMENT_GATEWAY_MOCK", " Yes ")

	cfg := gateway.ConfigFromEnv()
	assert.Equal(t, "sk_test_1", cfg.SecretKey)
	assert.Equal(t, "whsec_1", cfg.WebhookSecret)
	assert.True(t, cfg.Mock)
}
