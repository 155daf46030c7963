package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeGateway settles through Stripe Connect. Employers and workers hold
// Express accounts; the platform charges on behalf of the employer and
// transfers the worker's share from that charge.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, logger ...*zap.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrNotConfigured
	}
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		logger:        namedLogger("payment.gateway.stripe", logger...),
	}, nil
}

func (g *StripeGateway) CreateAccount(ctx context.Context, email, country string) (Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(country),
		Email:   stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx

	acct, err := g.api.Accounts.New(params)
	if err != nil {
		g.logger.Error("create account failed", zap.Error(err))
		return Account{}, err
	}
	g.logger.Info("create account success", zap.String("account_id", acct.ID))
	return toAccount(acct), nil
}

func (g *StripeGateway) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		g.logger.Error("create onboarding link failed", zap.String("account_id", accountID), zap.Error(err))
		return "", err
	}
	return link.URL, nil
}

func (g *StripeGateway) AccountStatus(ctx context.Context, accountID string) (Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := g.api.Accounts.GetByID(accountID, params)
	if err != nil {
		g.logger.Error("account status failed", zap.String("account_id", accountID), zap.Error(err))
		return Account{}, err
	}
	return toAccount(acct), nil
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		TransferGroup: stripe.String(req.TransferGroup),
	}
	if req.OnBehalfOf != "" {
		params.OnBehalfOf = stripe.String(req.OnBehalfOf)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("create payment intent failed",
			zap.String("transfer_group", req.TransferGroup),
			zap.Error(err),
		)
		return Charge{}, err
	}

	out := Charge{IntentID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}
	if pi.LatestCharge != nil {
		out.ChargeID = pi.LatestCharge.ID
	}
	g.logger.Info("create payment intent success",
		zap.String("intent_id", pi.ID),
		zap.String("status", out.Status),
	)
	return out, nil
}

func (g *StripeGateway) Transfer(ctx context.Context, req TransferRequest) (Transfer, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Destination:   stripe.String(req.Destination),
		TransferGroup: stripe.String(req.TransferGroup),
	}
	if req.SourceCharge == "" {
		return Transfer{}, ErrNoSourceCharge
	}
	params.SourceTransaction = stripe.String(req.SourceCharge)
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	tr, err := g.api.Transfers.New(params)
	if err != nil {
		g.logger.Error("create transfer failed",
			zap.String("destination", req.Destination),
			zap.Error(err),
		)
		return Transfer{}, err
	}
	g.logger.Info("create transfer success", zap.String("transfer_id", tr.ID))
	return Transfer{ID: tr.ID}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
	}
	if req.Amount > 0 {
		params.Amount = stripe.Int64(req.Amount)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	r, err := g.api.Refunds.New(params)
	if err != nil {
		g.logger.Error("create refund failed", zap.String("intent_id", req.IntentID), zap.Error(err))
		return Refund{}, err
	}
	return Refund{ID: r.ID, Status: string(r.Status)}, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (Event, error) {
	return parseEvent(payload, signature, g.webhookSecret)
}

func toAccount(a *stripe.Account) Account {
	return Account{
		ID:               a.ID,
		Email:            a.Email,
		Country:          a.Country,
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
	}
}
