package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka"
	"github.com/msdp-platform/msdp-flexstaff/internal/obs"
	paymenterrors "github.com/msdp-platform/msdp-flexstaff/internal/payment/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment/webhookarchive"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/ids"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/money"
	"github.com/msdp-platform/msdp-flexstaff/internal/timesheet"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"

	DefaultFeeBasisPoints = 1000
	defaultCountry        = "GB"
	paymentMethodCard     = "card"

	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Config carries the settlement settings read from the environment.
type Config struct {
	FeeBasisPoints int64
	RefreshURL     string
	ReturnURL      string
}

// ConfigFromEnv reads PLATFORM_FEE_PERCENT (default 10), PAYOUT_REFRESH_URL
// and PAYOUT_RETURN_URL.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		FeeBasisPoints: DefaultFeeBasisPoints,
		RefreshURL:     getenvDefault("PAYOUT_REFRESH_URL", "http://localhost:3000/settings/payment/refresh"),
		ReturnURL:      getenvDefault("PAYOUT_RETURN_URL", "http://localhost:3000/settings/payment/complete"),
	}
	if v := os.Getenv("PLATFORM_FEE_PERCENT"); v != "" {
		bps, err := money.ParsePercent(v)
		if err != nil {
			return Config{}, fmt.Errorf("PLATFORM_FEE_PERCENT: %w", err)
		}
		cfg.FeeBasisPoints = bps
	}
	return cfg, nil
}

//go:generate mockgen -source=payment_service.go -destination=mock/payment_service_mock.go -package=mock
type Service interface {
	Process(ctx context.Context, employerID, timesheetID string) (ProcessPaymentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	CreatePayoutAccount(ctx context.Context, a actor.Actor, req CreatePayoutAccountRequest) (PayoutAccountResponse, error)
	GetPayoutAccountStatus(ctx context.Context, a actor.Actor) (PayoutAccountResponse, error)
	Refund(ctx context.Context, adminID, paymentID, reason string) (PaymentResponse, error)
	List(ctx context.Context, a actor.Actor, filter ListFilter) ([]PaymentResponse, int64, error)
	GetByID(ctx context.Context, a actor.Actor, id string) (PaymentResponse, error)
}

type service struct {
	db      *sql.DB
	repo    Repository
	gateway gateway.Gateway
	outbox  kafka.OutboxRepository
	archive webhookarchive.Archive
	cfg     Config
	logger  *zap.Logger
}

// NewService wires settlement. archive may be nil, in which case webhook
// redeliveries rely on the guarded status updates alone.
func NewService(
	db *sql.DB,
	repo Repository,
	gw gateway.Gateway,
	outbox kafka.OutboxRepository,
	archive webhookarchive.Archive,
	cfg Config,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("payment.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("payment.service")
	}
	if cfg.FeeBasisPoints == 0 {
		cfg.FeeBasisPoints = DefaultFeeBasisPoints
	}
	return &service{
		db:      db,
		repo:    repo,
		gateway: gw,
		outbox:  outbox,
		archive: archive,
		cfg:     cfg,
		logger:  l,
	}
}

// Process charges the employer for an approved timesheet and transfers the
// worker's share to their payout account from that charge. When the intent
// still needs confirming the transfer is made on payment_intent.succeeded.
// The payment row is written only after the processor accepted the calls; a
// failed payment is retried in place with the next attempt number.
func (s *service) Process(ctx context.Context, employerID, timesheetID string) (ProcessPaymentResponse, error) {
	s.logger.Debug("process payment requested",
		zap.String("employer_id", employerID),
		zap.String("timesheet_id", timesheetID),
	)

	if _, err := uuid.Parse(timesheetID); err != nil {
		return ProcessPaymentResponse{}, paymenterrors.ErrInvalidTimesheetID
	}

	src, err := s.repo.LoadSettlementSource(ctx, employerID, timesheetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProcessPaymentResponse{}, paymenterrors.ErrTimesheetNotFound
		}
		s.logger.Error("process payment load failed", zap.Error(err))
		return ProcessPaymentResponse{}, err
	}
	if src.Status != timesheet.StatusApproved {
		s.logger.Warn("process payment rejected",
			zap.String("timesheet_id", timesheetID),
			zap.String("status", src.Status),
		)
		obs.SettlementOutcome("rejected")
		return ProcessPaymentResponse{}, paymenterrors.ErrTimesheetNotApproved
	}
	if isBlank(src.EmployerPayoutAccountID) {
		obs.SettlementOutcome("rejected")
		return ProcessPaymentResponse{}, paymenterrors.ErrEmployerPayoutMissing
	}
	if isBlank(src.WorkerPayoutAccountID) {
		obs.SettlementOutcome("rejected")
		return ProcessPaymentResponse{}, paymenterrors.ErrWorkerPayoutMissing
	}

	existing, err := s.repo.FindByTimesheet(ctx, timesheetID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = nil
	case err != nil:
		s.logger.Error("process payment lookup failed", zap.Error(err))
		return ProcessPaymentResponse{}, err
	}

	attempt := 1
	if existing != nil {
		switch existing.Status {
		case StatusProcessing:
			obs.SettlementOutcome("rejected")
			return ProcessPaymentResponse{}, paymenterrors.ErrAlreadyProcessing
		case StatusCompleted, StatusRefunded:
			obs.SettlementOutcome("rejected")
			return ProcessPaymentResponse{}, paymenterrors.ErrAlreadySettled
		}
		attempt = existing.Attempts + 1
	}

	fee, net := money.Split(src.TotalAmount, s.cfg.FeeBasisPoints)

	charge, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		Amount:         src.TotalAmount,
		Currency:       money.CurrencyGBP,
		OnBehalfOf:     *src.EmployerPayoutAccountID,
		TransferGroup:  "TS-" + timesheetID,
		Description:    "Shift payment for timesheet " + timesheetID,
		IdempotencyKey: fmt.Sprintf("settle:%s:%d:charge", timesheetID, attempt),
		Metadata: map[string]string{
			"timesheet_id": timesheetID,
			"employer_id":  src.EmployerID.String(),
			"worker_id":    src.WorkerID.String(),
			"platform_fee": fmt.Sprintf("%d", fee),
		},
	})
	if err != nil {
		return ProcessPaymentResponse{}, s.processorFailure("charge", timesheetID, err)
	}

	// An unconfirmed intent has no charge yet. The worker's transfer then
	// waits for payment_intent.succeeded so it is always sourced from the
	// employer's charge.
	var transferID *string
	if charge.ChargeID != "" {
		transfer, err := s.transferNet(ctx, timesheetID, attempt, net, *src.WorkerPayoutAccountID, charge.ChargeID)
		if err != nil {
			return ProcessPaymentResponse{}, s.processorFailure("transfer", timesheetID, err)
		}
		transferID = optional(transfer.ID)
	} else {
		s.logger.Info("process payment transfer deferred",
			zap.String("timesheet_id", timesheetID),
			zap.String("intent_id", charge.IntentID),
			zap.String("intent_status", charge.Status),
		)
	}

	now := time.Now().UTC()
	p := &Payment{
		ID:                  uuid.New(),
		Reference:           ids.PaymentReference(),
		TimesheetID:         src.TimesheetID,
		EmployerID:          src.EmployerID,
		WorkerID:            src.WorkerID,
		Amount:              src.TotalAmount,
		PlatformFee:         fee,
		NetAmount:           net,
		FeeBasisPoints:      s.cfg.FeeBasisPoints,
		Currency:            money.CurrencyGBP,
		ProcessorIntentID:   charge.IntentID,
		ProcessorChargeID:   optional(charge.ChargeID),
		ProcessorTransferID: transferID,
		Status:              StatusProcessing,
		Attempts:            attempt,
		PaymentMethod:       paymentMethodCard,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if existing != nil {
		p.ID = existing.ID
		p.Reference = existing.Reference
		p.CreatedAt = existing.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("process payment begin tx failed", zap.Error(err))
		return ProcessPaymentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if existing == nil {
		if err := qtx.Create(ctx, p); err != nil {
			if isUniqueViolation(err) {
				obs.SettlementOutcome("rejected")
				return ProcessPaymentResponse{}, paymenterrors.ErrAlreadyProcessing
			}
			s.logger.Error("process payment persist failed", zap.Error(err))
			return ProcessPaymentResponse{}, err
		}
	} else {
		ok, err := qtx.Retry(ctx, p)
		if err != nil {
			s.logger.Error("process payment retry persist failed", zap.Error(err))
			return ProcessPaymentResponse{}, err
		}
		if !ok {
			obs.SettlementOutcome("rejected")
			return ProcessPaymentResponse{}, paymenterrors.ErrAlreadyProcessing
		}
	}

	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     events.PaymentProcessing,
		AggregateType: "payment",
		AggregateID:   p.ID.String(),
		Recipients:    []events.Recipient{{Role: actor.RoleWorker, ID: p.WorkerID.String()}},
		Title:         "Payment on its way",
		Message:       fmt.Sprintf("£%s is being paid out for your shift", money.FormatPence(net)),
		Data: map[string]any{
			"payment_id":   p.ID.String(),
			"timesheet_id": timesheetID,
			"reference":    p.Reference,
			"attempt":      attempt,
		},
	}); err != nil {
		s.logger.Error("process payment outbox failed", zap.Error(err))
		return ProcessPaymentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("process payment commit failed", zap.Error(err))
		return ProcessPaymentResponse{}, err
	}

	obs.SettlementOutcome("processing")
	s.logger.Info("process payment success",
		zap.String("payment_id", p.ID.String()),
		zap.String("reference", p.Reference),
		zap.String("timesheet_id", timesheetID),
		zap.Int("attempt", attempt),
		zap.Int64("amount", p.Amount),
		zap.Int64("platform_fee", fee),
	)
	return ProcessPaymentResponse{
		PaymentID:    p.ID.String(),
		Reference:    p.Reference,
		Status:       p.Status,
		Amount:       p.Amount,
		PlatformFee:  p.PlatformFee,
		NetAmount:    p.NetAmount,
		Currency:     p.Currency,
		Attempts:     p.Attempts,
		ClientSecret: clientSecretFor(charge),
	}, nil
}

// transferNet pays the worker's share out of chargeID. The key matches
// between Process and the webhook so the processor creates one transfer
// per attempt.
func (s *service) transferNet(ctx context.Context, timesheetID string, attempt int, net int64, destination, chargeID string) (gateway.Transfer, error) {
	if chargeID == "" {
		return gateway.Transfer{}, paymenterrors.ErrTransferSourceMissing
	}
	return s.gateway.Transfer(ctx, gateway.TransferRequest{
		Amount:         net,
		Currency:       money.CurrencyGBP,
		Destination:    destination,
		SourceCharge:   chargeID,
		TransferGroup:  "TS-" + timesheetID,
		IdempotencyKey: fmt.Sprintf("settle:%s:%d:transfer", timesheetID, attempt),
	})
}

func clientSecretFor(c gateway.Charge) string {
	if c.ChargeID != "" {
		return ""
	}
	return c.ClientSecret
}

func (s *service) processorFailure(step, timesheetID string, err error) error {
	obs.SettlementOutcome("processor_error")
	s.logger.Error("process payment "+step+" failed",
		zap.String("timesheet_id", timesheetID),
		zap.Error(err),
	)
	return paymenterrors.ErrProcessor.WithCause(err)
}

type webhookTransition struct {
	from      string
	to        string
	eventType string
	title     string
	fields    func(ev gateway.Event, now time.Time) map[string]any
}

var webhookTransitions = map[string]webhookTransition{
	gateway.EventIntentSucceeded: {
		from:      StatusProcessing,
		to:        StatusCompleted,
		eventType: events.PaymentCompleted,
		title:     "Payment completed",
		fields: func(_ gateway.Event, now time.Time) map[string]any {
			return map[string]any{"paid_at": now}
		},
	},
	gateway.EventIntentFailed: {
		from:      StatusProcessing,
		to:        StatusFailed,
		eventType: events.PaymentFailed,
		title:     "Payment failed",
		fields: func(ev gateway.Event, _ time.Time) map[string]any {
			reason := ev.FailureMessage
			if reason == "" {
				reason = "payment failed"
			}
			return map[string]any{"failure_reason": reason}
		},
	},
	gateway.EventChargeRefunded: {
		from:      StatusCompleted,
		to:        StatusRefunded,
		eventType: events.PaymentRefunded,
		title:     "Payment refunded",
		fields: func(_ gateway.Event, now time.Time) map[string]any {
			return map[string]any{"refunded_at": now}
		},
	},
}

// HandleWebhook applies a verified processor event. Every status change is
// guarded by the expected current status, so a redelivered event is a no-op.
// Unknown types are acknowledged. A known type whose intent has no payment
// row yet is refused so the processor redelivers it once Process commits.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		obs.WebhookEvent("unknown", "invalid_signature")
		s.logger.Warn("webhook rejected", zap.Error(err))
		return paymenterrors.ErrInvalidSignature.WithCause(err)
	}

	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("type", ev.Type))
	log.Debug("webhook received", zap.String("intent_id", ev.IntentID))

	if s.archive != nil && ev.ID != "" {
		seen, err := s.archive.Seen(ctx, ev.ID)
		if err != nil {
			log.Warn("webhook archive lookup failed", zap.Error(err))
		} else if seen {
			obs.WebhookEvent(ev.Type, "duplicate")
			log.Info("webhook already applied")
			return nil
		}
	}

	tr, ok := webhookTransitions[ev.Type]
	if !ok {
		obs.WebhookEvent(ev.Type, "ignored")
		log.Info("webhook event type not handled")
		s.record(ctx, ev)
		return nil
	}
	if ev.IntentID == "" {
		obs.WebhookEvent(ev.Type, "unmatched")
		log.Warn("webhook event has no payment intent")
		return nil
	}

	result, err := s.applyTransition(ctx, ev, tr)
	if errors.Is(err, paymenterrors.ErrWebhookPaymentUnknown) {
		obs.WebhookEvent(ev.Type, "unmatched")
		log.Warn("webhook intent has no payment yet", zap.String("intent_id", ev.IntentID))
		return err
	}
	if err != nil {
		obs.WebhookEvent(ev.Type, "error")
		log.Error("webhook apply failed", zap.Error(err))
		return err
	}
	obs.WebhookEvent(ev.Type, result)
	log.Info("webhook processed", zap.String("result", result))
	s.record(ctx, ev)
	return nil
}

func (s *service) applyTransition(ctx context.Context, ev gateway.Event, tr webhookTransition) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	p, err := qtx.FindByIntent(ctx, ev.IntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", paymenterrors.ErrWebhookPaymentUnknown
		}
		return "", err
	}

	now := time.Now().UTC()
	fields := tr.fields(ev, now)
	if ev.ChargeID != "" && isBlank(p.ProcessorChargeID) {
		fields["processor_charge_id"] = ev.ChargeID
	}
	if tr.to == StatusCompleted && p.Status == tr.from && isBlank(p.ProcessorTransferID) {
		transferID, err := s.deferredTransfer(ctx, qtx, p, ev)
		if err != nil {
			return "", err
		}
		fields["processor_transfer_id"] = transferID
	}
	changed, err := qtx.TransitionByIntent(ctx, ev.IntentID, tr.from, tr.to, fields)
	if err != nil {
		return "", err
	}
	if !changed {
		return "noop", nil
	}

	message := fmt.Sprintf("Payment %s for £%s is %s", p.Reference, money.FormatPence(p.NetAmount), tr.to)
	if reason, ok := fields["failure_reason"].(string); ok {
		message = fmt.Sprintf("Payment %s failed: %s", p.Reference, reason)
	}
	if err := events.PublishTx(ctx, s.outbox, tx, events.MarketplaceEvent{
		EventType:     tr.eventType,
		AggregateType: "payment",
		AggregateID:   p.ID.String(),
		Recipients: []events.Recipient{
			{Role: actor.RoleWorker, ID: p.WorkerID.String()},
			{Role: actor.RoleEmployer, ID: p.EmployerID.String()},
		},
		Title:   tr.title,
		Message: message,
		Data: map[string]any{
			"payment_id":   p.ID.String(),
			"timesheet_id": p.TimesheetID.String(),
			"reference":    p.Reference,
			"status":       tr.to,
		},
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return "applied", nil
}

// deferredTransfer pays the worker for a payment whose intent was confirmed
// after Process returned. The row is locked by the caller.
func (s *service) deferredTransfer(ctx context.Context, qtx Repository, p *Payment, ev gateway.Event) (string, error) {
	chargeID := ev.ChargeID
	if chargeID == "" && !isBlank(p.ProcessorChargeID) {
		chargeID = *p.ProcessorChargeID
	}
	if chargeID == "" {
		return "", paymenterrors.ErrTransferSourceMissing
	}

	destination, err := qtx.PayoutAccount(ctx, actor.RoleWorker, p.WorkerID.String())
	if err != nil {
		return "", err
	}
	if isBlank(destination) {
		return "", paymenterrors.ErrWorkerPayoutMissing
	}

	transfer, err := s.transferNet(ctx, p.TimesheetID.String(), p.Attempts, p.NetAmount, *destination, chargeID)
	if err != nil {
		return "", s.processorFailure("deferred transfer", p.TimesheetID.String(), err)
	}
	s.logger.Info("deferred transfer success",
		zap.String("payment_id", p.ID.String()),
		zap.String("charge_id", chargeID),
		zap.String("transfer_id", transfer.ID),
	)
	return transfer.ID, nil
}

func (s *service) record(ctx context.Context, ev gateway.Event) {
	if s.archive == nil || ev.ID == "" {
		return
	}
	if _, err := s.archive.Record(ctx, ev); err != nil {
		s.logger.Warn("webhook archive write failed", zap.String("event_id", ev.ID), zap.Error(err))
	}
}

// CreatePayoutAccount opens a processor account for the caller's profile
// when none exists and returns an onboarding link for it.
func (s *service) CreatePayoutAccount(ctx context.Context, a actor.Actor, req CreatePayoutAccountRequest) (PayoutAccountResponse, error) {
	s.logger.Debug("create payout account requested",
		zap.String("role", a.Role),
		zap.String("profile_id", a.ProfileID),
	)
	if !a.IsEmployer() && !a.IsWorker() {
		return PayoutAccountResponse{}, paymenterrors.ErrPayoutRoleNotSupported
	}

	current, err := s.repo.PayoutAccount(ctx, a.Role, a.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PayoutAccountResponse{}, paymenterrors.ErrProfileNotFound
		}
		return PayoutAccountResponse{}, err
	}

	var acct gateway.Account
	if isBlank(current) {
		country := strings.ToUpper(strings.TrimSpace(req.Country))
		if country == "" {
			country = defaultCountry
		}
		acct, err = s.gateway.CreateAccount(ctx, req.Email, country)
		if err != nil {
			s.logger.Error("create payout account processor failed", zap.Error(err))
			return PayoutAccountResponse{}, paymenterrors.ErrProcessor.WithCause(err)
		}
		if err := s.repo.SetPayoutAccount(ctx, a.Role, a.ProfileID, acct.ID); err != nil {
			s.logger.Error("create payout account persist failed", zap.Error(err))
			return PayoutAccountResponse{}, err
		}
		s.logger.Info("create payout account success",
			zap.String("profile_id", a.ProfileID),
			zap.String("account_id", acct.ID),
		)
	} else {
		acct = gateway.Account{ID: *current}
	}

	link, err := s.gateway.CreateOnboardingLink(ctx, acct.ID, s.cfg.RefreshURL, s.cfg.ReturnURL)
	if err != nil {
		s.logger.Error("create payout onboarding link failed", zap.String("account_id", acct.ID), zap.Error(err))
		return PayoutAccountResponse{}, paymenterrors.ErrProcessor.WithCause(err)
	}

	return PayoutAccountResponse{
		AccountID:        acct.ID,
		OnboardingURL:    link,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

func (s *service) GetPayoutAccountStatus(ctx context.Context, a actor.Actor) (PayoutAccountResponse, error) {
	if !a.IsEmployer() && !a.IsWorker() {
		return PayoutAccountResponse{}, paymenterrors.ErrPayoutRoleNotSupported
	}

	current, err := s.repo.PayoutAccount(ctx, a.Role, a.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PayoutAccountResponse{}, paymenterrors.ErrProfileNotFound
		}
		return PayoutAccountResponse{}, err
	}
	if isBlank(current) {
		return PayoutAccountResponse{}, paymenterrors.ErrNoPayoutAccount
	}

	acct, err := s.gateway.AccountStatus(ctx, *current)
	if err != nil {
		s.logger.Error("payout account status failed", zap.String("account_id", *current), zap.Error(err))
		return PayoutAccountResponse{}, paymenterrors.ErrProcessor.WithCause(err)
	}
	return PayoutAccountResponse{
		AccountID:        acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}

// Refund asks the processor to return a completed payment. The status moves
// to refunded when the charge.refunded webhook arrives.
func (s *service) Refund(ctx context.Context, adminID, paymentID, reason string) (PaymentResponse, error) {
	s.logger.Debug("refund payment requested",
		zap.String("admin_id", adminID),
		zap.String("payment_id", paymentID),
	)
	if _, err := uuid.Parse(paymentID); err != nil {
		return PaymentResponse{}, paymenterrors.ErrInvalidPaymentID
	}

	p, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, mapRepositoryError(err)
	}
	if p.Status != StatusCompleted {
		s.logger.Warn("refund payment rejected",
			zap.String("payment_id", paymentID),
			zap.String("status", p.Status),
		)
		return PaymentResponse{}, paymenterrors.ErrNotRefundable
	}

	refund, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		IntentID:       p.ProcessorIntentID,
		IdempotencyKey: fmt.Sprintf("refund:%s:%d", p.ID, p.Attempts),
	})
	if err != nil {
		s.logger.Error("refund payment processor failed", zap.String("payment_id", paymentID), zap.Error(err))
		return PaymentResponse{}, paymenterrors.ErrProcessor.WithCause(err)
	}

	if err := s.repo.SetRefundID(ctx, paymentID, refund.ID); err != nil {
		s.logger.Error("refund payment persist failed", zap.String("payment_id", paymentID), zap.Error(err))
		return PaymentResponse{}, err
	}
	p.ProcessorRefundID = &refund.ID

	s.logger.Info("refund payment requested at processor",
		zap.String("payment_id", paymentID),
		zap.String("refund_id", refund.ID),
		zap.String("reason", reason),
	)
	return mapToResponse(*p), nil
}

func (s *service) List(ctx context.Context, a actor.Actor, filter ListFilter) ([]PaymentResponse, int64, error) {
	status := strings.TrimSpace(filter.Status)
	switch status {
	case "", StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
	default:
		return nil, 0, paymenterrors.ErrInvalidStatusFilter
	}
	page, limit := normalizePage(filter.Page, filter.Limit)
	q := ListQuery{Status: status, Page: page, Limit: limit}

	switch {
	case a.IsWorker():
		q.WorkerID = a.ProfileID
	case a.IsEmployer():
		q.EmployerID = a.ProfileID
	case a.IsAdmin():
	default:
		return []PaymentResponse{}, 0, nil
	}

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("list payments failed", zap.Error(err))
		return nil, 0, err
	}
	resp := make([]PaymentResponse, len(rows))
	for i, p := range rows {
		resp[i] = mapToResponse(p)
	}
	return resp, total, nil
}

func (s *service) GetByID(ctx context.Context, a actor.Actor, id string) (PaymentResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PaymentResponse{}, paymenterrors.ErrInvalidPaymentID
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return PaymentResponse{}, mapRepositoryError(err)
	}
	switch {
	case a.IsAdmin():
	case a.IsWorker() && p.WorkerID.String() == a.ProfileID:
	case a.IsEmployer() && p.EmployerID.String() == a.ProfileID:
	default:
		return PaymentResponse{}, paymenterrors.ErrPaymentNotFound
	}
	return mapToResponse(*p), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func mapRepositoryError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return paymenterrors.ErrPaymentNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isBlank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func mapToResponse(p Payment) PaymentResponse {
	return PaymentResponse{
		ID:                  p.ID.String(),
		Reference:           p.Reference,
		TimesheetID:         p.TimesheetID.String(),
		EmployerID:          p.EmployerID.String(),
		WorkerID:            p.WorkerID.String(),
		Amount:              p.Amount,
		PlatformFee:         p.PlatformFee,
		NetAmount:           p.NetAmount,
		FeeBasisPoints:      p.FeeBasisPoints,
		Currency:            p.Currency,
		Status:              p.Status,
		Attempts:            p.Attempts,
		FailureReason:       p.FailureReason,
		PaymentMethod:       p.PaymentMethod,
		ProcessorIntentID:   p.ProcessorIntentID,
		ProcessorTransferID: p.ProcessorTransferID,
		ProcessorRefundID:   p.ProcessorRefundID,
		PaidAt:              formatTime(p.PaidAt),
		RefundedAt:          formatTime(p.RefundedAt),
		CreatedAt:           p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
