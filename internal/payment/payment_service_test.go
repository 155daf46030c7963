package payment_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka/kafkatest"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment"
	paymenterrors "github.com/msdp-platform/msdp-flexstaff/internal/payment/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway"
	gatewaymock "github.com/msdp-platform/msdp-flexstaff/internal/payment/gateway/mock"
	"github.com/msdp-platform/msdp-flexstaff/internal/shared/actor"
	"github.com/msdp-platform/msdp-flexstaff/internal/timesheet"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

// memRepo applies the same guarded status updates as the SQL repository.
type memRepo struct {
	sources  map[string]*payment.SettlementSource
	payments map[string]*payment.Payment
	payouts  map[string]*string

	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		sources:  map[string]*payment.SettlementSource{},
		payments: map[string]*payment.Payment{},
		payouts:  map[string]*string{},
	}
}

func (m *memRepo) WithTx(*sql.Tx) payment.Repository { return m }

func (m *memRepo) LoadSettlementSource(_ context.Context, employerID, timesheetID string) (*payment.SettlementSource, error) {
	src, ok := m.sources[timesheetID]
	if !ok || src.EmployerID.String() != employerID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *src
	return &cp, nil
}

func (m *memRepo) find(match func(p *payment.Payment) bool) (*payment.Payment, error) {
	for _, p := range m.payments {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) FindByID(_ context.Context, id string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.ID.String() == id })
}

func (m *memRepo) FindByTimesheet(_ context.Context, timesheetID string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.TimesheetID.String() == timesheetID })
}

func (m *memRepo) FindByIntent(_ context.Context, intentID string) (*payment.Payment, error) {
	return m.find(func(p *payment.Payment) bool { return p.ProcessorIntentID == intentID })
}

func (m *memRepo) Create(_ context.Context, p *payment.Payment) error {
	if m.createErr != nil {
		return m.createErr
	}
	cp := *p
	m.payments[p.ID.String()] = &cp
	return nil
}

func (m *memRepo) Retry(_ context.Context, p *payment.Payment) (bool, error) {
	cur, ok := m.payments[p.ID.String()]
	if !ok || cur.Status != payment.StatusFailed {
		return false, nil
	}
	cp := *p
	cp.FailureReason = nil
	m.payments[p.ID.String()] = &cp
	return true, nil
}

func (m *memRepo) TransitionByIntent(_ context.Context, intentID, from, to string, fields map[string]any) (bool, error) {
	for _, p := range m.payments {
		if p.ProcessorIntentID != intentID || p.Status != from {
			continue
		}
		p.Status = to
		if v, ok := fields["paid_at"].(time.Time); ok {
			p.PaidAt = &v
		}
		if v, ok := fields["refunded_at"].(time.Time); ok {
			p.RefundedAt = &v
		}
		if v, ok := fields["failure_reason"].(string); ok {
			p.FailureReason = &v
		}
		if v, ok := fields["processor_charge_id"].(string); ok {
			p.ProcessorChargeID = &v
		}
		if v, ok := fields["processor_transfer_id"].(string); ok {
			p.ProcessorTransferID = &v
		}
		return true, nil
	}
	return false, nil
}

func (m *memRepo) SetRefundID(_ context.Context, id, refundID string) error {
	p, ok := m.payments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.ProcessorRefundID = &refundID
	return nil
}

func (m *memRepo) List(_ context.Context, q payment.ListQuery) ([]payment.Payment, int64, error) {
	var out []payment.Payment
	for _, p := range m.payments {
		if q.WorkerID != "" && p.WorkerID.String() != q.WorkerID {
			continue
		}
		if q.EmployerID != "" && p.EmployerID.String() != q.EmployerID {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) PayoutAccount(_ context.Context, role, profileID string) (*string, error) {
	v, ok := m.payouts[role+":"+profileID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (m *memRepo) SetPayoutAccount(_ context.Context, role, profileID, accountID string) error {
	key := role + ":" + profileID
	if _, ok := m.payouts[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.payouts[key] = &accountID
	return nil
}

type memArchive struct {
	seen map[string]bool
}

func (a *memArchive) Seen(_ context.Context, id string) (bool, error) {
	return a.seen[id], nil
}

func (a *memArchive) Record(_ context.Context, ev gateway.Event) (bool, error) {
	if a.seen[ev.ID] {
		return false, nil
	}
	a.seen[ev.ID] = true
	return true, nil
}

type paymentDeps struct {
	sqlMock sqlmock.Sqlmock
	repo    *memRepo
	gateway *gatewaymock.MockGateway
	outbox  *kafkatest.RecordingOutbox
	archive *memArchive
	service payment.Service
}

func setupPaymentServiceTest(t *testing.T) *paymentDeps {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctrl := gomock.NewController(t)
	gw := gatewaymock.NewMockGateway(ctrl)
	repo := newMemRepo()
	outbox := &kafkatest.RecordingOutbox{}
	archive := &memArchive{seen: map[string]bool{}}
	svc := payment.NewService(db, repo, gw, outbox, archive, payment.Config{
		FeeBasisPoints: 1000,
		RefreshURL:     "https://app.test/refresh",
		ReturnURL:      "https://app.test/done",
	})
	return &paymentDeps{sqlMock: sqlMock, repo: repo, gateway: gw, outbox: outbox, archive: archive, service: svc}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func strPtr(s string) *string { return &s }

func (d *paymentDeps) addApprovedTimesheet(amount int64) *payment.SettlementSource {
	src := &payment.SettlementSource{
		TimesheetID:             uuid.New(),
		EmployerID:              uuid.New(),
		WorkerID:                uuid.New(),
		Status:                  timesheet.StatusApproved,
		TotalAmount:             amount,
		EmployerPayoutAccountID: strPtr("acct_employer"),
		WorkerPayoutAccountID:   strPtr("acct_worker"),
	}
	d.repo.sources[src.TimesheetID.String()] = src
	return src
}

func (d *paymentDeps) addPayment(src *payment.SettlementSource, status, intentID string, attempts int) *payment.Payment {
	p := &payment.Payment{
		ID:                  uuid.New(),
		Reference:           "PAY-01EXISTING",
		TimesheetID:         src.TimesheetID,
		EmployerID:          src.EmployerID,
		WorkerID:            src.WorkerID,
		Amount:              src.TotalAmount,
		PlatformFee:         438,
		NetAmount:           src.TotalAmount - 438,
		FeeBasisPoints:      1000,
		Currency:            "gbp",
		ProcessorIntentID:   intentID,
		ProcessorTransferID: strPtr("tr_existing"),
		Status:              status,
		Attempts:            attempts,
		CreatedAt:           time.Now().Add(-time.Hour),
	}
	d.repo.payments[p.ID.String()] = p
	return p
}

func TestPaymentService_Process(t *testing.T) {
	t.Run("charges gross and transfers net after the fee", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		tsID := src.TimesheetID.String()

		d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
			assert.Equal(t, int64(4375), req.Amount)
			assert.Equal(t, "gbp", req.Currency)
			assert.Equal(t, "acct_employer", req.OnBehalfOf)
			assert.Equal(t, "TS-"+tsID, req.TransferGroup)
			assert.Equal(t, "settle:"+tsID+":1:charge", req.IdempotencyKey)
			return gateway.Charge{IntentID: "pi_1", ChargeID: "ch_1", Status: "processing"}, nil
		})
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req gateway.TransferRequest) (gateway.Transfer, error) {
			assert.Equal(t, int64(3937), req.Amount)
			assert.Equal(t, "acct_worker", req.Destination)
			assert.Equal(t, "ch_1", req.SourceCharge)
			assert.Equal(t, "TS-"+tsID, req.TransferGroup)
			return gateway.Transfer{ID: "tr_1"}, nil
		})
		expectTx(t, d.sqlMock, true)

		resp, err := d.service.Process(context.Background(), src.EmployerID.String(), tsID)
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusProcessing, resp.Status)
		assert.Equal(t, int64(4375), resp.Amount)
		assert.Equal(t, int64(438), resp.PlatformFee)
		assert.Equal(t, int64(3937), resp.NetAmount)
		assert.Equal(t, resp.Amount, resp.PlatformFee+resp.NetAmount)
		assert.True(t, strings.HasPrefix(resp.Reference, "PAY-"))
		assert.Equal(t, 1, resp.Attempts)

		stored := d.repo.payments[resp.PaymentID]
		assert.Equal(t, "pi_1", stored.ProcessorIntentID)
		assert.Equal(t, "tr_1", *stored.ProcessorTransferID)
		assert.Equal(t, int64(1000), stored.FeeBasisPoints)
		assert.Equal(t, []string{events.PaymentProcessing}, d.outbox.EventTypes())
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("retries a failed payment with the next attempt key", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		tsID := src.TimesheetID.String()
		prev := d.addPayment(src, payment.StatusFailed, "pi_old", 1)

		d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req gateway.ChargeRequest) (gateway.Charge, error) {
			assert.Equal(t, "settle:"+tsID+":2:charge", req.IdempotencyKey)
			return gateway.Charge{IntentID: "pi_new", ChargeID: "ch_new"}, nil
		})
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(gateway.Transfer{ID: "tr_new"}, nil)
		expectTx(t, d.sqlMock, true)

		resp, err := d.service.Process(context.Background(), src.EmployerID.String(), tsID)
		assert.NoError(t, err)
		assert.Equal(t, prev.ID.String(), resp.PaymentID)
		assert.Equal(t, prev.Reference, resp.Reference)
		assert.Equal(t, 2, resp.Attempts)
		assert.Len(t, d.repo.payments, 1)
		assert.Equal(t, "pi_new", d.repo.payments[resp.PaymentID].ProcessorIntentID)
		assert.Equal(t, payment.StatusProcessing, d.repo.payments[resp.PaymentID].Status)
	})

	t.Run("processor failure writes no payment", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(gateway.Charge{}, errors.New("card_declined"))

		_, err := d.service.Process(context.Background(), src.EmployerID.String(), src.TimesheetID.String())
		assert.ErrorIs(t, err, paymenterrors.ErrProcessor)
		assert.Empty(t, d.repo.payments)
		assert.Empty(t, d.outbox.Rows)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("transfer failure writes no payment", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(gateway.Charge{IntentID: "pi_1", ChargeID: "ch_1"}, nil)
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(gateway.Transfer{}, errors.New("insufficient balance"))

		_, err := d.service.Process(context.Background(), src.EmployerID.String(), src.TimesheetID.String())
		assert.ErrorIs(t, err, paymenterrors.ErrProcessor)
		assert.Empty(t, d.repo.payments)
	})

	t.Run("unconfirmed intent defers the transfer", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(gateway.Charge{
			IntentID:     "pi_1",
			ClientSecret: "pi_1_secret",
			Status:       "requires_payment_method",
		}, nil)
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
		expectTx(t, d.sqlMock, true)

		resp, err := d.service.Process(context.Background(), src.EmployerID.String(), src.TimesheetID.String())
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusProcessing, resp.Status)
		assert.Equal(t, "pi_1_secret", resp.ClientSecret)

		stored := d.repo.payments[resp.PaymentID]
		assert.Equal(t, "pi_1", stored.ProcessorIntentID)
		assert.Nil(t, stored.ProcessorChargeID)
		assert.Nil(t, stored.ProcessorTransferID)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	tests := []struct {
		name    string
		prepare func(d *paymentDeps, src *payment.SettlementSource)
		wantErr error
	}{
		{
			name:    "timesheet not approved",
			prepare: func(_ *paymentDeps, src *payment.SettlementSource) { src.Status = timesheet.StatusSubmitted },
			wantErr: paymenterrors.ErrTimesheetNotApproved,
		},
		{
			name:    "employer payout account missing",
			prepare: func(_ *paymentDeps, src *payment.SettlementSource) { src.EmployerPayoutAccountID = nil },
			wantErr: paymenterrors.ErrEmployerPayoutMissing,
		},
		{
			name:    "worker payout account missing",
			prepare: func(_ *paymentDeps, src *payment.SettlementSource) { src.WorkerPayoutAccountID = strPtr(" ") },
			wantErr: paymenterrors.ErrWorkerPayoutMissing,
		},
		{
			name: "payment already processing",
			prepare: func(d *paymentDeps, src *payment.SettlementSource) {
				d.addPayment(src, payment.StatusProcessing, "pi_1", 1)
			},
			wantErr: paymenterrors.ErrAlreadyProcessing,
		},
		{
			name: "payment already completed",
			prepare: func(d *paymentDeps, src *payment.SettlementSource) {
				d.addPayment(src, payment.StatusCompleted, "pi_1", 1)
			},
			wantErr: paymenterrors.ErrAlreadySettled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupPaymentServiceTest(t)
			src := d.addApprovedTimesheet(4375)
			tt.prepare(d, src)

			_, err := d.service.Process(context.Background(), src.EmployerID.String(), src.TimesheetID.String())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("another employer's timesheet is not found", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)

		_, err := d.service.Process(context.Background(), uuid.NewString(), src.TimesheetID.String())
		assert.ErrorIs(t, err, paymenterrors.ErrTimesheetNotFound)
	})

	t.Run("invalid timesheet id", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		_, err := d.service.Process(context.Background(), uuid.NewString(), "nope")
		assert.ErrorIs(t, err, paymenterrors.ErrInvalidTimesheetID)
	})
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	t.Run("succeeded completes the payment once", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		p := d.addPayment(src, payment.StatusProcessing, "pi_1", 1)
		ev := gateway.Event{ID: "evt_1", Type: gateway.EventIntentSucceeded, IntentID: "pi_1", ChargeID: "ch_1"}

		d.gateway.EXPECT().VerifyWebhook([]byte("body"), "sig").Return(ev, nil).Times(2)
		expectTx(t, d.sqlMock, true)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.Equal(t, payment.StatusCompleted, d.repo.payments[p.ID.String()].Status)
		assert.NotNil(t, d.repo.payments[p.ID.String()].PaidAt)
		assert.Equal(t, "ch_1", *d.repo.payments[p.ID.String()].ProcessorChargeID)
		assert.True(t, d.archive.seen["evt_1"])

		// redelivery is short-circuited by the archive
		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.Equal(t, []string{events.PaymentCompleted}, d.outbox.EventTypes())
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("redelivery missed by the archive is a guarded no-op", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		d.addPayment(src, payment.StatusProcessing, "pi_1", 1)
		ev := gateway.Event{ID: "evt_1", Type: gateway.EventIntentSucceeded, IntentID: "pi_1"}

		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(ev, nil).Times(2)
		expectTx(t, d.sqlMock, true)
		expectTx(t, d.sqlMock, false)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		d.archive.seen = map[string]bool{}
		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.Equal(t, []string{events.PaymentCompleted}, d.outbox.EventTypes())
	})

	t.Run("failed records the reason and allows a retry", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		p := d.addPayment(src, payment.StatusProcessing, "pi_1", 1)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{
			ID: "evt_2", Type: gateway.EventIntentFailed, IntentID: "pi_1", FailureMessage: "Your card was declined.",
		}, nil)
		expectTx(t, d.sqlMock, true)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		stored := d.repo.payments[p.ID.String()]
		assert.Equal(t, payment.StatusFailed, stored.Status)
		assert.Equal(t, "Your card was declined.", *stored.FailureReason)
		assert.Equal(t, []string{events.PaymentFailed}, d.outbox.EventTypes())
	})

	t.Run("refunded only applies to completed payments", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		p := d.addPayment(src, payment.StatusProcessing, "pi_1", 1)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{
			ID: "evt_3", Type: gateway.EventChargeRefunded, IntentID: "pi_1", ChargeID: "ch_1",
		}, nil)
		expectTx(t, d.sqlMock, false)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.Equal(t, payment.StatusProcessing, d.repo.payments[p.ID.String()].Status)
		assert.Empty(t, d.outbox.Rows)
	})

	t.Run("invalid signature", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{}, gateway.ErrInvalidSignature)

		err := d.service.HandleWebhook(context.Background(), []byte("body"), "bad")
		assert.ErrorIs(t, err, paymenterrors.ErrInvalidSignature)
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown type is acknowledged", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{ID: "evt_4", Type: "customer.created"}, nil)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.True(t, d.archive.seen["evt_4"])
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})

	t.Run("intent without a payment row is refused until Process commits", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		ev := gateway.Event{ID: "evt_5", Type: gateway.EventIntentSucceeded, IntentID: "pi_1", ChargeID: "ch_1"}
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(ev, nil).Times(2)
		expectTx(t, d.sqlMock, false)
		expectTx(t, d.sqlMock, true)

		err := d.service.HandleWebhook(context.Background(), []byte("body"), "sig")
		assert.ErrorIs(t, err, paymenterrors.ErrWebhookPaymentUnknown)
		assert.False(t, d.archive.seen["evt_5"])
		assert.Empty(t, d.outbox.Rows)

		p := d.addPayment(src, payment.StatusProcessing, "pi_1", 1)
		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.Equal(t, payment.StatusCompleted, d.repo.payments[p.ID.String()].Status)
		assert.True(t, d.archive.seen["evt_5"])
		assert.NoError(t, d.sqlMock.ExpectationsWereMet())
	})
}

func TestPaymentService_DeferredTransfer(t *testing.T) {
	setup := func(t *testing.T) (*paymentDeps, *payment.Payment) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		d.repo.payouts[actor.RoleWorker+":"+src.WorkerID.String()] = strPtr("acct_worker")
		p := d.addPayment(src, payment.StatusProcessing, "pi_1", 2)
		p.ProcessorTransferID = nil
		return d, p
	}

	t.Run("succeeded transfers from the latest charge", func(t *testing.T) {
		d, p := setup(t)
		tsID := p.TimesheetID.String()
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{
			ID: "evt_1", Type: gateway.EventIntentSucceeded, IntentID: "pi_1", ChargeID: "ch_1",
		}, nil)
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req gateway.TransferRequest) (gateway.Transfer, error) {
			assert.Equal(t, "ch_1", req.SourceCharge)
			assert.Equal(t, "acct_worker", req.Destination)
			assert.Equal(t, p.NetAmount, req.Amount)
			assert.Equal(t, "TS-"+tsID, req.TransferGroup)
			assert.Equal(t, "settle:"+tsID+":2:transfer", req.IdempotencyKey)
			return gateway.Transfer{ID: "tr_1"}, nil
		})
		expectTx(t, d.sqlMock, true)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		stored := d.repo.payments[p.ID.String()]
		assert.Equal(t, payment.StatusCompleted, stored.Status)
		assert.Equal(t, "tr_1", *stored.ProcessorTransferID)
		assert.Equal(t, "ch_1", *stored.ProcessorChargeID)
		assert.Equal(t, []string{events.PaymentCompleted}, d.outbox.EventTypes())
	})

	t.Run("no charge on the event is refused", func(t *testing.T) {
		d, p := setup(t)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{
			ID: "evt_2", Type: gateway.EventIntentSucceeded, IntentID: "pi_1",
		}, nil)
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
		expectTx(t, d.sqlMock, false)

		err := d.service.HandleWebhook(context.Background(), []byte("body"), "sig")
		assert.ErrorIs(t, err, paymenterrors.ErrTransferSourceMissing)
		assert.Equal(t, payment.StatusProcessing, d.repo.payments[p.ID.String()].Status)
		assert.False(t, d.archive.seen["evt_2"])
		assert.Empty(t, d.outbox.Rows)
	})

	t.Run("transfer failure leaves the payment processing for redelivery", func(t *testing.T) {
		d, p := setup(t)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{
			ID: "evt_3", Type: gateway.EventIntentSucceeded, IntentID: "pi_1", ChargeID: "ch_1",
		}, nil)
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(gateway.Transfer{}, errors.New("account restricted"))
		expectTx(t, d.sqlMock, false)

		err := d.service.HandleWebhook(context.Background(), []byte("body"), "sig")
		assert.ErrorIs(t, err, paymenterrors.ErrProcessor)
		stored := d.repo.payments[p.ID.String()]
		assert.Equal(t, payment.StatusProcessing, stored.Status)
		assert.Nil(t, stored.ProcessorTransferID)
		assert.False(t, d.archive.seen["evt_3"])
	})

	t.Run("failed intent does not transfer", func(t *testing.T) {
		d, p := setup(t)
		d.gateway.EXPECT().VerifyWebhook(gomock.Any(), gomock.Any()).Return(gateway.Event{
			ID: "evt_4", Type: gateway.EventIntentFailed, IntentID: "pi_1",
		}, nil)
		d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)
		expectTx(t, d.sqlMock, true)

		assert.NoError(t, d.service.HandleWebhook(context.Background(), []byte("body"), "sig"))
		assert.Equal(t, payment.StatusFailed, d.repo.payments[p.ID.String()].Status)
	})
}

func TestPaymentService_Refund(t *testing.T) {
	t.Run("completed payment is sent to the processor", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		p := d.addPayment(src, payment.StatusCompleted, "pi_1", 1)
		d.gateway.EXPECT().Refund(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req gateway.RefundRequest) (gateway.Refund, error) {
			assert.Equal(t, "pi_1", req.IntentID)
			return gateway.Refund{ID: "re_1", Status: "pending"}, nil
		})

		resp, err := d.service.Refund(context.Background(), "admin-1", p.ID.String(), "duplicate shift")
		assert.NoError(t, err)
		assert.Equal(t, "re_1", *resp.ProcessorRefundID)
		assert.Equal(t, payment.StatusCompleted, resp.Status)
	})

	t.Run("processing payment cannot be refunded", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		src := d.addApprovedTimesheet(4375)
		p := d.addPayment(src, payment.StatusProcessing, "pi_1", 1)

		_, err := d.service.Refund(context.Background(), "admin-1", p.ID.String(), "")
		assert.ErrorIs(t, err, paymenterrors.ErrNotRefundable)
	})

	t.Run("unknown payment", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		_, err := d.service.Refund(context.Background(), "admin-1", uuid.NewString(), "")
		assert.ErrorIs(t, err, paymenterrors.ErrPaymentNotFound)
	})
}

func TestPaymentService_PayoutAccount(t *testing.T) {
	worker := actor.Actor{UserID: "u-1", Role: actor.RoleWorker, ProfileID: "wrk-1"}

	t.Run("creates the account once and links onboarding", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		d.repo.payouts["WORKER:wrk-1"] = nil
		d.gateway.EXPECT().CreateAccount(gomock.Any(), "sam@example.com", "GB").Return(gateway.Account{ID: "acct_1"}, nil)
		d.gateway.EXPECT().CreateOnboardingLink(gomock.Any(), "acct_1", "https://app.test/refresh", "https://app.test/done").
			Return("https://connect.test/acct_1", nil).Times(2)

		resp, err := d.service.CreatePayoutAccount(context.Background(), worker, payment.CreatePayoutAccountRequest{Email: "sam@example.com"})
		assert.NoError(t, err)
		assert.Equal(t, "acct_1", resp.AccountID)
		assert.Equal(t, "https://connect.test/acct_1", resp.OnboardingURL)
		assert.Equal(t, "acct_1", *d.repo.payouts["WORKER:wrk-1"])

		again, err := d.service.CreatePayoutAccount(context.Background(), worker, payment.CreatePayoutAccountRequest{Email: "sam@example.com"})
		assert.NoError(t, err)
		assert.Equal(t, "acct_1", again.AccountID)
	})

	t.Run("status without an account", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		d.repo.payouts["WORKER:wrk-1"] = nil

		_, err := d.service.GetPayoutAccountStatus(context.Background(), worker)
		assert.ErrorIs(t, err, paymenterrors.ErrNoPayoutAccount)
	})

	t.Run("status from the processor", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		d.repo.payouts["WORKER:wrk-1"] = strPtr("acct_1")
		d.gateway.EXPECT().AccountStatus(gomock.Any(), "acct_1").Return(gateway.Account{ID: "acct_1", PayoutsEnabled: true}, nil)

		resp, err := d.service.GetPayoutAccountStatus(context.Background(), worker)
		assert.NoError(t, err)
		assert.True(t, resp.PayoutsEnabled)
		assert.False(t, resp.ChargesEnabled)
	})

	t.Run("admins have no payout account", func(t *testing.T) {
		d := setupPaymentServiceTest(t)
		_, err := d.service.CreatePayoutAccount(context.Background(), actor.Actor{Role: actor.RoleAdmin, ProfileID: "u-9"}, payment.CreatePayoutAccountRequest{Email: "a@example.com"})
		assert.ErrorIs(t, err, paymenterrors.ErrPayoutRoleNotSupported)
	})
}

func TestPaymentService_ListAndGet(t *testing.T) {
	d := setupPaymentServiceTest(t)
	src := d.addApprovedTimesheet(4375)
	p := d.addPayment(src, payment.StatusCompleted, "pi_1", 1)
	other := d.addApprovedTimesheet(1000)
	d.addPayment(other, payment.StatusProcessing, "pi_2", 1)

	workerActor := actor.Actor{Role: actor.RoleWorker, ProfileID: src.WorkerID.String()}
	rows, total, err := d.service.List(context.Background(), workerActor, payment.ListFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, p.ID.String(), rows[0].ID)

	_, total, err = d.service.List(context.Background(), actor.Actor{Role: actor.RoleAdmin}, payment.ListFilter{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = d.service.List(context.Background(), workerActor, payment.ListFilter{Status: "lost"})
	assert.ErrorIs(t, err, paymenterrors.ErrInvalidStatusFilter)

	got, err := d.service.GetByID(context.Background(), actor.Actor{Role: actor.RoleEmployer, ProfileID: src.EmployerID.String()}, p.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, p.Reference, got.Reference)

	_, err = d.service.GetByID(context.Background(), actor.Actor{Role: actor.RoleEmployer, ProfileID: other.EmployerID.String()}, p.ID.String())
	assert.ErrorIs(t, err, paymenterrors.ErrPaymentNotFound)
}

func TestSettler(t *testing.T) {
	d := setupPaymentServiceTest(t)
	src := d.addApprovedTimesheet(1250)
	d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(gateway.Charge{IntentID: "pi_1", ChargeID: "ch_1"}, nil)
	d.gateway.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(gateway.Transfer{ID: "tr_1"}, nil)
	expectTx(t, d.sqlMock, true)

	result, err := payment.NewSettler(d.service).Settle(context.Background(), src.EmployerID.String(), src.TimesheetID.String())
	assert.NoError(t, err)
	assert.Equal(t, int64(125), result.PlatformFee)
	assert.Equal(t, int64(1125), result.NetAmount)
	assert.Equal(t, payment.StatusProcessing, result.Status)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "12.5")
	cfg, err := payment.ConfigFromEnv()
	assert.NoError(t, err)
	assert.Equal(t, int64(1250), cfg.FeeBasisPoints)

	t.Setenv("PLATFORM_FEE_PERCENT", "")
	cfg, err = payment.ConfigFromEnv()
	assert.NoError(t, err)
	assert.Equal(t, int64(payment.DefaultFeeBasisPoints), cfg.FeeBasisPoints)

	t.Setenv("PLATFORM_FEE_PERCENT", "150")
	_, err = payment.ConfigFromEnv()
	assert.Error(t, err)
}
