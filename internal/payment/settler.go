package payment

import (
	"context"

	"github.com/msdp-platform/msdp-flexstaff/internal/timesheet"
)

// Settler lets timesheet approval start settlement without depending on
// the payment package.
type Settler struct {
	service Service
}

var _ timesheet.Settler = (*Settler)(nil)

func NewSettler(service Service) *Settler {
	return &Settler{service: service}
}

func (s *Settler) Settle(ctx context.Context, employerID, timesheetID string) (timesheet.SettlementResult, error) {
	resp, err := s.service.Process(ctx, employerID, timesheetID)
	if err != nil {
		return timesheet.SettlementResult{}, err
	}
	return timesheet.SettlementResult{
		PaymentID:   resp.PaymentID,
		Reference:   resp.Reference,
		Status:      resp.Status,
		Amount:      resp.Amount,
		PlatformFee: resp.PlatformFee,
		NetAmount:   resp.NetAmount,
	}, nil
}
