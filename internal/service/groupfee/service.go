package groupfee

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firmdesk/collections-backend/internal/domain/errors"
	"github.com/firmdesk/collections-backend/internal/domain/fee"
	"github.com/firmdesk/collections-backend/internal/infrastructure/repository"
)

// service implements the Service interface
type service struct {
	groupRepo GroupRepository
	logger    *zap.Logger
}

// NewService creates a new group fee service
func NewService(groupRepo GroupRepository, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{groupRepo: groupRepo, logger: logger}
}

// MarkGroupAsPaid settles the group obligation. The member fan-out and the
// payment event ride in the repository transaction, so a failure anywhere
// leaves the group and every member untouched.
func (s *service) MarkGroupAsPaid(ctx context.Context, tenantID, groupCalcID uuid.UUID, input PaymentInput) (*GroupPaymentResult, error) {
	if tenantID == uuid.Nil {
		return nil, errors.ErrNoTenant
	}

	g, err := s.groupRepo.GetByID(ctx, tenantID, groupCalcID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrGroupFeeNotFound
		}
		return nil, errors.NewInternalError("failed to load group fee").WithCause(err)
	}

	if err := g.MarkPaid(); err != nil {
		return nil, err
	}

	payment, err := fee.NewCompletingPayment(tenantID, g.ID, g.TotalAmount, input.Method,
		input.Date, input.Reference, input.Notes)
	if err != nil {
		return nil, err
	}

	memberIDs, err := s.groupRepo.SettleGroup(ctx, g, payment)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrFeeAlreadyPaid
		}
		return nil, errors.NewInternalError("failed to settle group fee").WithCause(err)
	}

	s.logger.Info("group fee settled",
		zap.String("group_calc_id", groupCalcID.String()),
		zap.Int("member_count", len(memberIDs)),
		zap.String("amount", g.TotalAmount.String()),
	)

	return &GroupPaymentResult{
		Group:        g,
		MemberFeeIDs: memberIDs,
		Payment:      payment,
	}, nil
}
