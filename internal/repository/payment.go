package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

type PaymentRepository interface {
	Create(context.Context, *entity.Payment) error
	GetByID(context.Context, string) (*entity.Payment, error)
	GetAllByStatus(context.Context, entity.PaymentStatusType) ([]entity.Payment, error)

	// UpdateStatusFrom transitions the payment status with a compare-and-set
	// on the expected current status. It reports whether the row actually
	// moved, so a lost race shows up as false instead of a silent overwrite.
	UpdateStatusFrom(
		ctx context.Context,
		id string,
		from, to entity.PaymentStatusType,
		updates map[string]any,
	) (bool, error)
}

type paymentRepository struct{}

func NewPaymentRepository() *paymentRepository {
	return &paymentRepository{}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	return xcontext.DB(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	var result entity.Payment
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *paymentRepository) GetAllByStatus(
	ctx context.Context, status entity.PaymentStatusType,
) ([]entity.Payment, error) {
	var result []entity.Payment
	if err := xcontext.DB(ctx).Find(&result, "status=?", status).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *paymentRepository) UpdateStatusFrom(
	ctx context.Context,
	id string,
	from, to entity.PaymentStatusType,
	updates map[string]any,
) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	tx := xcontext.DB(ctx).
		Model(&entity.Payment{}).
		Where("id=? AND status=?", id, from).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected == 1, nil
}
