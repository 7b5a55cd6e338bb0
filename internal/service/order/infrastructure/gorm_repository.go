package infrastructure

import (
	"context"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/service/order/domain"
)

const mysqlDuplicateEntry = 1062

// GormRepository is the MySQL implementation of domain.OrderRepository.
type GormRepository struct {
	db  *gorm.DB
	log logger.Logger
}

func NewGormRepository(db *gorm.DB, log logger.Logger) *GormRepository {
	return &GormRepository{db: db, log: log}
}

func (r *GormRepository) Create(ctx context.Context, order *domain.Order) error {
	model, err := FromDomainOrder(order)
	if err != nil {
		return apperr.Database(errors.Wrap(err, "encode shipping address"), "save order %s", order.ID)
	}
	// Order and items are inserted in one transaction by gorm's association save.
	err = r.db.WithContext(ctx).Create(model).Error
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateID
		}
		return apperr.Database(errors.Wrap(err, "insert order"), "save order %s", order.ID)
	}
	return nil
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.OrderNotFound(id)
		}
		return nil, apperr.Database(errors.Wrap(err, "select order"), "load order %s", id)
	}
	return ToDomainOrder(&model, r.log), nil
}

func (r *GormRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items")
	if customerID != "" {
		q = q.Where("customer_id = ?", customerID)
	}
	var models []OrderModel
	if err := q.Order("created_at").Order("id").Find(&models).Error; err != nil {
		return nil, apperr.Database(errors.Wrap(err, "select orders"), "list orders")
	}
	out := make([]*domain.Order, len(models))
	for i := range models {
		out[i] = ToDomainOrder(&models[i], r.log)
	}
	return out, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": updatedAt})
	if res.Error != nil {
		return apperr.Database(errors.Wrap(res.Error, "update order status"), "update order %s", id)
	}
	if res.RowsAffected == 0 {
		return apperr.OrderNotFound(id)
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderItemModel{}).Error; err != nil {
			return apperr.Database(errors.Wrap(err, "delete order items"), "delete order %s", id)
		}
		res := tx.Where("id = ?", id).Delete(&OrderModel{})
		if res.Error != nil {
			return apperr.Database(errors.Wrap(res.Error, "delete order"), "delete order %s", id)
		}
		if res.RowsAffected == 0 {
			return apperr.OrderNotFound(id)
		}
		return nil
	})
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
