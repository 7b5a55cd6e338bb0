package infrastructure

import (
	"context"
	"iter"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/catalog/domain"
)

// GormProductStore is the MySQL implementation of domain.ProductRepository.
type GormProductStore struct {
	db *gorm.DB
}

func NewGormProductStore(db *gorm.DB) *GormProductStore {
	return &GormProductStore{db: db}
}

func (s *GormProductStore) FindByID(ctx context.Context, id string) (domain.Product, error) {
	var model ProductModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, apperr.ProductNotFound(id)
		}
		return domain.Product{}, apperr.Database(errors.Wrap(err, "select product"), "load product %s", id)
	}
	return ToDomainProduct(&model), nil
}

// Search streams rows through a cursor; the query runs once per range.
func (s *GormProductStore) Search(ctx context.Context, c domain.Criteria) iter.Seq2[domain.Product, error] {
	return func(yield func(domain.Product, error) bool) {
		rows, err := s.query(ctx, c).Rows()
		if err != nil {
			yield(domain.Product{}, apperr.Database(errors.Wrap(err, "search products"), "search products"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var model ProductModel
			if err := s.db.ScanRows(rows, &model); err != nil {
				yield(domain.Product{}, apperr.Database(errors.Wrap(err, "scan product"), "search products"))
				return
			}
			if !yield(ToDomainProduct(&model), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Product{}, apperr.Database(errors.Wrap(err, "iterate products"), "search products"))
		}
	}
}

func (s *GormProductStore) query(ctx context.Context, c domain.Criteria) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&ProductModel{})
	if c.Title != "" {
		q = q.Where("LOWER(title) LIKE ?", likePattern(c.Title))
	}
	if c.Author != "" {
		q = q.Where("LOWER(author) LIKE ?", likePattern(c.Author))
	}
	if c.Category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(c.Category))
	}
	if c.MinPrice.Valid {
		q = q.Where("price IS NOT NULL AND price >= ?", c.MinPrice.Decimal)
	}
	if c.MaxPrice.Valid {
		q = q.Where("price IS NOT NULL AND price <= ?", c.MaxPrice.Decimal)
	}
	return q.Order("id")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// Mutate locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// counters back in the same transaction.
func (s *GormProductStore) Mutate(ctx context.Context, id string, fn func(p *domain.Product) error) (domain.Product, error) {
	var (
		result domain.Product
		fnErr  error
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ProductModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		p := ToDomainProduct(&model)
		if fnErr = fn(&p); fnErr != nil {
			return fnErr
		}
		err := tx.Model(&ProductModel{}).Where("id = ?", id).Updates(map[string]interface{}{
			"available_quantity": p.AvailableQuantity,
			"reserved_quantity":  p.ReservedQuantity,
			"updated_at":         p.UpdatedAt,
		}).Error
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	switch {
	case err == nil:
		return result, nil
	case fnErr != nil:
		return domain.Product{}, fnErr
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.Product{}, apperr.ProductNotFound(id)
	default:
		return domain.Product{}, apperr.Wrap(errors.Wrap(err, "update inventory"),
			apperr.KindDependencyFailure, apperr.CodeUpdateFailed, "update inventory of %s", id)
	}
}

// catalogColumns are overwritten when an existing product is upserted. The
// stock counters are left alone: only the ledger changes them.
var catalogColumns = []string{"title", "author", "category", "price", "updated_at"}

func (s *GormProductStore) Upsert(ctx context.Context, p domain.Product) error {
	if err := s.upsert(s.db.WithContext(ctx), p).Error; err != nil {
		return apperr.Database(errors.Wrap(err, "upsert product"), "save product %s", p.ID)
	}
	return nil
}

func (s *GormProductStore) upsert(db *gorm.DB, p domain.Product) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(catalogColumns),
	}).Create(FromDomainProduct(p))
}
