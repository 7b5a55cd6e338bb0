package infrastructure

import "globalbooks/internal/service/catalog/domain"

// ToDomainProduct converts a database row into a domain product.
func ToDomainProduct(model *ProductModel) domain.Product {
	return domain.Product{
		ID:                model.ID,
		Title:             model.Title,
		Author:            model.Author,
		Category:          model.Category,
		Price:             model.Price,
		AvailableQuantity: model.AvailableQuantity,
		ReservedQuantity:  model.ReservedQuantity,
		UpdatedAt:         model.UpdatedAt,
	}
}

// FromDomainProduct converts a domain product into a database row.
func FromDomainProduct(p domain.Product) *ProductModel {
	return &ProductModel{
		ID:                p.ID,
		Title:             p.Title,
		Author:            p.Author,
		Category:          p.Category,
		Price:             p.Price,
		AvailableQuantity: p.AvailableQuantity,
		ReservedQuantity:  p.ReservedQuantity,
		UpdatedAt:         p.UpdatedAt,
	}
}
