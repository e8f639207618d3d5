package handlers

import (
	"time"

	"pistore/internal/models"
)

// presentProduct fills the fields derived at read time.
func presentProduct(p models.Product, now time.Time) models.Product {
	if p.Images == nil {
		p.Images = models.StringList{}
	}
	p.InStock = p.Stock > 0
	p.IsOnSale = isProductOnSale(p.Price, p.SalePrice, p.SaleStart, p.SaleEnd, now)
	p.EffectivePrice = effectiveProductPrice(p.Price, p.SalePrice, p.SaleStart, p.SaleEnd, now)
	return p
}

func presentProducts(products []models.Product, now time.Time) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		out = append(out, presentProduct(p, now))
	}
	return out
}
