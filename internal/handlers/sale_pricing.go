package handlers

import (
	"fmt"
	"time"

	"pistore/internal/models"
)

// saleUpdateInput carries the sale-related fields of a product update. A nil
// pointer means the field was not sent.
type saleUpdateInput struct {
	Price     *float64
	SalePrice *float64
	SaleStart *time.Time
	SaleEnd   *time.Time
	ClearSale bool
}

type saleUpdateResult struct {
	Price        float64
	SalePrice    float64
	SaleStart    *time.Time
	SaleEnd      *time.Time
	SetSale      bool
	SetSaleStart bool
	SetSaleEnd   bool
	Cleared      bool
}

func isProductOnSale(price, salePrice float64, start, end *time.Time, now time.Time) bool {
	if salePrice <= 0 || salePrice >= price {
		return false
	}
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && !now.Before(*end) {
		return false
	}
	return true
}

func effectiveProductPrice(price, salePrice float64, start, end *time.Time, now time.Time) float64 {
	if isProductOnSale(price, salePrice, start, end, now) {
		return salePrice
	}
	return price
}

func validateSaleFields(price, salePrice float64, start, end *time.Time) error {
	if salePrice == 0 && start == nil && end == nil {
		return nil
	}
	if salePrice <= 0 {
		return fmt.Errorf("salePrice must be greater than 0")
	}
	if salePrice >= price {
		return fmt.Errorf("salePrice must be less than price")
	}
	if start != nil && end != nil && !end.After(*start) {
		return fmt.Errorf("saleEnd must be after saleStart")
	}
	return nil
}

// resolveSaleUpdate merges input over the stored product and validates the
// combined result.
func resolveSaleUpdate(existing models.Product, input saleUpdateInput) (saleUpdateResult, error) {
	result := saleUpdateResult{
		Price:     existing.Price,
		SalePrice: existing.SalePrice,
		SaleStart: existing.SaleStart,
		SaleEnd:   existing.SaleEnd,
	}

	if input.Price != nil {
		result.Price = *input.Price
	}

	if input.ClearSale {
		result.SalePrice = 0
		result.SaleStart = nil
		result.SaleEnd = nil
		result.Cleared = true
		return result, nil
	}

	if input.SalePrice != nil {
		result.SalePrice = *input.SalePrice
		result.SetSale = true
	}
	if input.SaleStart != nil {
		result.SaleStart = input.SaleStart
		result.SetSaleStart = true
	}
	if input.SaleEnd != nil {
		result.SaleEnd = input.SaleEnd
		result.SetSaleEnd = true
	}

	if err := validateSaleFields(result.Price, result.SalePrice, result.SaleStart, result.SaleEnd); err != nil {
		return saleUpdateResult{}, err
	}

	return result, nil
}
