package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Price          float64            `bson:"price" json:"price"`
	SalePrice      float64            `bson:"salePrice,omitempty" json:"salePrice,omitempty"`
	SaleStart      *time.Time         `bson:"saleStart,omitempty" json:"saleStart,omitempty"`
	SaleEnd        *time.Time         `bson:"saleEnd,omitempty" json:"saleEnd,omitempty"`
	IsOnSale       bool               `bson:"-" json:"isOnSale"`
	EffectivePrice float64            `bson:"-" json:"effectivePrice"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID     string             `bson:"categoryId,omitempty" json:"categoryId,omitempty"`
	Images         StringList         `bson:"images" json:"images"`
	Seller         string             `bson:"seller" json:"seller"`
	Views          int64              `bson:"views" json:"views"`
	Stock          int                `bson:"stock" json:"stock"`
	InStock        bool               `bson:"-" json:"inStock"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
