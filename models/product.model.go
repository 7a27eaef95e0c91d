package models

import (
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductStatus is the stock-derived availability of a product.
type ProductStatus string

const (
	ProductInStock    ProductStatus = "in-stock"
	ProductOutOfStock ProductStatus = "out-of-stock"
	ProductBackorder  ProductStatus = "backorder"
)

// Product represents an item in the catalog
type Product struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name              string             `bson:"name" json:"name"`
	Slug              string             `bson:"slug" json:"slug"`
	SKU               string             `bson:"sku" json:"sku"`
	Category          string             `bson:"category" json:"category"`
	Price             float64            `bson:"price" json:"price"`
	PriceDiscount     float64            `bson:"price_discount,omitempty" json:"price_discount,omitempty"`
	Description       string             `bson:"description" json:"description"`
	ShortDescription  string             `bson:"short_description" json:"short_description"`
	Ingredients       string             `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	Usage             string             `bson:"usage,omitempty" json:"usage,omitempty"`
	ImageCover        string             `bson:"image_cover" json:"image_cover"`
	Images            []string           `bson:"images,omitempty" json:"images,omitempty"`
	Stock             int                `bson:"stock" json:"stock"`
	LowStockThreshold int                `bson:"low_stock_threshold" json:"low_stock_threshold"`
	Status            ProductStatus      `bson:"status" json:"status"`
	TrackInventory    bool               `bson:"track_inventory" json:"track_inventory"`
	AllowBackorders   bool               `bson:"allow_backorders" json:"allow_backorders"`
	Featured          bool               `bson:"featured" json:"featured"`
	New               bool               `bson:"new" json:"new"`
	Bestseller        bool               `bson:"bestseller" json:"bestseller"`
	RatingsAverage    float64            `bson:"ratings_average" json:"ratings_average"`
	RatingsQuantity   int                `bson:"ratings_quantity" json:"ratings_quantity"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// ProductCategories are the allowed values for Product.Category.
var ProductCategories = []string{"tinctures", "teas", "supplements", "oils", "topicals", "bundles"}

// ValidCategory reports whether c is one of the allowed product categories.
func ValidCategory(c string) bool {
	for _, v := range ProductCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Normalize derives the slug and availability status from the product's
// current fields. Must be called before every insert or update of a product
// document; there is no persistence hook doing it implicitly.
func (p *Product) Normalize() {
	p.Slug = slug.Make(p.Name)
	if p.RatingsAverage == 0 {
		p.RatingsAverage = 4.5
	}
	if p.TrackInventory || p.Status == "" {
		p.Status = p.Availability()
	}
	p.UpdatedAt = time.Now()
}

// Availability derives the status enum from the current stock and inventory
// flags.
func (p *Product) Availability() ProductStatus {
	if !p.TrackInventory {
		if p.Status != "" {
			return p.Status
		}
		return ProductInStock
	}
	if p.Stock <= 0 {
		if p.AllowBackorders {
			return ProductBackorder
		}
		return ProductOutOfStock
	}
	return ProductInStock
}

// CanFulfill reports whether a purchase of qty units is allowed against the
// product's current stock. Untracked and backorder-enabled products always
// fulfill.
func (p *Product) CanFulfill(qty int) bool {
	if !p.TrackInventory || p.AllowBackorders {
		return true
	}
	return p.Stock >= qty
}
