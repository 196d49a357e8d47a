package model

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Product is the document stored in the products collection.
// Price is kept at 1/1000 of the unit callers use when filtering.
type Product struct {
	ID        uuid.UUID `json:"id" bson:"id"`
	Name      string    `json:"name" bson:"name"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Price     float64   `json:"price" bson:"price"`
	Status    bool      `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ProductIn is the create payload.
type ProductIn struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Quantity int     `json:"quantity" validate:"gte=0"`
	Price    float64 `json:"price" validate:"gt=0"`
	Status   bool    `json:"status"`
}

// ProductUpdate is a sparse patch: nil fields are left untouched in the store.
type ProductUpdate struct {
	Name      *string    `json:"name,omitempty" validate:"omitnil,max=255"`
	Quantity  *int       `json:"quantity,omitempty" validate:"omitnil,gte=0"`
	Price     *float64   `json:"price,omitempty" validate:"omitnil,gt=0"`
	Status    *bool      `json:"status,omitempty"`
	// UpdatedAt is stored as a BSON datetime: it is converted to UTC and
	// truncated to milliseconds, so a finer timestamp is not echoed exactly.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Now returns the current time the way it round-trips through a BSON datetime.
func Now() time.Time {
	return Timestamp(time.Now())
}

// Timestamp normalizes t to UTC with millisecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NewProduct builds the canonical entity for a create request.
func NewProduct(in ProductIn, now time.Time) *Product {
	now = Timestamp(now)
	return &Product{
		ID:        uuid.New(),
		Name:      in.Name,
		Quantity:  in.Quantity,
		Price:     in.Price,
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToSet returns the $set document for the fields present in u.
func (u ProductUpdate) ToSet() bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.UpdatedAt != nil {
		set["updated_at"] = Timestamp(*u.UpdatedAt)
	}
	return set
}
