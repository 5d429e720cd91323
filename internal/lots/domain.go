package lots

import (
	"errors"
	"time"
)

// LotStatus enumerates lot lifecycle values.
type LotStatus string

const (
	LotStatusActive    LotStatus = "active"
	LotStatusCompleted LotStatus = "completed"
	LotStatusCancelled LotStatus = "cancelled"
)

// PaymentStatus enumerates lot settlement states.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Allocation describes how a lot maps to a buyer.
type Allocation string

const (
	// AllocationSingle means the whole lot belongs to one buyer.
	AllocationSingle Allocation = "single"
	// AllocationMulti means individual bags are assigned to buyers.
	AllocationMulti Allocation = "multi"
)

// Lot is a farmer's batch of produce, subdivided into weighed bags.
type Lot struct {
	ID            int64
	TenantID      int64
	LotNumber     string
	FarmerID      int64
	NumberOfBags  int
	LotPrice      float64
	BuyerID       *int64
	Status        LotStatus
	BillGenerated bool
	PaymentStatus PaymentStatus
	AmountDue     float64
	AmountPaid    float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Bag is one weighed unit of a lot; Weight is nil until recorded, BuyerID is
// set only for bag-level buyer allocation.
type Bag struct {
	ID        int64
	LotID     int64
	BagNumber int
	Weight    *float64
	BuyerID   *int64
	CreatedAt time.Time
}

// BuyerLot pairs a lot with its allocation mode for buyer-side billing.
type BuyerLot struct {
	Lot        Lot
	Allocation Allocation
}

// ErrLotNotFound indicates the lot does not exist for the tenant.
var ErrLotNotFound = errors.New("lots: not found")

// Priced reports whether the lot has a usable price.
func (l Lot) Priced() bool {
	return l.LotPrice > 0
}
