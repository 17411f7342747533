package models

import (
	"time"

	"github.com/google/uuid"
)

// CounterpartyKind is the kind of resource costs and obligations are tracked against.
type CounterpartyKind string

const (
	KindSupplier CounterpartyKind = "supplier"
	KindVehicle  CounterpartyKind = "vehicle"
	KindHotel    CounterpartyKind = "hotel"
)

// AllKinds lists every counterparty kind in display order.
var AllKinds = []CounterpartyKind{KindSupplier, KindVehicle, KindHotel}

// Valid reports whether k is a known kind.
func (k CounterpartyKind) Valid() bool {
	switch k {
	case KindSupplier, KindVehicle, KindHotel:
		return true
	}
	return false
}

// RecordsRevenue reports whether cost entries of this kind carry a revenue_amount.
// Supplier costs never do; their revenue always comes from engagement payments.
func (k CounterpartyKind) RecordsRevenue() bool {
	return k == KindVehicle || k == KindHotel
}

// Plural is the URL segment used for the kind ("suppliers", "vehicles", "hotels").
func (k CounterpartyKind) Plural() string {
	return string(k) + "s"
}

// KindFromPlural maps a URL segment back to its kind.
func KindFromPlural(s string) (CounterpartyKind, bool) {
	for _, k := range AllKinds {
		if k.Plural() == s {
			return k, true
		}
	}
	return "", false
}

// Counterparty is a supplier, vehicle/transfer or hotel owned by a tenant.
type Counterparty struct {
	ID          uuid.UUID        `json:"id"`
	CompanyID   uuid.UUID        `json:"company_id"`
	Kind        CounterpartyKind `json:"kind"`
	Name        string           `json:"name"`
	CompanyName *string          `json:"company_name,omitempty"`
	Email       *string          `json:"email,omitempty"`
	Destination *string          `json:"destination,omitempty"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

const CounterpartyStatusActive = "active"
