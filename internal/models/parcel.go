package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownStatus is returned when a string does not name any parcel status.
var ErrUnknownStatus = errors.New("unknown parcel status")

// ParcelStatus is one stage of the fixed parcel lifecycle. The lifecycle is
// totally ordered and a parcel only ever moves one stage forward at a time.
type ParcelStatus string

// Lifecycle stages, in order.
const (
	StatusChinaWarehouse ParcelStatus = "CHINA_WAREHOUSE"
	StatusInTransit      ParcelStatus = "IN_TRANSIT"
	StatusBishkekArrived ParcelStatus = "BISHKEK_ARRIVED"
	StatusReadyPickup    ParcelStatus = "READY_PICKUP"
	StatusDelivered      ParcelStatus = "DELIVERED"
)

// parcelStages holds the lifecycle in stage order; index is the stage number.
var parcelStages = []ParcelStatus{
	StatusChinaWarehouse,
	StatusInTransit,
	StatusBishkekArrived,
	StatusReadyPickup,
	StatusDelivered,
}

// ParseParcelStatus converts a stored string into a ParcelStatus.
// It returns ErrUnknownStatus if the value is not a member of the enumeration.
func ParseParcelStatus(value string) (ParcelStatus, error) {
	for _, status := range parcelStages {
		if string(status) == value {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
}

// Valid reports whether the status is a member of the lifecycle enumeration.
func (s ParcelStatus) Valid() bool {
	return s.stage() >= 0
}

// stage returns the zero-based stage index, or -1 for an unknown value.
func (s ParcelStatus) stage() int {
	for i, status := range parcelStages {
		if status == s {
			return i
		}
	}
	return -1
}

// Next returns the following lifecycle stage. The second result is false when
// the status is terminal (DELIVERED) or not a valid member.
func (s ParcelStatus) Next() (ParcelStatus, bool) {
	idx := s.stage()
	if idx < 0 || idx == len(parcelStages)-1 {
		return "", false
	}
	return parcelStages[idx+1], true
}

// CanAdvanceTo reports whether target is exactly the next stage after s.
// Skipping ahead and moving backward are both rejected.
func (s ParcelStatus) CanAdvanceTo(target ParcelStatus) bool {
	next, ok := s.Next()
	return ok && next == target
}

// StampColumn returns the parcels column that records when the parcel entered
// this stage. Entering IN_TRANSIT stamps the departure from the China
// warehouse, BISHKEK_ARRIVED the arrival, DELIVERED the handover. The other
// stages carry no date of their own and return "".
func (s ParcelStatus) StampColumn() string {
	switch s {
	case StatusInTransit:
		return "date_china"
	case StatusBishkekArrived:
		return "date_bishkek"
	case StatusDelivered:
		return "date_delivered"
	default:
		return ""
	}
}

// DisplayName returns the customer-facing status label.
func (s ParcelStatus) DisplayName() string {
	switch s {
	case StatusChinaWarehouse:
		return "📦 На складе в Китае"
	case StatusInTransit:
		return "✈️ В пути"
	case StatusBishkekArrived:
		return "🏠 Прибыло в Бишкек"
	case StatusReadyPickup:
		return "💰 Готово к выдаче"
	case StatusDelivered:
		return "✅ Выдано"
	default:
		return string(s)
	}
}

// Parcel represents a single shipment. A parcel is never deleted; once
// delivered it stays in the store as history.
type Parcel struct {
	ID            int             `json:"id"`             // ID is the internal parcel identifier.
	ClientCode    int             `json:"client_code"`    // ClientCode references the owning client's code.
	Tracking      string          `json:"tracking"`       // Tracking is the unique tracking number of the shipment.
	Status        ParcelStatus    `json:"status"`         // Status is the current lifecycle stage.
	WeightKg      decimal.Decimal `json:"weight_kg"`      // WeightKg is the shipment weight in kilograms.
	AmountUSD     decimal.Decimal `json:"amount_usd"`     // AmountUSD is the invoiced amount in US dollars.
	AmountSom     decimal.Decimal `json:"amount_som"`     // AmountSom is the invoiced amount in Kyrgyz som.
	DateChina     *time.Time      `json:"date_china"`     // DateChina is set when the parcel leaves the China warehouse.
	DateBishkek   *time.Time      `json:"date_bishkek"`   // DateBishkek is set when the parcel arrives in Bishkek.
	DateDelivered *time.Time      `json:"date_delivered"` // DateDelivered is set when the parcel is handed over.
	CreatedAt     time.Time       `json:"created_at"`     // CreatedAt is the registration timestamp of the parcel.
}
