package models

import "time"

// SaleStatus enumerates the lifecycle states of a sale. The values are stored
// and exchanged verbatim.
type SaleStatus string

const (
	SaleScheduled SaleStatus = "Programada"
	SaleCompleted SaleStatus = "Completada"
	SaleCancelled SaleStatus = "Cancelada"
)

// Valid reports whether the status is one of the known sale states.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleScheduled, SaleCompleted, SaleCancelled:
		return true
	}
	return false
}

// SaleType distinguishes domestic sales from export sales.
type SaleType int

const (
	SaleDomestic      SaleType = 0
	SaleInternational SaleType = 1
)

// Valid reports whether the type is a known sale type.
func (t SaleType) Valid() bool {
	return t == SaleDomestic || t == SaleInternational
}

func (t SaleType) String() string {
	switch t {
	case SaleDomestic:
		return "Nacional"
	case SaleInternational:
		return "Internacional"
	default:
		return "Desconocido"
	}
}

// Sale is a scheduled or completed transfer of lots to a client.
type Sale struct {
	ID            string     `bson:"_id" json:"id"`
	DepartureDate *time.Time `bson:"departure_date,omitempty" json:"fechaSalida,omitempty"`
	Folio         string     `bson:"folio" json:"folio"`
	Type          SaleType   `bson:"type" json:"tipoVenta"`
	Status        SaleStatus `bson:"status" json:"estado"`
	RanchID       string     `bson:"ranch_id" json:"ranchoId"`
	ClientID      string     `bson:"client_id" json:"clienteId"`
	UserID        string     `bson:"user_id,omitempty" json:"usuarioId,omitempty"`
	LotIDs        []string   `bson:"lot_ids" json:"loteIds"`
	CreatedAt     time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updatedAt"`
}

// SaleEvent is published after a lifecycle operation commits.
type SaleEvent struct {
	Type       string     `json:"type"`
	SaleID     string     `json:"sale_id"`
	Status     SaleStatus `json:"status"`
	Folio      string     `json:"folio"`
	ClientID   string     `json:"client_id"`
	LotIDs     []string   `json:"lot_ids"`
	OccurredAt time.Time  `json:"occurred_at"`
}

const (
	EventSaleScheduled = "sale.scheduled"
	EventSaleAmended   = "sale.amended"
	EventSaleCompleted = "sale.completed"
	EventSaleCancelled = "sale.cancelled"
	EventSaleReverted  = "sale.reverted"
)
