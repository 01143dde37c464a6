package models

import "time"

// LotStatus enumerates the sale-related states of a lot.
type LotStatus string

const (
	LotAvailable     LotStatus = "Disponible"
	LotInSaleProcess LotStatus = "En proceso de venta"
	LotSold          LotStatus = "Vendido"
)

// Lot groups animals shipped together under one manifest number (remo).
type Lot struct {
	ID            string     `bson:"_id" json:"id"`
	Manifest      int        `bson:"manifest" json:"remo"`
	EntryDate     time.Time  `bson:"entry_date" json:"fechaEntrada"`
	DepartureDate *time.Time `bson:"departure_date,omitempty" json:"fechaSalida,omitempty"`
	Status        LotStatus  `bson:"status" json:"estado"`
	Notes         string     `bson:"notes,omitempty" json:"observaciones,omitempty"`
	Community     string     `bson:"community,omitempty" json:"comunidad,omitempty"`
	RanchID       string     `bson:"ranch_id" json:"ranchoId"`
	ClientID      string     `bson:"client_id,omitempty" json:"clienteId,omitempty"`
	SaleID        string     `bson:"sale_id,omitempty" json:"ventaId,omitempty"`
}

// LotSummary is the compact view of a lot returned alongside sales and when
// building a new sale.
type LotSummary struct {
	ID        string    `json:"id"`
	Manifest  int       `json:"remo"`
	Community string    `json:"comunidad"`
	Status    LotStatus `json:"estado"`
	Animals   int       `json:"cantidadAnimales,omitempty"`
}

// Summary returns the compact view of the lot.
func (l Lot) Summary() LotSummary {
	return LotSummary{
		ID:        l.ID,
		Manifest:  l.Manifest,
		Community: l.Community,
		Status:    l.Status,
	}
}
