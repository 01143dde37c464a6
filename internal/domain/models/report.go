package models

import "time"

// ReconciliationRun records one pass of the background reconciler.
type ReconciliationRun struct {
	ID         string    `bson:"_id" json:"id"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
	FinishedAt time.Time `bson:"finished_at" json:"finished_at"`
	Attempts   int       `bson:"attempts" json:"attempts"`
	Finalized  int       `bson:"finalized" json:"finalized"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
}

// CompletedSale is the reporting view of a completed sale with its lots and
// animals expanded.
type CompletedSale struct {
	Sale Sale           `json:"venta"`
	Lots []CompletedLot `json:"lotes"`
}

// CompletedLot is a lot within a completed sale.
type CompletedLot struct {
	LotSummary
	Animals []SoldAnimal `json:"animales"`
}

// SoldAnimal is the per-animal line of the completed sales report.
type SoldAnimal struct {
	EarTag        string     `json:"arete"`
	Breed         string     `json:"raza"`
	Weight        float64    `json:"peso"`
	Sex           string     `json:"sexo"`
	DepartureDate *time.Time `json:"fechaSalida,omitempty"`
}
