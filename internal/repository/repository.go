package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mamadbah2/ranch/internal/domain/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// SaleFilter narrows FindSales. Zero fields match everything.
type SaleFilter struct {
	Status models.SaleStatus
	// DepartureBefore matches sales whose departure date is strictly before it.
	DepartureBefore *time.Time
}

// LotFilter narrows FindLots. Zero fields match everything.
type LotFilter struct {
	Status   models.LotStatus
	Manifest *int
}

// Store is the inventory store shared by the sale engine and the reconciler.
type Store interface {
	// WithTransaction runs fn as one atomic unit of work. Writes made through tx
	// are committed when fn returns nil and discarded otherwise. fn may be
	// invoked more than once when the backend retries a transient conflict.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	SaveReconciliationRun(ctx context.Context, run models.ReconciliationRun) error
}

// Tx exposes the records a lifecycle operation reads and writes.
type Tx interface {
	GetSale(ctx context.Context, id string) (models.Sale, error)
	FindSales(ctx context.Context, filter SaleFilter) ([]models.Sale, error)
	InsertSale(ctx context.Context, sale models.Sale) error
	SaveSales(ctx context.Context, sales []models.Sale) error
	DeleteSale(ctx context.Context, id string) error

	// GetLots returns the lots that exist among ids; unknown ids are skipped.
	GetLots(ctx context.Context, ids []string) ([]models.Lot, error)
	FindLots(ctx context.Context, filter LotFilter) ([]models.Lot, error)
	InsertLot(ctx context.Context, lot models.Lot) error
	SaveLots(ctx context.Context, lots []models.Lot) error

	FindAnimalsByLots(ctx context.Context, lotIDs []string) ([]models.Animal, error)
	SaveAnimals(ctx context.Context, animals []models.Animal) error

	GetClient(ctx context.Context, id string) (models.Client, error)
	GetRanch(ctx context.Context, id string) (models.Ranch, error)

	InsertActivity(ctx context.Context, activity models.Activity) error
}
