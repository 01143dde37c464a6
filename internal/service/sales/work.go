package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/repository"
)

const dateLayout = "2006-01-02"

var eventTypes = map[models.ActivityType]string{
	models.ActivityRegistered: models.EventSaleScheduled,
	models.ActivityAmended:    models.EventSaleAmended,
	models.ActivityCompleted:  models.EventSaleCompleted,
	models.ActivityCancelled:  models.EventSaleCancelled,
	models.ActivityReverted:   models.EventSaleReverted,
}

// work is the state of one transaction attempt: the store handle, the clock
// reading every due check in the attempt uses, and the events to publish
// after commit.
type work struct {
	tx     repository.Tx
	now    time.Time
	newID  func() string
	events []models.SaleEvent
}

func (w *work) load(ctx context.Context, id string) (*Graph, error) {
	sale, err := w.tx.GetSale(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load sale %s: %w", id, err)
	}
	return loadGraph(ctx, w.tx, sale)
}

// settle finalizes g if it is due and logs the completion.
func (w *work) settle(ctx context.Context, g *Graph) (bool, error) {
	if !Finalize(g, w.now) {
		return false, nil
	}
	g.Sale.UpdatedAt = w.now
	err := w.record(ctx, models.ActivityCompleted, *g.Sale, "",
		fmt.Sprintf("sale %s completed; %d lots sold", g.Sale.Folio, len(g.Lots)))
	return true, err
}

// settleDue finalizes every due sale and writes them back in one batch.
func (w *work) settleDue(ctx context.Context) ([]*Graph, error) {
	tomorrow := startOfDay(w.now, w.now.Location()).AddDate(0, 0, 1)
	due, err := w.tx.FindSales(ctx, repository.SaleFilter{Status: models.SaleScheduled, DepartureBefore: &tomorrow})
	if err != nil {
		return nil, fmt.Errorf("find due sales: %w", err)
	}

	var graphs []*Graph
	for _, sale := range due {
		g, err := loadGraph(ctx, w.tx, sale)
		if err != nil {
			return nil, err
		}
		settled, err := w.settle(ctx, g)
		if err != nil {
			return nil, err
		}
		if settled {
			graphs = append(graphs, g)
		}
	}

	if err := saveGraphs(ctx, w.tx, graphs...); err != nil {
		return nil, err
	}
	return graphs, nil
}

func (w *work) record(ctx context.Context, kind models.ActivityType, sale models.Sale, userID, description string) error {
	activity := models.Activity{
		ID:          w.newID(),
		Type:        kind,
		SaleID:      sale.ID,
		UserID:      userID,
		Description: description,
		CreatedAt:   w.now,
	}
	if err := w.tx.InsertActivity(ctx, activity); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	w.events = append(w.events, models.SaleEvent{
		Type:       eventTypes[kind],
		SaleID:     sale.ID,
		Status:     sale.Status,
		Folio:      sale.Folio,
		ClientID:   sale.ClientID,
		LotIDs:     append([]string(nil), sale.LotIDs...),
		OccurredAt: w.now,
	})
	return nil
}

func loadGraph(ctx context.Context, tx repository.Tx, sale models.Sale) (*Graph, error) {
	lots, err := tx.GetLots(ctx, sale.LotIDs)
	if err != nil {
		return nil, fmt.Errorf("load lots of sale %s: %w", sale.ID, err)
	}
	animals, err := tx.FindAnimalsByLots(ctx, lotIDs(lots))
	if err != nil {
		return nil, fmt.Errorf("load animals of sale %s: %w", sale.ID, err)
	}
	return &Graph{Sale: &sale, Lots: lots, Animals: animals}, nil
}

func saveGraphs(ctx context.Context, tx repository.Tx, graphs ...*Graph) error {
	if len(graphs) == 0 {
		return nil
	}

	var (
		sales   []models.Sale
		lots    []models.Lot
		animals []models.Animal
	)
	for _, g := range graphs {
		sales = append(sales, *g.Sale)
		lots = append(lots, g.Lots...)
		animals = append(animals, g.Animals...)
	}

	if err := tx.SaveSales(ctx, sales); err != nil {
		return fmt.Errorf("save sales: %w", err)
	}
	if err := tx.SaveLots(ctx, lots); err != nil {
		return fmt.Errorf("save lots: %w", err)
	}
	if err := tx.SaveAnimals(ctx, animals); err != nil {
		return fmt.Errorf("save animals: %w", err)
	}
	return nil
}
