package sales

import (
	"testing"
	"time"

	"github.com/mamadbah2/ranch/internal/domain/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		sale models.Sale
		want bool
	}{
		{name: "scheduled yesterday", sale: models.Sale{Status: models.SaleScheduled, DepartureDate: date(2026, 3, 9)}, want: true},
		{name: "scheduled today", sale: models.Sale{Status: models.SaleScheduled, DepartureDate: date(2026, 3, 10)}, want: true},
		{name: "scheduled late today", sale: models.Sale{Status: models.SaleScheduled, DepartureDate: func() *time.Time {
			v := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
			return &v
		}()}, want: true},
		{name: "scheduled tomorrow", sale: models.Sale{Status: models.SaleScheduled, DepartureDate: date(2026, 3, 11)}, want: false},
		{name: "no departure date", sale: models.Sale{Status: models.SaleScheduled}, want: false},
		{name: "already completed", sale: models.Sale{Status: models.SaleCompleted, DepartureDate: date(2026, 3, 1)}, want: false},
		{name: "cancelled", sale: models.Sale{Status: models.SaleCancelled, DepartureDate: date(2026, 3, 1)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(tt.sale, now); got != tt.want {
				t.Errorf("IsDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDueUsesCalendarDayOfLocation(t *testing.T) {
	mexico := time.FixedZone("CST", -6*60*60)
	// 03:00 UTC on the 11th is still the 10th in Mexico.
	now := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC).In(mexico)
	tomorrow := time.Date(2026, 3, 11, 0, 0, 0, 0, mexico)

	sale := models.Sale{Status: models.SaleScheduled, DepartureDate: &tomorrow}
	if IsDue(sale, now) {
		t.Fatalf("sale departing on the 11th local time must not be due on the 10th")
	}
}

func newGraph() *Graph {
	return &Graph{
		Sale: &models.Sale{ID: "S1", Status: models.SaleScheduled, DepartureDate: date(2026, 3, 9), LotIDs: []string{"L1"}},
		Lots: []models.Lot{{ID: "L1", Status: models.LotInSaleProcess, SaleID: "S1", ClientID: "C1", DepartureDate: date(2026, 3, 9)}},
		Animals: []models.Animal{
			{ID: "a1", LotID: "L1", Status: models.AnimalInSaleProcess, DepartureFolio: "100", DestinationClientID: "C1"},
		},
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	g := newGraph()

	if !Finalize(g, now) {
		t.Fatalf("first Finalize should change the graph")
	}
	if Finalize(g, now) {
		t.Fatalf("second Finalize should be a no-op")
	}

	if g.Sale.Status != models.SaleCompleted {
		t.Errorf("sale status = %q, want %q", g.Sale.Status, models.SaleCompleted)
	}
	if g.Lots[0].Status != models.LotSold {
		t.Errorf("lot status = %q, want %q", g.Lots[0].Status, models.LotSold)
	}
	if g.Animals[0].Status != models.AnimalSold {
		t.Errorf("animal status = %q, want %q", g.Animals[0].Status, models.AnimalSold)
	}
	if g.Animals[0].DepartureFolio != "100" || g.Lots[0].ClientID != "C1" {
		t.Errorf("finalize must keep shipping fields, got folio %q client %q", g.Animals[0].DepartureFolio, g.Lots[0].ClientID)
	}
}

func TestFinalizeSkipsFutureSale(t *testing.T) {
	g := newGraph()
	g.Sale.DepartureDate = date(2026, 3, 20)

	if Finalize(g, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("Finalize changed a sale that is not due")
	}
	if g.Lots[0].Status != models.LotInSaleProcess {
		t.Errorf("lot status = %q, want unchanged", g.Lots[0].Status)
	}
}

func TestReleaseClearsShipping(t *testing.T) {
	g := newGraph()
	g.apply(releaseSale, shipment{})

	lot := g.Lots[0]
	if lot.Status != models.LotAvailable || lot.ClientID != "" || lot.SaleID != "" || lot.DepartureDate != nil {
		t.Errorf("lot not released: %+v", lot)
	}
	animal := g.Animals[0]
	if animal.Status != models.AnimalInStock || animal.DepartureFolio != "" || animal.DestinationClientID != "" || animal.DepartureDate != nil {
		t.Errorf("animal not released: %+v", animal)
	}
	if len(g.Sale.LotIDs) != 0 {
		t.Errorf("sale still references lots: %v", g.Sale.LotIDs)
	}
}
