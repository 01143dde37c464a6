package sales

import (
	"time"

	"github.com/mamadbah2/ranch/internal/domain/models"
)

// Graph is a sale loaded together with its lots and the animals in them.
type Graph struct {
	Sale    *models.Sale
	Lots    []models.Lot
	Animals []models.Animal
}

type shipping int

const (
	shippingKeep shipping = iota
	shippingAssign
	shippingClear
)

// cascade is the status triple written across a graph, plus what happens to
// the shipping fields of lots and animals.
type cascade struct {
	sale     models.SaleStatus // empty leaves the sale status untouched
	lot      models.LotStatus
	animal   models.AnimalStatus
	shipping shipping
}

var (
	enterSale = cascade{
		sale:     models.SaleScheduled,
		lot:      models.LotInSaleProcess,
		animal:   models.AnimalInSaleProcess,
		shipping: shippingAssign,
	}
	completeSale = cascade{
		sale:     models.SaleCompleted,
		lot:      models.LotSold,
		animal:   models.AnimalSold,
		shipping: shippingKeep,
	}
	releaseSale = cascade{
		sale:     models.SaleCancelled,
		lot:      models.LotAvailable,
		animal:   models.AnimalInStock,
		shipping: shippingClear,
	}
)

// shipment carries the fields assigned to lots and animals entering a sale.
type shipment struct {
	date     *time.Time
	folio    string
	clientID string
	upp      string
}

func (g *Graph) apply(c cascade, s shipment) {
	if c.sale != "" {
		g.Sale.Status = c.sale
	}

	for i := range g.Lots {
		lot := &g.Lots[i]
		lot.Status = c.lot
		switch c.shipping {
		case shippingAssign:
			lot.DepartureDate = cloneTime(s.date)
			lot.ClientID = s.clientID
			lot.SaleID = g.Sale.ID
		case shippingClear:
			lot.DepartureDate = nil
			lot.ClientID = ""
			lot.SaleID = ""
		}
	}

	for i := range g.Animals {
		animal := &g.Animals[i]
		animal.Status = c.animal
		switch c.shipping {
		case shippingAssign:
			animal.DepartureDate = cloneTime(s.date)
			animal.DepartureFolio = s.folio
			animal.DestinationClientID = s.clientID
			animal.DestinationUPP = s.upp
		case shippingClear:
			animal.DepartureDate = nil
			animal.DepartureFolio = ""
			animal.DestinationClientID = ""
			animal.DestinationUPP = ""
		}
	}

	if c.shipping == shippingClear {
		g.Sale.LotIDs = nil
	}
}

// reschedule propagates an amended departure date to every lot and animal and,
// when manifest is non-nil, the amended folio as well.
func (g *Graph) reschedule(date *time.Time, folio string, manifest *int) {
	for i := range g.Lots {
		g.Lots[i].DepartureDate = cloneTime(date)
		if manifest != nil {
			g.Lots[i].Manifest = *manifest
		}
	}
	for i := range g.Animals {
		g.Animals[i].DepartureDate = cloneTime(date)
		if manifest != nil {
			g.Animals[i].DepartureFolio = folio
		}
	}
}

// Finalize marks a due scheduled sale Completed and its lots and animals
// Sold. It is the only transition into Completed. It reports whether the
// graph changed; calling it on a graph that is not due is a no-op.
func Finalize(g *Graph, now time.Time) bool {
	if g == nil || g.Sale == nil || !IsDue(*g.Sale, now) {
		return false
	}
	g.apply(completeSale, shipment{})
	return true
}

// IsDue reports whether sale is Scheduled and its departure date falls on or
// before the calendar day of now, in now's location.
func IsDue(sale models.Sale, now time.Time) bool {
	if sale.Status != models.SaleScheduled || sale.DepartureDate == nil {
		return false
	}
	return !startOfDay(*sale.DepartureDate, now.Location()).After(startOfDay(now, now.Location()))
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func sameDay(a, b *time.Time, loc *time.Location) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return startOfDay(*a, loc).Equal(startOfDay(*b, loc))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
