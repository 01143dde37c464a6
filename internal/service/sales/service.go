package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/metrics"
	"github.com/mamadbah2/ranch/internal/repository"
)

var (
	// ErrValidation marks requests rejected before any state was touched.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState marks operations attempted on a sale in the wrong status.
	ErrInvalidState = errors.New("invalid sale state")
	// ErrNotFound marks unknown sale ids.
	ErrNotFound = errors.New("sale not found")
)

// Publisher delivers lifecycle events once their transaction has committed.
type Publisher interface {
	Publish(key string, payload any) error
}

// ScheduleRequest carries the input of Schedule.
type ScheduleRequest struct {
	ClientID      string
	RanchID       string
	UserID        string
	LotIDs        []string
	Type          models.SaleType
	DepartureDate time.Time
	Folio         string
}

// AmendRequest carries the input of Amend. A nil Type keeps the current one.
type AmendRequest struct {
	DepartureDate time.Time
	Folio         string
	Type          *models.SaleType
	UserID        string
}

// RegisterLotRequest carries the input of RegisterLot.
type RegisterLotRequest struct {
	RanchID   string
	Manifest  int
	EntryDate time.Time
	Notes     string
	Community string
}

// SaleDetail is a sale with its lots summarized.
type SaleDetail struct {
	models.Sale
	Lots []models.LotSummary `json:"lotes"`
}

// Service is the sale lifecycle manager. Every operation is applied as a single
// store transaction covering the sale, its lots and their animals.
type Service struct {
	store     repository.Store
	publisher Publisher
	metrics   *metrics.Metrics
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewService wires a sale lifecycle manager. publisher and m may be nil. loc
// defines the calendar day used to decide whether a sale is due.
func NewService(store repository.Store, publisher Publisher, m *metrics.Metrics, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   m,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Schedule creates a sale for the given lots and moves them, and their
// animals, into the sale process. A sale dated today or earlier is finalized
// before it is returned.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (SaleDetail, error) {
	if err := req.validate(); err != nil {
		return SaleDetail{}, err
	}

	var detail SaleDetail
	err := s.run(ctx, func(ctx context.Context, w *work) error {
		client, err := w.tx.GetClient(ctx, req.ClientID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: client %s does not exist", ErrValidation, req.ClientID)
		}
		if err != nil {
			return fmt.Errorf("load client: %w", err)
		}
		if client.Role != models.RoleCustomer {
			return fmt.Errorf("%w: client %s does not have the %s role", ErrValidation, client.ID, models.RoleCustomer)
		}

		ranch, err := w.tx.GetRanch(ctx, req.RanchID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: ranch %s does not exist", ErrValidation, req.RanchID)
		}
		if err != nil {
			return fmt.Errorf("load ranch: %w", err)
		}

		lots, err := w.tx.GetLots(ctx, req.LotIDs)
		if err != nil {
			return fmt.Errorf("load lots: %w", err)
		}
		if len(lots) != len(req.LotIDs) {
			return fmt.Errorf("%w: %d of %d requested lots were found", ErrValidation, len(lots), len(req.LotIDs))
		}
		for _, lot := range lots {
			if lot.Status != models.LotAvailable {
				return fmt.Errorf("%w: lot %d is %q and cannot be sold", ErrValidation, lot.Manifest, lot.Status)
			}
		}

		animals, err := w.tx.FindAnimalsByLots(ctx, lotIDs(lots))
		if err != nil {
			return fmt.Errorf("load animals: %w", err)
		}
		if result := Validate(req.Type, lots, animals); !result.Valid {
			return fmt.Errorf("%w: %s", ErrValidation, result.Message)
		}

		date := startOfDay(req.DepartureDate, s.loc)
		sale := models.Sale{
			ID:            s.newID(),
			DepartureDate: &date,
			Folio:         strings.TrimSpace(req.Folio),
			Type:          req.Type,
			Status:        models.SaleScheduled,
			RanchID:       ranch.ID,
			ClientID:      client.ID,
			UserID:        req.UserID,
			LotIDs:        lotIDs(lots),
			CreatedAt:     w.now,
			UpdatedAt:     w.now,
		}

		g := &Graph{Sale: &sale, Lots: lots, Animals: animals}
		g.apply(enterSale, shipment{date: &date, folio: sale.Folio, clientID: client.ID, upp: client.UPP})

		if err := w.record(ctx, models.ActivityRegistered, sale, req.UserID,
			fmt.Sprintf("sale %s scheduled for %s with %d lots", sale.Folio, date.Format(dateLayout), len(lots))); err != nil {
			return err
		}
		if _, err := w.settle(ctx, g); err != nil {
			return err
		}

		if err := w.tx.InsertSale(ctx, *g.Sale); err != nil {
			return err
		}
		if err := w.tx.SaveLots(ctx, g.Lots); err != nil {
			return err
		}
		if err := w.tx.SaveAnimals(ctx, g.Animals); err != nil {
			return err
		}

		detail = newDetail(*g.Sale, g.Lots)
		return nil
	})
	if err != nil {
		return SaleDetail{}, err
	}
	return detail, nil
}

// Amend changes the departure date, folio and optionally the type of a
// scheduled sale. A changed folio must be numeric; it becomes the manifest
// number of every lot and the departure folio of every animal.
func (s *Service) Amend(ctx context.Context, id string, req AmendRequest) error {
	if req.DepartureDate.IsZero() {
		return fmt.Errorf("%w: departure date is required", ErrValidation)
	}
	folio := strings.TrimSpace(req.Folio)
	if folio == "" {
		return fmt.Errorf("%w: folio is required", ErrValidation)
	}
	if req.Type != nil && !req.Type.Valid() {
		return fmt.Errorf("%w: unknown sale type %d", ErrValidation, *req.Type)
	}

	return s.run(ctx, func(ctx context.Context, w *work) error {
		g, err := w.load(ctx, id)
		if err != nil {
			return err
		}
		if _, err := w.settle(ctx, g); err != nil {
			return err
		}
		if g.Sale.Status != models.SaleScheduled {
			return fmt.Errorf("%w: sale %s is %s; only %s sales can be amended", ErrInvalidState, id, g.Sale.Status, models.SaleScheduled)
		}

		var manifest *int
		if folio != g.Sale.Folio {
			n, err := strconv.Atoi(folio)
			if err != nil {
				return fmt.Errorf("%w: folio %q is not a valid manifest number", ErrValidation, folio)
			}
			manifest = &n
		}

		date := startOfDay(req.DepartureDate, s.loc)
		dateChanged := !sameDay(g.Sale.DepartureDate, &date, s.loc)

		g.Sale.DepartureDate = &date
		g.Sale.Folio = folio
		if req.Type != nil {
			g.Sale.Type = *req.Type
		}
		g.Sale.UpdatedAt = w.now
		g.reschedule(&date, folio, manifest)

		if err := w.record(ctx, models.ActivityAmended, *g.Sale, req.UserID,
			fmt.Sprintf("sale %s amended: departure %s", folio, date.Format(dateLayout))); err != nil {
			return err
		}
		if dateChanged {
			if _, err := w.settle(ctx, g); err != nil {
				return err
			}
		}
		return saveGraphs(ctx, w.tx, g)
	})
}

// Cancel deletes a scheduled sale and returns its lots and animals to stock.
func (s *Service) Cancel(ctx context.Context, id, userID string) error {
	return s.run(ctx, func(ctx context.Context, w *work) error {
		g, err := w.load(ctx, id)
		if err != nil {
			return err
		}
		if _, err := w.settle(ctx, g); err != nil {
			return err
		}
		if g.Sale.Status != models.SaleScheduled {
			return fmt.Errorf("%w: sale %s is %s; only %s sales can be cancelled", ErrInvalidState, id, g.Sale.Status, models.SaleScheduled)
		}

		lots := append([]string(nil), g.Sale.LotIDs...)
		g.apply(releaseSale, shipment{})

		if err := w.tx.SaveLots(ctx, g.Lots); err != nil {
			return err
		}
		if err := w.tx.SaveAnimals(ctx, g.Animals); err != nil {
			return err
		}
		if err := w.tx.DeleteSale(ctx, id); err != nil {
			return err
		}

		snapshot := *g.Sale
		snapshot.LotIDs = lots
		return w.record(ctx, models.ActivityCancelled, snapshot, userID,
			fmt.Sprintf("sale %s cancelled and removed; %d lots released", snapshot.Folio, len(lots)))
	})
}

// UndoCompleted reverts a completed sale: its lots and animals return to stock
// and the sale is kept as Cancelled.
func (s *Service) UndoCompleted(ctx context.Context, id, userID string) error {
	return s.run(ctx, func(ctx context.Context, w *work) error {
		g, err := w.load(ctx, id)
		if err != nil {
			return err
		}
		if _, err := w.settle(ctx, g); err != nil {
			return err
		}
		if g.Sale.Status != models.SaleCompleted {
			return fmt.Errorf("%w: sale %s is %s; only %s sales can be reverted", ErrInvalidState, id, g.Sale.Status, models.SaleCompleted)
		}

		lots := append([]string(nil), g.Sale.LotIDs...)
		g.apply(releaseSale, shipment{})
		g.Sale.UpdatedAt = w.now

		if err := saveGraphs(ctx, w.tx, g); err != nil {
			return err
		}

		snapshot := *g.Sale
		snapshot.LotIDs = lots
		return w.record(ctx, models.ActivityReverted, snapshot, userID,
			fmt.Sprintf("completed sale %s reverted; %d lots released", snapshot.Folio, len(lots)))
	})
}

// GetSale returns one sale, finalizing it first if it has become due.
func (s *Service) GetSale(ctx context.Context, id string) (SaleDetail, error) {
	var detail SaleDetail
	err := s.run(ctx, func(ctx context.Context, w *work) error {
		g, err := w.load(ctx, id)
		if err != nil {
			return err
		}
		settled, err := w.settle(ctx, g)
		if err != nil {
			return err
		}
		if settled {
			if err := saveGraphs(ctx, w.tx, g); err != nil {
				return err
			}
		}
		detail = newDetail(*g.Sale, g.Lots)
		return nil
	})
	if err != nil {
		return SaleDetail{}, err
	}
	return detail, nil
}

// ListSales returns sales, optionally filtered by status, after finalizing
// every sale that has become due.
func (s *Service) ListSales(ctx context.Context, status models.SaleStatus) ([]SaleDetail, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown sale status %q", ErrValidation, status)
	}

	var details []SaleDetail
	err := s.run(ctx, func(ctx context.Context, w *work) error {
		if _, err := w.settleDue(ctx); err != nil {
			return err
		}
		sales, err := w.tx.FindSales(ctx, repository.SaleFilter{Status: status})
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}

		details = make([]SaleDetail, 0, len(sales))
		for _, sale := range sales {
			lots, err := w.tx.GetLots(ctx, sale.LotIDs)
			if err != nil {
				return fmt.Errorf("load lots of sale %s: %w", sale.ID, err)
			}
			details = append(details, newDetail(sale, lots))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// ListCompletedSales returns completed sales with their lots and animals
// expanded.
func (s *Service) ListCompletedSales(ctx context.Context) ([]models.CompletedSale, error) {
	var out []models.CompletedSale
	err := s.run(ctx, func(ctx context.Context, w *work) error {
		if _, err := w.settleDue(ctx); err != nil {
			return err
		}
		sales, err := w.tx.FindSales(ctx, repository.SaleFilter{Status: models.SaleCompleted})
		if err != nil {
			return fmt.Errorf("list completed sales: %w", err)
		}

		out = make([]models.CompletedSale, 0, len(sales))
		for _, sale := range sales {
			g, err := loadGraph(ctx, w.tx, sale)
			if err != nil {
				return err
			}
			out = append(out, completedView(g))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAvailableLots returns the lots that can be put into a new sale.
func (s *Service) ListAvailableLots(ctx context.Context) ([]models.LotSummary, error) {
	var out []models.LotSummary
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		lots, err := tx.FindLots(ctx, repository.LotFilter{Status: models.LotAvailable})
		if err != nil {
			return fmt.Errorf("list available lots: %w", err)
		}
		animals, err := tx.FindAnimalsByLots(ctx, lotIDs(lots))
		if err != nil {
			return fmt.Errorf("load animals: %w", err)
		}

		counts := make(map[string]int, len(lots))
		for _, animal := range animals {
			counts[animal.LotID]++
		}

		out = make([]models.LotSummary, 0, len(lots))
		for _, lot := range lots {
			summary := lot.Summary()
			summary.Animals = counts[lot.ID]
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterLot creates an available lot. Manifest numbers are unique across all
// lots at registration time.
func (s *Service) RegisterLot(ctx context.Context, req RegisterLotRequest) (models.Lot, error) {
	if req.Manifest <= 0 {
		return models.Lot{}, fmt.Errorf("%w: manifest number must be positive", ErrValidation)
	}
	if strings.TrimSpace(req.RanchID) == "" {
		return models.Lot{}, fmt.Errorf("%w: ranch is required", ErrValidation)
	}

	var lot models.Lot
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		ranch, err := tx.GetRanch(ctx, req.RanchID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: ranch %s does not exist", ErrValidation, req.RanchID)
		}
		if err != nil {
			return fmt.Errorf("load ranch: %w", err)
		}

		manifest := req.Manifest
		existing, err := tx.FindLots(ctx, repository.LotFilter{Manifest: &manifest})
		if err != nil {
			return fmt.Errorf("check manifest: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: manifest number %d is already registered", ErrValidation, manifest)
		}

		entry := req.EntryDate
		if entry.IsZero() {
			entry = s.now()
		}
		community := strings.TrimSpace(req.Community)
		if community == "" {
			community = ranch.Community
		}

		lot = models.Lot{
			ID:        s.newID(),
			Manifest:  manifest,
			EntryDate: startOfDay(entry, s.loc),
			Status:    models.LotAvailable,
			Notes:     strings.TrimSpace(req.Notes),
			Community: community,
			RanchID:   ranch.ID,
		}
		return tx.InsertLot(ctx, lot)
	})
	if err != nil {
		return models.Lot{}, err
	}

	s.logger.Info("lot registered", zap.String("lot_id", lot.ID), zap.Int("manifest", lot.Manifest))
	return lot, nil
}

// FinalizeDue finalizes every scheduled sale whose departure date has arrived
// and persists all of them in one transaction. It returns the finalized sales.
func (s *Service) FinalizeDue(ctx context.Context) ([]models.Sale, error) {
	var finalized []models.Sale
	err := s.run(ctx, func(ctx context.Context, w *work) error {
		graphs, err := w.settleDue(ctx)
		if err != nil {
			return err
		}
		finalized = make([]models.Sale, 0, len(graphs))
		for _, g := range graphs {
			finalized = append(finalized, *g.Sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finalized, nil
}

func (s *Service) run(ctx context.Context, fn func(ctx context.Context, w *work) error) error {
	var w *work
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		// Fresh on every attempt: the store may retry the callback.
		w = &work{tx: tx, now: s.now().In(s.loc), newID: s.newID}
		return fn(ctx, w)
	})
	if err != nil {
		return err
	}
	s.publish(w.events)
	return nil
}

func (s *Service) publish(events []models.SaleEvent) {
	for _, evt := range events {
		s.metrics.Transition(evt.Type)
		s.logger.Info("sale transition committed",
			zap.String("event", evt.Type),
			zap.String("sale_id", evt.SaleID),
			zap.String("status", string(evt.Status)))

		if s.publisher == nil {
			continue
		}
		if err := s.publisher.Publish(evt.SaleID, evt); err != nil {
			s.logger.Warn("failed to publish sale event", zap.String("event", evt.Type), zap.String("sale_id", evt.SaleID), zap.Error(err))
		}
	}
}

func (r ScheduleRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ClientID) == "":
		return fmt.Errorf("%w: client is required", ErrValidation)
	case strings.TrimSpace(r.RanchID) == "":
		return fmt.Errorf("%w: ranch is required", ErrValidation)
	case len(r.LotIDs) == 0:
		return fmt.Errorf("%w: at least one lot is required", ErrValidation)
	case !r.Type.Valid():
		return fmt.Errorf("%w: unknown sale type %d", ErrValidation, r.Type)
	case r.DepartureDate.IsZero():
		return fmt.Errorf("%w: departure date is required", ErrValidation)
	case strings.TrimSpace(r.Folio) == "":
		return fmt.Errorf("%w: folio is required", ErrValidation)
	}
	return nil
}

func newDetail(sale models.Sale, lots []models.Lot) SaleDetail {
	summaries := make([]models.LotSummary, 0, len(lots))
	for _, lot := range lots {
		summaries = append(summaries, lot.Summary())
	}
	return SaleDetail{Sale: sale, Lots: summaries}
}

func completedView(g *Graph) models.CompletedSale {
	byLot := make(map[string][]models.SoldAnimal, len(g.Lots))
	for _, animal := range g.Animals {
		byLot[animal.LotID] = append(byLot[animal.LotID], models.SoldAnimal{
			EarTag:        animal.EarTag,
			Breed:         animal.Breed,
			Weight:        animal.Weight,
			Sex:           animal.Sex,
			DepartureDate: cloneTime(animal.DepartureDate),
		})
	}

	view := models.CompletedSale{Sale: *g.Sale, Lots: make([]models.CompletedLot, 0, len(g.Lots))}
	for _, lot := range g.Lots {
		view.Lots = append(view.Lots, models.CompletedLot{LotSummary: lot.Summary(), Animals: byLot[lot.ID]})
	}
	return view
}

func lotIDs(lots []models.Lot) []string {
	ids := make([]string, 0, len(lots))
	for _, lot := range lots {
		ids = append(ids, lot.ID)
	}
	return ids
}
