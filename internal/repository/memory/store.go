package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/repository"
)

type state struct {
	sales      map[string]models.Sale
	lots       map[string]models.Lot
	animals    map[string]models.Animal
	clients    map[string]models.Client
	ranches    map[string]models.Ranch
	activities []models.Activity
	runs       []models.ReconciliationRun
}

func newState() state {
	return state{
		sales:   map[string]models.Sale{},
		lots:    map[string]models.Lot{},
		animals: map[string]models.Animal{},
		clients: map[string]models.Client{},
		ranches: map[string]models.Ranch{},
	}
}

func (s state) clone() state {
	out := newState()
	for id, sale := range s.sales {
		out.sales[id] = cloneSale(sale)
	}
	for id, lot := range s.lots {
		out.lots[id] = cloneLot(lot)
	}
	for id, animal := range s.animals {
		out.animals[id] = cloneAnimal(animal)
	}
	for id, client := range s.clients {
		out.clients[id] = client
	}
	for id, ranch := range s.ranches {
		out.ranches[id] = ranch
	}
	out.activities = append([]models.Activity(nil), s.activities...)
	out.runs = append([]models.ReconciliationRun(nil), s.runs...)
	return out
}

// Store is an in-process implementation of repository.Store. Transactions are
// serialized and applied to a private copy of the state that replaces the
// live state only when the callback succeeds.
type Store struct {
	mu      sync.RWMutex
	state   state
	pingErr error
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithTransaction implements repository.Store.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(ctx, &tx{state: &working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

// SetPingError makes subsequent pings fail with err until it is reset with nil.
func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// SaveReconciliationRun implements repository.Store.
func (s *Store) SaveReconciliationRun(_ context.Context, run models.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.runs = append(s.state.runs, run)
	return nil
}

// PutClient seeds a client.
func (s *Store) PutClient(client models.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.clients[client.ID] = client
}

// PutRanch seeds a ranch.
func (s *Store) PutRanch(ranch models.Ranch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ranches[ranch.ID] = ranch
}

// PutLot seeds or overwrites a lot.
func (s *Store) PutLot(lot models.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.lots[lot.ID] = cloneLot(lot)
}

// PutAnimal seeds or overwrites an animal.
func (s *Store) PutAnimal(animal models.Animal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.animals[animal.ID] = cloneAnimal(animal)
}

// Sale returns a committed sale.
func (s *Store) Sale(id string) (models.Sale, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.state.sales[id]
	return cloneSale(sale), ok
}

// Lot returns a committed lot.
func (s *Store) Lot(id string) (models.Lot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.state.lots[id]
	return cloneLot(lot), ok
}

// Animal returns a committed animal.
func (s *Store) Animal(id string) (models.Animal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	animal, ok := s.state.animals[id]
	return cloneAnimal(animal), ok
}

// Activities returns the committed activity log.
func (s *Store) Activities() []models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Activity(nil), s.state.activities...)
}

// Runs returns the recorded reconciliation runs.
func (s *Store) Runs() []models.ReconciliationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ReconciliationRun(nil), s.state.runs...)
}

type tx struct {
	state *state
}

func (t *tx) GetSale(_ context.Context, id string) (models.Sale, error) {
	sale, ok := t.state.sales[id]
	if !ok {
		return models.Sale{}, fmt.Errorf("sale %s: %w", id, repository.ErrNotFound)
	}
	return cloneSale(sale), nil
}

func (t *tx) FindSales(_ context.Context, filter repository.SaleFilter) ([]models.Sale, error) {
	var out []models.Sale
	for _, sale := range t.state.sales {
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if filter.DepartureBefore != nil {
			if sale.DepartureDate == nil || !sale.DepartureDate.Before(*filter.DepartureBefore) {
				continue
			}
		}
		out = append(out, cloneSale(sale))
	}
	sort.Slice(out, func(i, j int) bool {
		return departureOf(out[i]).Before(departureOf(out[j])) ||
			(departureOf(out[i]).Equal(departureOf(out[j])) && out[i].ID < out[j].ID)
	})
	return out, nil
}

func (t *tx) InsertSale(_ context.Context, sale models.Sale) error {
	if _, exists := t.state.sales[sale.ID]; exists {
		return fmt.Errorf("sale %s already exists", sale.ID)
	}
	t.state.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (t *tx) SaveSales(_ context.Context, sales []models.Sale) error {
	for _, sale := range sales {
		t.state.sales[sale.ID] = cloneSale(sale)
	}
	return nil
}

func (t *tx) DeleteSale(_ context.Context, id string) error {
	if _, ok := t.state.sales[id]; !ok {
		return fmt.Errorf("sale %s: %w", id, repository.ErrNotFound)
	}
	delete(t.state.sales, id)
	return nil
}

func (t *tx) GetLots(_ context.Context, ids []string) ([]models.Lot, error) {
	seen := make(map[string]struct{}, len(ids))
	var out []models.Lot
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if lot, ok := t.state.lots[id]; ok {
			out = append(out, cloneLot(lot))
		}
	}
	return out, nil
}

func (t *tx) FindLots(_ context.Context, filter repository.LotFilter) ([]models.Lot, error) {
	var out []models.Lot
	for _, lot := range t.state.lots {
		if filter.Status != "" && lot.Status != filter.Status {
			continue
		}
		if filter.Manifest != nil && lot.Manifest != *filter.Manifest {
			continue
		}
		out = append(out, cloneLot(lot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest < out[j].Manifest })
	return out, nil
}

func (t *tx) InsertLot(_ context.Context, lot models.Lot) error {
	if _, exists := t.state.lots[lot.ID]; exists {
		return fmt.Errorf("lot %s already exists", lot.ID)
	}
	t.state.lots[lot.ID] = cloneLot(lot)
	return nil
}

func (t *tx) SaveLots(_ context.Context, lots []models.Lot) error {
	for _, lot := range lots {
		t.state.lots[lot.ID] = cloneLot(lot)
	}
	return nil
}

func (t *tx) FindAnimalsByLots(_ context.Context, lotIDs []string) ([]models.Animal, error) {
	wanted := make(map[string]struct{}, len(lotIDs))
	for _, id := range lotIDs {
		wanted[id] = struct{}{}
	}
	var out []models.Animal
	for _, animal := range t.state.animals {
		if animal.LotID == "" {
			continue
		}
		if _, ok := wanted[animal.LotID]; ok {
			out = append(out, cloneAnimal(animal))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EarTag < out[j].EarTag })
	return out, nil
}

func (t *tx) SaveAnimals(_ context.Context, animals []models.Animal) error {
	for _, animal := range animals {
		t.state.animals[animal.ID] = cloneAnimal(animal)
	}
	return nil
}

func (t *tx) GetClient(_ context.Context, id string) (models.Client, error) {
	client, ok := t.state.clients[id]
	if !ok {
		return models.Client{}, fmt.Errorf("client %s: %w", id, repository.ErrNotFound)
	}
	return client, nil
}

func (t *tx) GetRanch(_ context.Context, id string) (models.Ranch, error) {
	ranch, ok := t.state.ranches[id]
	if !ok {
		return models.Ranch{}, fmt.Errorf("ranch %s: %w", id, repository.ErrNotFound)
	}
	return ranch, nil
}

func (t *tx) InsertActivity(_ context.Context, activity models.Activity) error {
	t.state.activities = append(t.state.activities, activity)
	return nil
}

func departureOf(sale models.Sale) time.Time {
	if sale.DepartureDate == nil {
		return time.Time{}
	}
	return *sale.DepartureDate
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneSale(sale models.Sale) models.Sale {
	sale.DepartureDate = cloneTime(sale.DepartureDate)
	sale.LotIDs = append([]string(nil), sale.LotIDs...)
	return sale
}

func cloneLot(lot models.Lot) models.Lot {
	lot.DepartureDate = cloneTime(lot.DepartureDate)
	return lot
}

func cloneAnimal(animal models.Animal) models.Animal {
	animal.DepartureDate = cloneTime(animal.DepartureDate)
	return animal
}
