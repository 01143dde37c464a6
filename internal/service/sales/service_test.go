package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/repository/memory"
)

type recordingPublisher struct {
	events []models.SaleEvent
}

func (p *recordingPublisher) Publish(_ string, payload any) error {
	p.events = append(p.events, payload.(models.SaleEvent))
	return nil
}

type fixture struct {
	store     *memory.Store
	svc       *Service
	publisher *recordingPublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutClient(models.Client{ID: "C1", Name: "Ganadera del Norte", Role: models.RoleCustomer, UPP: "UPP-0200"})
	store.PutClient(models.Client{ID: "P1", Name: "Productor Uno", Role: "Productor"})
	store.PutRanch(models.Ranch{ID: "R1", Name: "El Sauz", Community: "San Juan"})

	entry := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	store.PutLot(models.Lot{ID: "L1", Manifest: 501, EntryDate: entry, Status: models.LotAvailable, RanchID: "R1", Community: "San Juan"})
	store.PutLot(models.Lot{ID: "L2", Manifest: 502, EntryDate: entry, Status: models.LotAvailable, RanchID: "R1", Community: "La Loma"})
	store.PutLot(models.Lot{ID: "L3", Manifest: 503, EntryDate: entry, Status: models.LotAvailable, RanchID: "R1"})

	for _, a := range []models.Animal{
		{ID: "A1", EarTag: "MX-001", LotID: "L1", Breed: "Angus", Weight: 410, Sex: "M"},
		{ID: "A2", EarTag: "MX-002", LotID: "L1", Breed: "Brahman", Weight: 385, Sex: "H"},
		{ID: "A3", EarTag: "MX-003", LotID: "L2", Breed: "Charolais", Weight: 450, Sex: "M"},
		{ID: "A4", EarTag: "MX-004", Breed: "Angus"},
	} {
		a.Status = models.AnimalInStock
		a.TickCertificate = "CG-" + a.ID
		a.SanitaryValidationID = "VS-" + a.ID
		store.PutAnimal(a)
	}

	f := &fixture{
		store:     store,
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(store, f.publisher, nil, time.UTC, nil)
	f.svc.now = func() time.Time { return f.now }

	var seq int
	f.svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	return f
}

func (f *fixture) day(offset int) time.Time {
	y, m, d := f.now.Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) schedule(t *testing.T, offset int, lots ...string) SaleDetail {
	t.Helper()
	detail, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		ClientID:      "C1",
		RanchID:       "R1",
		UserID:        "U1",
		LotIDs:        lots,
		Type:          models.SaleDomestic,
		DepartureDate: f.day(offset),
		Folio:         "100",
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	return detail
}

func (f *fixture) assertLot(t *testing.T, id string, want models.LotStatus) models.Lot {
	t.Helper()
	lot, ok := f.store.Lot(id)
	if !ok {
		t.Fatalf("lot %s missing", id)
	}
	if lot.Status != want {
		t.Errorf("lot %s status = %q, want %q", id, lot.Status, want)
	}
	return lot
}

func (f *fixture) assertAnimal(t *testing.T, id string, want models.AnimalStatus) models.Animal {
	t.Helper()
	animal, ok := f.store.Animal(id)
	if !ok {
		t.Fatalf("animal %s missing", id)
	}
	if animal.Status != want {
		t.Errorf("animal %s status = %q, want %q", id, animal.Status, want)
	}
	return animal
}

func (f *fixture) assertReleased(t *testing.T, lots []string, animals []string) {
	t.Helper()
	for _, id := range lots {
		lot := f.assertLot(t, id, models.LotAvailable)
		if lot.DepartureDate != nil || lot.ClientID != "" || lot.SaleID != "" {
			t.Errorf("lot %s keeps sale fields: %+v", id, lot)
		}
	}
	for _, id := range animals {
		animal := f.assertAnimal(t, id, models.AnimalInStock)
		if animal.DepartureDate != nil || animal.DepartureFolio != "" || animal.DestinationClientID != "" || animal.DestinationUPP != "" {
			t.Errorf("animal %s keeps sale fields: %+v", id, animal)
		}
	}
}

func TestSchedulePastDomesticSaleIsBornCompleted(t *testing.T) {
	f := newFixture(t)

	detail := f.schedule(t, -1, "L1", "L2")

	if detail.Status != models.SaleCompleted {
		t.Fatalf("sale status = %q, want %q", detail.Status, models.SaleCompleted)
	}
	for _, lot := range detail.Lots {
		if lot.Status != models.LotSold {
			t.Errorf("summary lot %s status = %q, want %q", lot.ID, lot.Status, models.LotSold)
		}
	}
	f.assertLot(t, "L1", models.LotSold)
	f.assertLot(t, "L2", models.LotSold)
	for _, id := range []string{"A1", "A2", "A3"} {
		f.assertAnimal(t, id, models.AnimalSold)
	}
	f.assertAnimal(t, "A4", models.AnimalInStock)

	stored, ok := f.store.Sale(detail.ID)
	if !ok || stored.Status != models.SaleCompleted {
		t.Fatalf("stored sale = %+v, want completed", stored)
	}
}

func TestScheduleFutureSaleEntersSaleProcess(t *testing.T) {
	f := newFixture(t)

	detail := f.schedule(t, 7, "L1")

	if detail.Status != models.SaleScheduled {
		t.Fatalf("sale status = %q, want %q", detail.Status, models.SaleScheduled)
	}
	if len(detail.Lots) != 1 || detail.Lots[0].Manifest != 501 || detail.Lots[0].Community != "San Juan" {
		t.Errorf("lot summaries = %+v", detail.Lots)
	}

	lot := f.assertLot(t, "L1", models.LotInSaleProcess)
	if lot.ClientID != "C1" || lot.SaleID != detail.ID || lot.DepartureDate == nil || !lot.DepartureDate.Equal(f.day(7)) {
		t.Errorf("lot shipping fields = %+v", lot)
	}

	animal := f.assertAnimal(t, "A1", models.AnimalInSaleProcess)
	if animal.DepartureFolio != "100" || animal.DestinationClientID != "C1" || animal.DestinationUPP != "UPP-0200" {
		t.Errorf("animal shipping fields = %+v", animal)
	}
	f.assertLot(t, "L2", models.LotAvailable)
}

func TestScheduleInternationalSaleRequiresDocuments(t *testing.T) {
	f := newFixture(t)
	undocumented, _ := f.store.Animal("A2")
	undocumented.TickCertificate = ""
	f.store.PutAnimal(undocumented)

	_, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		ClientID:      "C1",
		RanchID:       "R1",
		LotIDs:        []string{"L1", "L2"},
		Type:          models.SaleInternational,
		DepartureDate: f.day(3),
		Folio:         "100",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "MX-002") {
		t.Errorf("error %q does not name the failing ear tag", err)
	}
	if strings.Contains(err.Error(), "MX-001") {
		t.Errorf("error %q names a compliant animal", err)
	}

	f.assertReleased(t, []string{"L1", "L2"}, []string{"A1", "A2", "A3"})
	if len(f.publisher.events) != 0 {
		t.Errorf("published %d events for a rejected sale", len(f.publisher.events))
	}
}

func TestScheduleRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScheduleRequest)
		prepare func(*fixture)
		wantMsg string
	}{
		{name: "no lots", mutate: func(r *ScheduleRequest) { r.LotIDs = nil }, wantMsg: "at least one lot"},
		{name: "unknown sale type", mutate: func(r *ScheduleRequest) { r.Type = 7 }, wantMsg: "unknown sale type"},
		{name: "missing date", mutate: func(r *ScheduleRequest) { r.DepartureDate = time.Time{} }, wantMsg: "departure date"},
		{name: "missing folio", mutate: func(r *ScheduleRequest) { r.Folio = " " }, wantMsg: "folio"},
		{name: "unknown client", mutate: func(r *ScheduleRequest) { r.ClientID = "C9" }, wantMsg: "client C9 does not exist"},
		{name: "client without customer role", mutate: func(r *ScheduleRequest) { r.ClientID = "P1" }, wantMsg: "Cliente role"},
		{name: "unknown ranch", mutate: func(r *ScheduleRequest) { r.RanchID = "R9" }, wantMsg: "ranch R9 does not exist"},
		{name: "partially resolved lots", mutate: func(r *ScheduleRequest) { r.LotIDs = []string{"L1", "L9"} }, wantMsg: "1 of 2 requested lots"},
		{name: "duplicated lot id", mutate: func(r *ScheduleRequest) { r.LotIDs = []string{"L1", "L1"} }, wantMsg: "1 of 2 requested lots"},
		{
			name:   "lot already in a sale",
			mutate: func(r *ScheduleRequest) {},
			prepare: func(f *fixture) {
				lot, _ := f.store.Lot("L2")
				lot.Status = models.LotInSaleProcess
				f.store.PutLot(lot)
			},
			wantMsg: "lot 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			req := ScheduleRequest{
				ClientID:      "C1",
				RanchID:       "R1",
				LotIDs:        []string{"L1", "L2"},
				Type:          models.SaleDomestic,
				DepartureDate: f.day(5),
				Folio:         "100",
			}
			tt.mutate(&req)

			_, err := f.svc.Schedule(context.Background(), req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %q, want it to contain %q", err, tt.wantMsg)
			}
			f.assertAnimal(t, "A1", models.AnimalInStock)
			if len(f.store.Activities()) != 0 {
				t.Errorf("activities recorded for a rejected sale")
			}
		})
	}
}

func TestAmendRejectsNonNumericFolio(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 7, "L1", "L2")

	err := f.svc.Amend(context.Background(), detail.ID, AmendRequest{DepartureDate: f.day(7), Folio: "abc"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	sale, _ := f.store.Sale(detail.ID)
	if sale.Folio != "100" || sale.Status != models.SaleScheduled {
		t.Errorf("sale changed after rejected amend: %+v", sale)
	}
	if lot := f.assertLot(t, "L1", models.LotInSaleProcess); lot.Manifest != 501 {
		t.Errorf("lot L1 manifest = %d, want 501", lot.Manifest)
	}
	if lot := f.assertLot(t, "L2", models.LotInSaleProcess); lot.Manifest != 502 {
		t.Errorf("lot L2 manifest = %d, want 502", lot.Manifest)
	}
	if animal, _ := f.store.Animal("A3"); animal.DepartureFolio != "100" {
		t.Errorf("animal folio = %q, want 100", animal.DepartureFolio)
	}
}

func TestAmendFolioPropagatesToLotsAndAnimals(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 7, "L1", "L2")
	international := models.SaleInternational

	err := f.svc.Amend(context.Background(), detail.ID, AmendRequest{DepartureDate: f.day(9), Folio: "900", Type: &international})
	if err != nil {
		t.Fatalf("Amend: %v", err)
	}

	for _, id := range []string{"L1", "L2"} {
		lot := f.assertLot(t, id, models.LotInSaleProcess)
		if lot.Manifest != 900 {
			t.Errorf("lot %s manifest = %d, want 900", id, lot.Manifest)
		}
		if lot.DepartureDate == nil || !lot.DepartureDate.Equal(f.day(9)) {
			t.Errorf("lot %s departure = %v, want %v", id, lot.DepartureDate, f.day(9))
		}
	}
	for _, id := range []string{"A1", "A2", "A3"} {
		animal := f.assertAnimal(t, id, models.AnimalInSaleProcess)
		if animal.DepartureFolio != "900" {
			t.Errorf("animal %s folio = %q, want 900", id, animal.DepartureFolio)
		}
		if animal.DepartureDate == nil || !animal.DepartureDate.Equal(f.day(9)) {
			t.Errorf("animal %s departure = %v, want %v", id, animal.DepartureDate, f.day(9))
		}
	}

	sale, _ := f.store.Sale(detail.ID)
	if sale.Folio != "900" || sale.Type != models.SaleInternational || sale.Status != models.SaleScheduled {
		t.Errorf("sale after amend = %+v", sale)
	}
}

func TestAmendDateOnlyKeepsManifest(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 7, "L1")

	if err := f.svc.Amend(context.Background(), detail.ID, AmendRequest{DepartureDate: f.day(12), Folio: "100"}); err != nil {
		t.Fatalf("Amend: %v", err)
	}

	lot := f.assertLot(t, "L1", models.LotInSaleProcess)
	if lot.Manifest != 501 {
		t.Errorf("manifest = %d, want 501", lot.Manifest)
	}
	if lot.DepartureDate == nil || !lot.DepartureDate.Equal(f.day(12)) {
		t.Errorf("departure = %v, want %v", lot.DepartureDate, f.day(12))
	}
}

func TestAmendToTodayFinalizes(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 7, "L1")

	if err := f.svc.Amend(context.Background(), detail.ID, AmendRequest{DepartureDate: f.day(0), Folio: "100"}); err != nil {
		t.Fatalf("Amend: %v", err)
	}

	sale, _ := f.store.Sale(detail.ID)
	if sale.Status != models.SaleCompleted {
		t.Fatalf("sale status = %q, want %q", sale.Status, models.SaleCompleted)
	}
	f.assertLot(t, "L1", models.LotSold)
	f.assertAnimal(t, "A1", models.AnimalSold)
}

func TestAmendRejectsCompletedSale(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, -2, "L1")

	err := f.svc.Amend(context.Background(), detail.ID, AmendRequest{DepartureDate: f.day(4), Folio: "200"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	f.assertLot(t, "L1", models.LotSold)
}

func TestCancelRestoresInventoryAndDeletesSale(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 7, "L1", "L2")

	if err := f.svc.Cancel(context.Background(), detail.ID, "U1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, ok := f.store.Sale(detail.ID); ok {
		t.Errorf("sale %s still exists after cancel", detail.ID)
	}
	f.assertReleased(t, []string{"L1", "L2"}, []string{"A1", "A2", "A3"})

	if _, err := f.svc.GetSale(context.Background(), detail.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSale after cancel err = %v, want ErrNotFound", err)
	}
}

func TestCancelRejectsCompletedSale(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, -1, "L1")

	err := f.svc.Cancel(context.Background(), detail.ID, "U1")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if _, ok := f.store.Sale(detail.ID); !ok {
		t.Errorf("completed sale was deleted")
	}
	f.assertLot(t, "L1", models.LotSold)
}

func TestUndoCompletedRoundTrip(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 3, "L1", "L2")

	f.now = f.now.AddDate(0, 0, 3)
	finalized, err := f.svc.FinalizeDue(context.Background())
	if err != nil {
		t.Fatalf("FinalizeDue: %v", err)
	}
	if len(finalized) != 1 || finalized[0].ID != detail.ID {
		t.Fatalf("finalized = %+v, want sale %s", finalized, detail.ID)
	}
	f.assertLot(t, "L1", models.LotSold)
	f.assertAnimal(t, "A3", models.AnimalSold)

	if err := f.svc.UndoCompleted(context.Background(), detail.ID, "U1"); err != nil {
		t.Fatalf("UndoCompleted: %v", err)
	}

	sale, ok := f.store.Sale(detail.ID)
	if !ok {
		t.Fatalf("reverted sale must be kept")
	}
	if sale.Status != models.SaleCancelled {
		t.Errorf("sale status = %q, want %q", sale.Status, models.SaleCancelled)
	}
	if len(sale.LotIDs) != 0 {
		t.Errorf("reverted sale still references lots %v", sale.LotIDs)
	}
	f.assertReleased(t, []string{"L1", "L2"}, []string{"A1", "A2", "A3"})

	// Released lots can be sold again.
	f.schedule(t, 5, "L1")
}

func TestUndoRejectsScheduledSale(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 3, "L1")

	err := f.svc.UndoCompleted(context.Background(), detail.ID, "U1")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	f.assertLot(t, "L1", models.LotInSaleProcess)
}

func TestOperationsOnUnknownSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checks := map[string]error{
		"get":    func() error { _, err := f.svc.GetSale(ctx, "nope"); return err }(),
		"amend":  f.svc.Amend(ctx, "nope", AmendRequest{DepartureDate: f.day(1), Folio: "1"}),
		"cancel": f.svc.Cancel(ctx, "nope", ""),
		"undo":   f.svc.UndoCompleted(ctx, "nope", ""),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestGetSaleFinalizesDueSale(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, 2, "L1")

	f.now = f.now.AddDate(0, 0, 2)
	got, err := f.svc.GetSale(context.Background(), detail.ID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if got.Status != models.SaleCompleted {
		t.Fatalf("status = %q, want %q", got.Status, models.SaleCompleted)
	}
	f.assertLot(t, "L1", models.LotSold)
	f.assertAnimal(t, "A2", models.AnimalSold)
}

func TestListSalesSettlesBeforeFiltering(t *testing.T) {
	f := newFixture(t)
	due := f.schedule(t, 1, "L1")
	later := f.schedule(t, 10, "L2")

	f.now = f.now.AddDate(0, 0, 1)

	scheduled, err := f.svc.ListSales(context.Background(), models.SaleScheduled)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(scheduled) != 1 || scheduled[0].ID != later.ID {
		t.Fatalf("scheduled = %+v, want only %s", scheduled, later.ID)
	}

	completed, err := f.svc.ListSales(context.Background(), models.SaleCompleted)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != due.ID {
		t.Fatalf("completed = %+v, want only %s", completed, due.ID)
	}

	if _, err := f.svc.ListSales(context.Background(), "Pendiente"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown status err = %v, want ErrValidation", err)
	}
}

func TestFinalizeDueIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, 1, "L1")
	f.schedule(t, 1, "L2")

	f.now = f.now.AddDate(0, 0, 1)
	first, err := f.svc.FinalizeDue(context.Background())
	if err != nil {
		t.Fatalf("FinalizeDue: %v", err)
	}
	second, err := f.svc.FinalizeDue(context.Background())
	if err != nil {
		t.Fatalf("FinalizeDue: %v", err)
	}

	if len(first) != 2 || len(second) != 0 {
		t.Fatalf("finalized %d then %d, want 2 then 0", len(first), len(second))
	}

	var completions int
	for _, a := range f.store.Activities() {
		if a.Type == models.ActivityCompleted {
			completions++
		}
	}
	if completions != 2 {
		t.Errorf("completion activities = %d, want 2", completions)
	}
}

func TestCompletedSalesKeepInventorySold(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, -1, "L1", "L2")
	f.schedule(t, 4, "L3")

	completed, err := f.svc.ListCompletedSales(context.Background())
	if err != nil {
		t.Fatalf("ListCompletedSales: %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("completed sales = %d, want 1", len(completed))
	}

	sale := completed[0]
	if len(sale.Lots) != 2 {
		t.Fatalf("lots = %d, want 2", len(sale.Lots))
	}
	var tags []string
	for _, lot := range sale.Lots {
		if lot.Status != models.LotSold {
			t.Errorf("lot %s status = %q in a completed sale", lot.ID, lot.Status)
		}
		for _, animal := range lot.Animals {
			tags = append(tags, animal.EarTag)
		}
	}
	if strings.Join(tags, ",") != "MX-001,MX-002,MX-003" {
		t.Errorf("animals = %v", tags)
	}
	if sale.Lots[0].Animals[0].Breed != "Angus" || sale.Lots[0].Animals[0].Weight != 410 {
		t.Errorf("animal line = %+v", sale.Lots[0].Animals[0])
	}
}

func TestListAvailableLotsCountsAnimals(t *testing.T) {
	f := newFixture(t)
	f.schedule(t, 4, "L2")

	lots, err := f.svc.ListAvailableLots(context.Background())
	if err != nil {
		t.Fatalf("ListAvailableLots: %v", err)
	}

	got := map[string]int{}
	for _, lot := range lots {
		got[lot.ID] = lot.Animals
	}
	want := map[string]int{"L1": 2, "L3": 0}
	if len(got) != len(want) {
		t.Fatalf("available lots = %v, want %v", got, want)
	}
	for id, n := range want {
		if got[id] != n {
			t.Errorf("lot %s animals = %d, want %d", id, got[id], n)
		}
	}
}

func TestRegisterLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lot, err := f.svc.RegisterLot(ctx, RegisterLotRequest{RanchID: "R1", Manifest: 777})
	if err != nil {
		t.Fatalf("RegisterLot: %v", err)
	}
	if lot.Status != models.LotAvailable || lot.Community != "San Juan" {
		t.Errorf("lot = %+v", lot)
	}

	tests := []struct {
		name string
		req  RegisterLotRequest
	}{
		{name: "duplicate manifest", req: RegisterLotRequest{RanchID: "R1", Manifest: 501}},
		{name: "zero manifest", req: RegisterLotRequest{RanchID: "R1"}},
		{name: "unknown ranch", req: RegisterLotRequest{RanchID: "R9", Manifest: 778}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.RegisterLot(ctx, tt.req); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	detail := f.schedule(t, -1, "L1")

	var types []string
	for _, evt := range f.publisher.events {
		types = append(types, evt.Type)
		if evt.SaleID != detail.ID {
			t.Errorf("event %s for sale %s, want %s", evt.Type, evt.SaleID, detail.ID)
		}
	}
	want := models.EventSaleScheduled + "," + models.EventSaleCompleted
	if strings.Join(types, ",") != want {
		t.Errorf("events = %v, want %s", types, want)
	}
	if last := f.publisher.events[len(f.publisher.events)-1]; last.Status != models.SaleCompleted {
		t.Errorf("completion event status = %q", last.Status)
	}
}
