package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/domain/models"
	repo "github.com/mamadbah2/ranch/internal/repository/sheets"
)

const (
	dateLayout      = "2006-01-02"
	salesSheetRange = "Ventas!A:H"
)

// ErrExportDisabled is returned by ExportCompletedSales when no spreadsheet is
// configured.
var ErrExportDisabled = errors.New("sheets export is not configured")

// CompletedSalesSource lists completed sales with their lots and animals.
type CompletedSalesSource interface {
	ListCompletedSales(ctx context.Context) ([]models.CompletedSale, error)
}

// Service builds the completed-sales report and exports it to Google Sheets.
type Service struct {
	sales  CompletedSalesSource
	repo   repo.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewService wires a new reporting service instance. repository may be nil, in
// which case export is disabled.
func NewService(sales CompletedSalesSource, repository repo.Repository, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{sales: sales, repo: repository, loc: loc, logger: logger}
}

// ExportEnabled reports whether a spreadsheet is configured.
func (s *Service) ExportEnabled() bool {
	return s.repo != nil
}

// ExportCompletedSales appends one row per sold animal of the completed sales
// departing between start and end (inclusive calendar days; a zero bound is
// open) and returns the number of rows written.
func (s *Service) ExportCompletedSales(ctx context.Context, start, end time.Time) (int, error) {
	if s.repo == nil {
		return 0, ErrExportDisabled
	}

	sales, err := s.completedBetween(ctx, start, end)
	if err != nil {
		return 0, err
	}

	var rows [][]interface{}
	for _, sale := range sales {
		rows = append(rows, s.saleRows(sale)...)
	}
	if len(rows) == 0 {
		s.logger.Info("no completed sales to export")
		return 0, nil
	}

	if err := s.repo.AppendRows(ctx, salesSheetRange, rows); err != nil {
		return 0, fmt.Errorf("export completed sales: %w", err)
	}

	s.logger.Info("completed sales exported", zap.Int("sales", len(sales)), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// Summarize returns a one-line summary of the completed sales departing
// between start and end.
func (s *Service) Summarize(ctx context.Context, start, end time.Time) (string, error) {
	sales, err := s.completedBetween(ctx, start, end)
	if err != nil {
		return "", err
	}

	var lots, animals int
	var weight float64
	for _, sale := range sales {
		lots += len(sale.Lots)
		for _, lot := range sale.Lots {
			animals += len(lot.Animals)
			for _, animal := range lot.Animals {
				weight += animal.Weight
			}
		}
	}

	period := fmt.Sprintf("%s-%s", formatBound(start, s.loc), formatBound(end, s.loc))
	if len(sales) == 0 {
		return fmt.Sprintf("Ventas (%s): sin ventas completadas.", period), nil
	}
	return fmt.Sprintf("Ventas (%s): %d ventas, %d lotes, %d animales, %.1f kg.", period, len(sales), lots, animals, weight), nil
}

func (s *Service) completedBetween(ctx context.Context, start, end time.Time) ([]models.CompletedSale, error) {
	all, err := s.sales.ListCompletedSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("load completed sales: %w", err)
	}

	var out []models.CompletedSale
	for _, sale := range all {
		if sale.Sale.DepartureDate == nil {
			s.logger.Debug("skip completed sale without departure date", zap.String("sale_id", sale.Sale.ID))
			continue
		}
		day := sale.Sale.DepartureDate.In(s.loc).Format(dateLayout)
		if !start.IsZero() && day < start.In(s.loc).Format(dateLayout) {
			continue
		}
		if !end.IsZero() && day > end.In(s.loc).Format(dateLayout) {
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}

func (s *Service) saleRows(sale models.CompletedSale) [][]interface{} {
	date := sale.Sale.DepartureDate.In(s.loc).Format(dateLayout)

	var rows [][]interface{}
	for _, lot := range sale.Lots {
		for _, animal := range lot.Animals {
			rows = append(rows, []interface{}{
				date,
				sale.Sale.Folio,
				sale.Sale.ClientID,
				lot.Manifest,
				animal.EarTag,
				animal.Breed,
				animal.Weight,
				animal.Sex,
			})
		}
	}
	return rows
}

func formatBound(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "…"
	}
	return t.In(loc).Format(dateLayout)
}
