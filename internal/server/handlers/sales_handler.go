package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/service/reporting"
	"github.com/mamadbah2/ranch/internal/service/sales"
)

const (
	dateLayout   = "2006-01-02"
	userIDHeader = "X-User-ID"
)

// SalesService is the sale lifecycle surface exposed over HTTP.
type SalesService interface {
	Schedule(ctx context.Context, req sales.ScheduleRequest) (sales.SaleDetail, error)
	Amend(ctx context.Context, id string, req sales.AmendRequest) error
	Cancel(ctx context.Context, id, userID string) error
	UndoCompleted(ctx context.Context, id, userID string) error
	GetSale(ctx context.Context, id string) (sales.SaleDetail, error)
	ListSales(ctx context.Context, status models.SaleStatus) ([]sales.SaleDetail, error)
	ListCompletedSales(ctx context.Context) ([]models.CompletedSale, error)
	ListAvailableLots(ctx context.Context) ([]models.LotSummary, error)
	RegisterLot(ctx context.Context, req sales.RegisterLotRequest) (models.Lot, error)
}

// Exporter writes completed sales to an external sheet.
type Exporter interface {
	ExportCompletedSales(ctx context.Context, start, end time.Time) (int, error)
}

// SalesHandler adapts HTTP requests to the sale lifecycle manager.
type SalesHandler struct {
	svc      SalesService
	exporter Exporter
	loc      *time.Location
	logger   *zap.Logger
}

// NewSalesHandler constructs the HTTP handler adapter. Dates without a zone
// are read in loc.
func NewSalesHandler(svc SalesService, exporter Exporter, loc *time.Location, logger *zap.Logger) *SalesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SalesHandler{svc: svc, exporter: exporter, loc: loc, logger: logger}
}

type scheduleSaleRequest struct {
	DepartureDate string          `json:"fechaSalida" binding:"required"`
	Folio         string          `json:"folio" binding:"required"`
	Type          models.SaleType `json:"tipoVenta"`
	LotIDs        []string        `json:"loteIds" binding:"required"`
	ClientID      string          `json:"clienteId" binding:"required"`
	RanchID       string          `json:"ranchoId" binding:"required"`
}

type amendSaleRequest struct {
	DepartureDate string           `json:"fechaSalida" binding:"required"`
	Folio         string           `json:"folio" binding:"required"`
	Type          *models.SaleType `json:"tipoVenta"`
}

type registerLotRequest struct {
	RanchID   string `json:"ranchoId" binding:"required"`
	Manifest  int    `json:"remo" binding:"required"`
	EntryDate string `json:"fechaEntrada"`
	Notes     string `json:"observaciones"`
	Community string `json:"comunidad"`
}

// Schedule handles POST /api/ventas.
func (h *SalesHandler) Schedule(c *gin.Context) {
	var req scheduleSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, err := h.parseDate(req.DepartureDate)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	detail, err := h.svc.Schedule(c.Request.Context(), sales.ScheduleRequest{
		ClientID:      req.ClientID,
		RanchID:       req.RanchID,
		UserID:        c.GetHeader(userIDHeader),
		LotIDs:        req.LotIDs,
		Type:          req.Type,
		DepartureDate: date,
		Folio:         req.Folio,
	})
	if err != nil {
		h.fail(c, "schedule sale", err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// Amend handles PUT /api/ventas/:id.
func (h *SalesHandler) Amend(c *gin.Context) {
	var req amendSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, err := h.parseDate(req.DepartureDate)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	err = h.svc.Amend(c.Request.Context(), c.Param("id"), sales.AmendRequest{
		DepartureDate: date,
		Folio:         req.Folio,
		Type:          req.Type,
		UserID:        c.GetHeader(userIDHeader),
	})
	if err != nil {
		h.fail(c, "amend sale", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Cancel handles DELETE /api/ventas/:id.
func (h *SalesHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), c.GetHeader(userIDHeader)); err != nil {
		h.fail(c, "cancel sale", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UndoCompleted handles DELETE /api/ventas/:id/completada.
func (h *SalesHandler) UndoCompleted(c *gin.Context) {
	if err := h.svc.UndoCompleted(c.Request.Context(), c.Param("id"), c.GetHeader(userIDHeader)); err != nil {
		h.fail(c, "undo completed sale", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get handles GET /api/ventas/:id.
func (h *SalesHandler) Get(c *gin.Context) {
	detail, err := h.svc.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get sale", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// List handles GET /api/ventas with an optional estado filter.
func (h *SalesHandler) List(c *gin.Context) {
	details, err := h.svc.ListSales(c.Request.Context(), models.SaleStatus(c.Query("estado")))
	if err != nil {
		h.fail(c, "list sales", err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ListCompleted handles GET /api/ventas/completadas.
func (h *SalesHandler) ListCompleted(c *gin.Context) {
	completed, err := h.svc.ListCompletedSales(c.Request.Context())
	if err != nil {
		h.fail(c, "list completed sales", err)
		return
	}
	c.JSON(http.StatusOK, completed)
}

// ExportCompleted handles POST /api/ventas/completadas/exportar. The optional
// desde and hasta query parameters bound the departure dates exported.
func (h *SalesHandler) ExportCompleted(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": reporting.ErrExportDisabled.Error()})
		return
	}

	var start, end time.Time
	var err error
	if v := c.Query("desde"); v != "" {
		if start, err = h.parseDate(v); err != nil {
			h.badRequest(c, err)
			return
		}
	}
	if v := c.Query("hasta"); v != "" {
		if end, err = h.parseDate(v); err != nil {
			h.badRequest(c, err)
			return
		}
	}

	rows, err := h.exporter.ExportCompletedSales(c.Request.Context(), start, end)
	if errors.Is(err, reporting.ErrExportDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, "export completed sales", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filas": rows})
}

// AvailableLots handles GET /api/lotes/disponibles.
func (h *SalesHandler) AvailableLots(c *gin.Context) {
	lots, err := h.svc.ListAvailableLots(c.Request.Context())
	if err != nil {
		h.fail(c, "list available lots", err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

// RegisterLot handles POST /api/lotes.
func (h *SalesHandler) RegisterLot(c *gin.Context) {
	var req registerLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	var entry time.Time
	if req.EntryDate != "" {
		var err error
		if entry, err = h.parseDate(req.EntryDate); err != nil {
			h.badRequest(c, err)
			return
		}
	}

	lot, err := h.svc.RegisterLot(c.Request.Context(), sales.RegisterLotRequest{
		RanchID:   req.RanchID,
		Manifest:  req.Manifest,
		EntryDate: entry,
		Notes:     req.Notes,
		Community: req.Community,
	})
	if err != nil {
		h.fail(c, "register lot", err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// parseDate accepts YYYY-MM-DD in the ranch time zone or a full RFC 3339
// timestamp.
func (h *SalesHandler) parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(dateLayout, value, h.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func (h *SalesHandler) badRequest(c *gin.Context, err error) {
	h.logger.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *SalesHandler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, sales.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("failed to "+op, zap.String("sale_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
	}
}
