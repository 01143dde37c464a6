package notifications

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/domain/models"
	client "github.com/mamadbah2/ranch/pkg/clients/whatsapp"
)

const maxListedSales = 20

// OperatorNotifier sends the ranch operator a WhatsApp summary of the sales
// the reconciler finalized.
type OperatorNotifier struct {
	sender     client.Sender
	operatorID string
	logger     *zap.Logger
}

// NewOperatorNotifier wires a notifier that messages operatorID.
func NewOperatorNotifier(sender client.Sender, operatorID string, logger *zap.Logger) *OperatorNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperatorNotifier{sender: sender, operatorID: operatorID, logger: logger}
}

// SalesFinalized sends one message listing the finalized sales. An empty list
// sends nothing.
func (n *OperatorNotifier) SalesFinalized(ctx context.Context, sales []models.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	id, err := n.sender.SendText(ctx, n.operatorID, FormatFinalized(sales))
	if err != nil {
		return fmt.Errorf("notify operator: %w", err)
	}
	n.logger.Info("operator notified of finalized sales", zap.Int("sales", len(sales)), zap.String("message_id", id))
	return nil
}

// FormatFinalized renders the operator summary.
func FormatFinalized(sales []models.Sale) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ventas completadas: %d\n", len(sales))
	for i, sale := range sales {
		if i == maxListedSales {
			fmt.Fprintf(&b, "... y %d más", len(sales)-maxListedSales)
			break
		}
		date := "-"
		if sale.DepartureDate != nil {
			date = sale.DepartureDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "• Folio %s (%s), %d lotes, salida %s\n", sale.Folio, sale.Type, len(sale.LotIDs), date)
	}
	return strings.TrimRight(b.String(), "\n")
}
