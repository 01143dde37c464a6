package models

import "time"

// ActivityType classifies entries of the activity log.
type ActivityType string

const (
	ActivityRegistered ActivityType = "Registro"
	ActivityAmended    ActivityType = "Modificacion"
	ActivityCancelled  ActivityType = "Cancelacion"
	ActivityCompleted  ActivityType = "Finalizacion"
	ActivityReverted   ActivityType = "Reversion"
)

// Activity records an operation performed on a sale.
type Activity struct {
	ID          string       `bson:"_id" json:"id"`
	Type        ActivityType `bson:"type" json:"tipo"`
	SaleID      string       `bson:"sale_id" json:"ventaId"`
	UserID      string       `bson:"user_id,omitempty" json:"usuarioId,omitempty"`
	Description string       `bson:"description" json:"descripcion"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
}
