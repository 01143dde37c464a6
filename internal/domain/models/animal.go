package models

import "time"

// AnimalStatus enumerates the sale-related states of an animal. Note that a
// released animal goes back to EnStock, not to the lot's Disponible.
type AnimalStatus string

const (
	AnimalInStock       AnimalStatus = "EnStock"
	AnimalInSaleProcess AnimalStatus = "En proceso de venta"
	AnimalSold          AnimalStatus = "Vendido"
)

// Animal is an individual head of livestock.
type Animal struct {
	ID                     string       `bson:"_id" json:"id"`
	EarTag                 string       `bson:"ear_tag" json:"arete"`
	LotID                  string       `bson:"lot_id,omitempty" json:"loteId,omitempty"`
	Status                 AnimalStatus `bson:"status" json:"estado"`
	Breed                  string       `bson:"breed,omitempty" json:"raza,omitempty"`
	Weight                 float64      `bson:"weight,omitempty" json:"peso,omitempty"`
	Sex                    string       `bson:"sex,omitempty" json:"sexo,omitempty"`
	DestinationClientID    string       `bson:"destination_client_id,omitempty" json:"clienteDestinoId,omitempty"`
	DestinationUPP         string       `bson:"destination_upp,omitempty" json:"uppDestino,omitempty"`
	DepartureDate          *time.Time   `bson:"departure_date,omitempty" json:"fechaSalida,omitempty"`
	DepartureFolio         string       `bson:"departure_folio,omitempty" json:"folioSalida,omitempty"`
	TickCertificate        string       `bson:"tick_certificate,omitempty" json:"certificadoGarrapata,omitempty"`
	SanitaryValidationID   string       `bson:"sanitary_validation_id,omitempty" json:"idValidacionSanitaria,omitempty"`
	ZoosanitaryCertificate string       `bson:"zoosanitary_certificate,omitempty" json:"certificadoZoosanitario,omitempty"`
	TBFolio                string       `bson:"tb_folio,omitempty" json:"folioTB,omitempty"`
}
