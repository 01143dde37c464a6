package models

// RoleCustomer is the role a client must carry to receive a sale.
const RoleCustomer = "Cliente"

// Client is a buyer or producer registered with the ranch.
type Client struct {
	ID   string `bson:"_id" json:"id"`
	Name string `bson:"name" json:"nombre"`
	Role string `bson:"role" json:"rol"`
	UPP  string `bson:"upp,omitempty" json:"upp,omitempty"`
}

// Ranch owns lots and sales.
type Ranch struct {
	ID        string `bson:"_id" json:"id"`
	Name      string `bson:"name" json:"nombre"`
	Community string `bson:"community,omitempty" json:"comunidad,omitempty"`
}
