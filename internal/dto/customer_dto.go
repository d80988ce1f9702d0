package dto

// CustomerUpsertRequest links a customer to a sale by DNI; name/phone refresh
// the directory entry when present.
type CustomerUpsertRequest struct {
	Dni   string  `json:"dni"   validate:"required,min=3"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type CustomerResponse struct {
	ID    string  `json:"id"`
	Dni   string  `json:"dni"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}
