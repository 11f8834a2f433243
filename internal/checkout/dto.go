package checkout

import "github.com/angelmondragon/storefront-backend/internal/orders"

// ShippingDetails is the checkout form. Every field is required.
type ShippingDetails struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=20"`
	Address  string `json:"address" validate:"required,max=255"`
	City     string `json:"city" validate:"required,max=80"`
	State    string `json:"state" validate:"required,max=80"`
	Pincode  string `json:"pincode" validate:"required,pincode"`
}

func (d ShippingDetails) toOrders() orders.ShippingDetails {
	return orders.ShippingDetails{
		FullName: d.FullName,
		Email:    d.Email,
		Phone:    d.Phone,
		Address:  d.Address,
		City:     d.City,
		State:    d.State,
		Pincode:  d.Pincode,
	}
}
