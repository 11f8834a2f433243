package profiles

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Profile is the shopper-facing view of the profiles row.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	FullName    *string   `json:"full_name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Address     *string   `json:"address"`
	City        *string   `json:"city"`
	State       *string   `json:"state"`
	Pincode     *string   `json:"pincode"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	Complete    bool      `json:"complete"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=255"`
	City        *string `json:"city,omitempty" validate:"omitempty,max=80"`
	State       *string `json:"state,omitempty" validate:"omitempty,max=80"`
	Pincode     *string `json:"pincode,omitempty" validate:"omitempty,pincode"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=80"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

func (in UpdateInput) columns() map[string]any {
	out := map[string]any{}
	set := func(column string, value *string) {
		if value != nil {
			out[column] = strings.TrimSpace(*value)
		}
	}
	set("full_name", in.FullName)
	set("email", in.Email)
	set("phone", in.Phone)
	set("address", in.Address)
	set("city", in.City)
	set("state", in.State)
	set("pincode", in.Pincode)
	set("display_name", in.DisplayName)
	set("avatar_url", in.AvatarURL)
	set("bio", in.Bio)
	return out
}

// IsComplete reports whether every shipping field is filled in.
func IsComplete(p *models.Profile) bool {
	if p == nil {
		return false
	}
	for _, field := range []*string{p.FullName, p.Email, p.Phone, p.Address, p.City, p.State, p.Pincode} {
		if field == nil || strings.TrimSpace(*field) == "" {
			return false
		}
	}
	return true
}

func FromModel(p *models.Profile) *Profile {
	if p == nil {
		return nil
	}
	return &Profile{
		ID:          p.ID,
		FullName:    p.FullName,
		Email:       p.Email,
		Phone:       p.Phone,
		Address:     p.Address,
		City:        p.City,
		State:       p.State,
		Pincode:     p.Pincode,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Bio:         p.Bio,
		Complete:    IsComplete(p),
		UpdatedAt:   p.UpdatedAt,
	}
}
