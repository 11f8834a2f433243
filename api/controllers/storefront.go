package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ManagerSource hands out the signed-in user's cart and wishlist manager.
type ManagerSource interface {
	For(ctx context.Context, userID uuid.UUID) (*storefront.Manager, error)
}

type productLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

type cartResponse struct {
	Items      []storefront.CartItem `json:"items"`
	TotalPrice decimal.Decimal       `json:"total_price"`
	TotalItems int                   `json:"total_items"`
}

type wishlistResponse struct {
	Items []product.Product `json:"items"`
}

type addCartItemRequest struct {
	ProductID     string  `json:"product_id" validate:"required,uuid"`
	SelectedSize  *string `json:"selected_size,omitempty" validate:"omitempty,max=20"`
	SelectedColor *string `json:"selected_color,omitempty" validate:"omitempty,max=40"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type addWishlistItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// managerFor resolves the caller and loads their manager.
func managerFor(r *http.Request, managers ManagerSource) (*storefront.Manager, error) {
	if managers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "storefront unavailable")
	}
	userID, err := requestUserID(r)
	if err != nil {
		return nil, err
	}
	return managers.For(r.Context(), userID)
}

func cartView(mgr *storefront.Manager) cartResponse {
	return cartResponse{
		Items:      mgr.Cart(),
		TotalPrice: mgr.TotalPrice(),
		TotalItems: mgr.TotalItems(),
	}
}

func CartFetch(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView(mgr))
	}
}

// CartAddItem adds one unit of a product. A product already in the cart has
// its quantity incremented.
func CartAddItem(managers ManagerSource, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p, err := catalog.GetProduct(r.Context(), uuid.MustParse(body.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		size := trimOptional(body.SelectedSize)
		color := trimOptional(body.SelectedColor)
		if err := checkVariant("selected_size", size, p.Sizes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := checkVariant("selected_color", color, p.Colors); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mgr.AddToCart(r.Context(), *p, size, color); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView(mgr))
	}
}

// CartUpdateItem sets a line's quantity. Zero or less removes the line.
func CartUpdateItem(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mgr.UpdateQuantity(r.Context(), productID, *body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView(mgr))
	}
}

func CartRemoveItem(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mgr.RemoveFromCart(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView(mgr))
	}
}

func CartClear(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mgr.ClearCart(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView(mgr))
	}
}

func WishlistFetch(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wishlistResponse{Items: mgr.Wishlist()})
	}
}

// WishlistAddItem returns 409 when the product is already saved.
func WishlistAddItem(managers ManagerSource, catalog productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addWishlistItemRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		p, err := catalog.GetProduct(r.Context(), uuid.MustParse(body.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mgr.AddToWishlist(r.Context(), *p); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, wishlistResponse{Items: mgr.Wishlist()})
	}
}

func WishlistRemoveItem(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := mgr.RemoveFromWishlist(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wishlistResponse{Items: mgr.Wishlist()})
	}
}

func WishlistContains(managers ManagerSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mgr, err := managerFor(r, managers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"in_wishlist": mgr.IsInWishlist(productID)})
	}
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// checkVariant rejects a selection the product does not offer.
func checkVariant(field string, selected *string, offered []string) error {
	if pkgcheckout.OptionOffered(selected, offered) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "option not offered for this product").WithDetails(map[string]string{field: *selected})
}
