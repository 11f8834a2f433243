package storefront

import (
	"errors"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// AuthRedirectPath is where unauthenticated shoppers are sent to sign in.
const AuthRedirectPath = "/auth"

// ErrAuthRequired rejects cart and wishlist writes made without a signed-in user.
var ErrAuthRequired = pkgerrors.New(pkgerrors.CodeUnauthorized, "Sign in required").
	WithDetails(map[string]string{"redirect": AuthRedirectPath})

var ErrAlreadyInWishlist = pkgerrors.New(pkgerrors.CodeConflict, "Already in wishlist")

// ErrItemNotStored is returned by RemoteStore.SetCartQuantity when the user has
// no row for the product.
var ErrItemNotStored = errors.New("cart item not stored")

var errNotInCart = pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
