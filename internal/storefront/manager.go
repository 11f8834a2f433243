package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a product in the cart with the shopper's chosen variant.
type CartItem struct {
	Product       product.Product `json:"product"`
	Quantity      int             `json:"quantity"`
	SelectedSize  *string         `json:"selected_size,omitempty"`
	SelectedColor *string         `json:"selected_color,omitempty"`
}

// Subtotal is price times quantity.
func (c CartItem) Subtotal() decimal.Decimal {
	return c.Product.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

const (
	opLoad           = "load"
	opCartAdd        = "cart_add"
	opCartIncrement  = "cart_increment"
	opCartRemove     = "cart_remove"
	opCartUpdate     = "cart_update"
	opCartClear      = "cart_clear"
	opWishlistAdd    = "wishlist_add"
	opWishlistRemove = "wishlist_remove"
)

type ManagerParams struct {
	Store    RemoteStore
	Notifier Notifier
	Metrics  *metrics.StorefrontMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

// errRetired is returned by loads on a manager the registry has dropped.
var errRetired = errors.New("storefront manager retired")

// Manager holds the in-memory cart and wishlist of one identity. Every
// mutation writes to the RemoteStore first and touches local state only after
// the write succeeds. The mutex is held across the remote call, so writes for
// one identity are applied one at a time.
type Manager struct {
	mu       sync.RWMutex
	store    RemoteStore
	notifier Notifier
	metrics  *metrics.StorefrontMetrics
	logg     *logger.Logger
	now      func() time.Time

	user     *uuid.UUID
	cart     []CartItem
	wishlist []product.Product
	syncedAt time.Time
	retired  bool
}

func NewManager(params ManagerParams) (*Manager, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("remote store required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Notice) {})
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "storefront", Output: io.Discard})
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:    params.Store,
		notifier: notifier,
		metrics:  params.Metrics,
		logg:     logg,
		now:      now,
	}, nil
}

// OnIdentityChange switches the manager to user. A nil user clears both lists
// without touching the store. A new user replaces both lists with the stored
// rows; on failure the manager is left without identity so a later call can
// retry. Repeating the current identity is a no-op.
func (m *Manager) OnIdentityChange(ctx context.Context, user *uuid.UUID) error {
	if user == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.reset()
		return nil
	}
	return m.sync(ctx, *user, 0)
}

// Refresh reloads both lists for the current identity. Without identity it
// does nothing. A failed reload keeps the previous lists.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	return m.loadLocked(ctx, *m.user)
}

// sync loads userID when it is not the current identity, and reloads it when
// the last load is at least maxAge old. A zero maxAge never reloads.
func (m *Manager) sync(ctx context.Context, userID uuid.UUID, maxAge time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.retired {
		return errRetired
	}
	if m.user == nil || *m.user != userID {
		m.reset()
		return m.loadLocked(ctx, userID)
	}
	if maxAge > 0 && m.now().Sub(m.syncedAt) >= maxAge {
		return m.loadLocked(ctx, userID)
	}
	return nil
}

// retire marks the manager as dropped. Later loads fail with errRetired;
// writes already holding the manager still reach the store.
func (m *Manager) retire(wipe bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retired = true
	if wipe {
		m.reset()
	}
}

func (m *Manager) reset() {
	m.user = nil
	m.cart = nil
	m.wishlist = nil
	m.syncedAt = time.Time{}
}

// loadLocked replaces both lists with the stored rows. State is untouched on
// failure.
func (m *Manager) loadLocked(ctx context.Context, userID uuid.UUID) error {
	cart, err := m.store.LoadCart(ctx, userID)
	if err != nil {
		m.metrics.ObserveRemoteWrite(opLoad, err)
		return m.loadFailed(ctx, userID, err)
	}
	wishlist, err := m.store.LoadWishlist(ctx, userID)
	m.metrics.ObserveRemoteWrite(opLoad, err)
	if err != nil {
		return m.loadFailed(ctx, userID, err)
	}

	m.user = &userID
	m.cart = cart
	m.wishlist = wishlist
	m.syncedAt = m.now()
	return nil
}

func (m *Manager) loadFailed(ctx context.Context, userID uuid.UUID, err error) error {
	logCtx := m.logg.WithUserID(ctx, userID.String())
	m.logg.Error(logCtx, "failed to load cart and wishlist", err)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart and wishlist")
}

// UserID returns the identity whose state is loaded.
func (m *Manager) UserID() (uuid.UUID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return uuid.Nil, false
	}
	return *m.user, true
}

// AddToCart increments the product's quantity when already present, otherwise
// appends it with quantity 1 and the chosen variant.
func (m *Manager) AddToCart(ctx context.Context, p product.Product, size, color *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		m.notify(ctx, NoticeError, "Sign in required", "Please sign in to add items to your cart")
		return ErrAuthRequired
	}
	userID := *m.user

	if idx := m.cartIndex(p.ID); idx >= 0 {
		next := m.cart[idx].Quantity + 1
		if next > pkgcheckout.MaxLineQuantity {
			return quantityTooLarge(next)
		}
		err := m.store.SetCartQuantity(ctx, userID, p.ID, next)
		m.metrics.ObserveRemoteWrite(opCartIncrement, err)
		switch {
		case errors.Is(err, ErrItemNotStored):
			// Removed by another writer; drop the stale line and insert it again.
			m.dropCartLine(idx)
		case err != nil:
			return m.writeFailed(ctx, opCartIncrement, err, "Could not update cart")
		default:
			m.cart[idx].Quantity = next
			m.notify(ctx, NoticeSuccess, "Updated cart", fmt.Sprintf("%s quantity updated", p.Name))
			return nil
		}
	}

	item := CartItem{
		Product:       p,
		Quantity:      1,
		SelectedSize:  cloneString(size),
		SelectedColor: cloneString(color),
	}
	stored, err := m.store.InsertCartItem(ctx, userID, item)
	m.metrics.ObserveRemoteWrite(opCartAdd, err)
	if err != nil {
		return m.writeFailed(ctx, opCartAdd, err, "Could not add to cart")
	}
	if stored > 1 {
		item.Quantity = stored
	}
	m.cart = append(m.cart, item)
	m.notify(ctx, NoticeSuccess, "Added to cart", fmt.Sprintf("%s has been added to your cart", p.Name))
	return nil
}

// RemoveFromCart drops the product from the cart. Without identity it does nothing.
func (m *Manager) RemoveFromCart(ctx context.Context, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeFromCartLocked(ctx, productID)
}

func (m *Manager) removeFromCartLocked(ctx context.Context, productID uuid.UUID) error {
	if m.user == nil {
		return nil
	}
	err := m.store.DeleteCartItem(ctx, *m.user, productID)
	m.metrics.ObserveRemoteWrite(opCartRemove, err)
	if err != nil {
		return m.writeFailed(ctx, opCartRemove, err, "Could not remove from cart")
	}
	if idx := m.cartIndex(productID); idx >= 0 {
		m.dropCartLine(idx)
	}
	m.notify(ctx, NoticeSuccess, "Removed from cart", "Item has been removed from your cart")
	return nil
}

// UpdateQuantity sets the quantity of a cart item. Zero or negative removes it.
func (m *Manager) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if quantity <= 0 {
		return m.removeFromCartLocked(ctx, productID)
	}
	if quantity > pkgcheckout.MaxLineQuantity {
		return quantityTooLarge(quantity)
	}
	if m.user == nil {
		return nil
	}
	idx := m.cartIndex(productID)
	if idx < 0 {
		return errNotInCart
	}
	err := m.store.SetCartQuantity(ctx, *m.user, productID, quantity)
	m.metrics.ObserveRemoteWrite(opCartUpdate, err)
	if errors.Is(err, ErrItemNotStored) {
		m.dropCartLine(idx)
		return errNotInCart
	}
	if err != nil {
		return m.writeFailed(ctx, opCartUpdate, err, "Could not update cart")
	}
	m.cart[idx].Quantity = quantity
	return nil
}

// ClearCart removes every cart item.
func (m *Manager) ClearCart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil
	}
	err := m.store.ClearCart(ctx, *m.user)
	m.metrics.ObserveRemoteWrite(opCartClear, err)
	if err != nil {
		return m.writeFailed(ctx, opCartClear, err, "Could not clear cart")
	}
	m.cart = nil
	m.notify(ctx, NoticeSuccess, "Cart cleared", "All items have been removed from your cart")
	return nil
}

func (m *Manager) AddToWishlist(ctx context.Context, p product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		m.notify(ctx, NoticeError, "Sign in required", "Please sign in to add items to your wishlist")
		return ErrAuthRequired
	}
	if m.wishlistIndex(p.ID) >= 0 {
		m.notify(ctx, NoticeError, "Already in wishlist", fmt.Sprintf("%s is already in your wishlist", p.Name))
		return ErrAlreadyInWishlist
	}
	err := m.store.InsertWishlistItem(ctx, *m.user, p.ID)
	m.metrics.ObserveRemoteWrite(opWishlistAdd, err)
	if err != nil {
		return m.writeFailed(ctx, opWishlistAdd, err, "Could not add to wishlist")
	}
	m.wishlist = append(m.wishlist, p)
	m.notify(ctx, NoticeSuccess, "Added to wishlist", fmt.Sprintf("%s has been added to your wishlist", p.Name))
	return nil
}

func (m *Manager) RemoveFromWishlist(ctx context.Context, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		m.notify(ctx, NoticeError, "Sign in required", "Please sign in to manage your wishlist")
		return ErrAuthRequired
	}
	err := m.store.DeleteWishlistItem(ctx, *m.user, productID)
	m.metrics.ObserveRemoteWrite(opWishlistRemove, err)
	if err != nil {
		return m.writeFailed(ctx, opWishlistRemove, err, "Could not remove from wishlist")
	}
	if idx := m.wishlistIndex(productID); idx >= 0 {
		m.wishlist = append(m.wishlist[:idx:idx], m.wishlist[idx+1:]...)
	}
	m.notify(ctx, NoticeSuccess, "Removed from wishlist", "Item has been removed from your wishlist")
	return nil
}

func (m *Manager) IsInWishlist(productID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wishlistIndex(productID) >= 0
}

// TotalPrice sums price times quantity over the cart.
func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, item := range m.cart {
		total = total.Add(item.Subtotal())
	}
	return total
}

// TotalItems sums quantities over the cart.
func (m *Manager) TotalItems() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, item := range m.cart {
		total += item.Quantity
	}
	return total
}

// Cart returns a copy of the cart in display order.
func (m *Manager) Cart() []CartItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CartItem, len(m.cart))
	copy(out, m.cart)
	return out
}

// Wishlist returns a copy of the wishlist in display order.
func (m *Manager) Wishlist() []product.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]product.Product, len(m.wishlist))
	copy(out, m.wishlist)
	return out
}

func (m *Manager) cartIndex(productID uuid.UUID) int {
	for i := range m.cart {
		if m.cart[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) dropCartLine(idx int) {
	m.cart = append(m.cart[:idx:idx], m.cart[idx+1:]...)
}

func (m *Manager) wishlistIndex(productID uuid.UUID) int {
	for i := range m.wishlist {
		if m.wishlist[i].ID == productID {
			return i
		}
	}
	return -1
}

func (m *Manager) writeFailed(ctx context.Context, op string, err error, title string) error {
	logCtx := m.logg.WithField(ctx, "operation", op)
	if m.user != nil {
		logCtx = m.logg.WithUserID(logCtx, m.user.String())
	}
	m.logg.Error(logCtx, "storefront remote write failed", err)
	m.notify(ctx, NoticeError, title, "Something went wrong. Please try again.")
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, title)
}

func (m *Manager) notify(ctx context.Context, level NoticeLevel, title, message string) {
	notice := Notice{Level: level, Title: title, Message: message}
	if m.user != nil {
		notice.UserID = *m.user
	}
	m.notifier.Notify(ctx, notice)
}

func quantityTooLarge(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-item limit").WithDetails(map[string]int{
		"quantity": quantity,
		"max":      pkgcheckout.MaxLineQuantity,
	})
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
