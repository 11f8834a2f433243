package storefront

import (
	"context"
	"errors"
	"fmt"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RemoteStore is the durable backing of a user's cart and wishlist.
type RemoteStore interface {
	LoadCart(ctx context.Context, userID uuid.UUID) ([]CartItem, error)
	LoadWishlist(ctx context.Context, userID uuid.UUID) ([]product.Product, error)
	// InsertCartItem stores a new row with quantity 1 and returns the stored
	// quantity, which is higher when a concurrent writer got there first.
	InsertCartItem(ctx context.Context, userID uuid.UUID, item CartItem) (int, error)
	// SetCartQuantity returns ErrItemNotStored when the row does not exist.
	SetCartQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	InsertWishlistItem(ctx context.Context, userID, productID uuid.UUID) error
	DeleteWishlistItem(ctx context.Context, userID, productID uuid.UUID) error
}

type cartRows interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Insert(ctx context.Context, item *models.CartItem) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Increment(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
}

type wishlistRows interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	Insert(ctx context.Context, userID, productID uuid.UUID) error
	Delete(ctx context.Context, userID, productID uuid.UUID) error
}

type productLookup interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]product.Product, error)
}

type DBStoreParams struct {
	Cart     cartRows
	Wishlist wishlistRows
	Catalog  productLookup
	Logger   *logger.Logger
}

// DBStore implements RemoteStore on the cart_items and wishlist_items tables,
// joining rows back to catalog products on load.
type DBStore struct {
	cart     cartRows
	wishlist wishlistRows
	catalog  productLookup
	logg     *logger.Logger
}

func NewDBStore(params DBStoreParams) (*DBStore, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Wishlist == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &DBStore{
		cart:     params.Cart,
		wishlist: params.Wishlist,
		catalog:  params.Catalog,
		logg:     params.Logger,
	}, nil
}

func (s *DBStore) LoadCart(ctx context.Context, userID uuid.UUID) ([]CartItem, error) {
	rows, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart rows: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CartItem, 0, len(rows))
	for _, row := range rows {
		p, ok := products[row.ProductID]
		if !ok {
			s.skipMissing(ctx, userID, row.ProductID, "cart")
			continue
		}
		out = append(out, CartItem{
			Product:       p,
			Quantity:      row.Quantity,
			SelectedSize:  row.SelectedSize,
			SelectedColor: row.SelectedColor,
		})
	}
	return out, nil
}

func (s *DBStore) LoadWishlist(ctx context.Context, userID uuid.UUID) ([]product.Product, error) {
	rows, err := s.wishlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist rows: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]product.Product, 0, len(rows))
	for _, row := range rows {
		p, ok := products[row.ProductID]
		if !ok {
			s.skipMissing(ctx, userID, row.ProductID, "wishlist")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *DBStore) InsertCartItem(ctx context.Context, userID uuid.UUID, item CartItem) (int, error) {
	row := &models.CartItem{
		UserID:        userID,
		ProductID:     item.Product.ID,
		Quantity:      1,
		SelectedSize:  item.SelectedSize,
		SelectedColor: item.SelectedColor,
	}
	err := s.cart.Insert(ctx, row)
	if err == nil {
		return row.Quantity, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return 0, err
	}
	updated, err := s.cart.Increment(ctx, userID, item.Product.ID)
	if err != nil {
		return 0, err
	}
	return updated.Quantity, nil
}

func (s *DBStore) SetCartQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	err := s.cart.SetQuantity(ctx, userID, productID, quantity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrItemNotStored
	}
	return err
}

func (s *DBStore) DeleteCartItem(ctx context.Context, userID, productID uuid.UUID) error {
	return s.cart.Delete(ctx, userID, productID)
}

func (s *DBStore) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.cart.DeleteAll(ctx, userID)
}

func (s *DBStore) InsertWishlistItem(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.wishlist.Insert(ctx, userID, productID)
	if err != nil && db.IsUniqueViolation(err, "") {
		return nil
	}
	return err
}

func (s *DBStore) DeleteWishlistItem(ctx context.Context, userID, productID uuid.UUID) error {
	return s.wishlist.Delete(ctx, userID, productID)
}

func (s *DBStore) lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]product.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]product.Product{}, nil
	}
	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("join products: %w", err)
	}
	return products, nil
}

func (s *DBStore) skipMissing(ctx context.Context, userID, productID uuid.UUID, list string) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"product_id": productID.String(),
		"list":       list,
	})
	s.logg.Warn(logCtx, "skipping row for unavailable product")
}
