package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/harborline/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/harborline/marketplace-backend/pkg/errors"
)

// View indexes the catalog rows a checkout touches, keyed for line-level lookup.
type View struct {
	SKUs     map[uuid.UUID]models.SKU
	Products map[uuid.UUID]models.Product
	Sellers  map[uuid.UUID]models.Seller
}

// SellerForSKU resolves the seller that owns a SKU through its product.
func (v *View) SellerForSKU(skuID uuid.UUID) (models.Seller, bool) {
	sku, ok := v.SKUs[skuID]
	if !ok {
		return models.Seller{}, false
	}
	product, ok := v.Products[sku.ProductID]
	if !ok {
		return models.Seller{}, false
	}
	seller, ok := v.Sellers[product.SellerID]
	return seller, ok
}

// Load pulls the SKUs plus their products and sellers, failing if any SKU in
// the request is unknown.
func Load(ctx context.Context, repo Repository, skuIDs []uuid.UUID) (*View, error) {
	skus, err := repo.FindSKUsByIDs(ctx, skuIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading skus")
	}

	view := &View{
		SKUs:     make(map[uuid.UUID]models.SKU, len(skus)),
		Products: map[uuid.UUID]models.Product{},
		Sellers:  map[uuid.UUID]models.Seller{},
	}
	productIDs := make([]uuid.UUID, 0, len(skus))
	for _, sku := range skus {
		view.SKUs[sku.ID] = sku
		productIDs = append(productIDs, sku.ProductID)
	}
	for _, id := range skuIDs {
		if _, ok := view.SKUs[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown sku in cart").
				WithDetails(map[string]any{"sku_id": id})
		}
	}

	products, err := repo.FindProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
	}
	sellerIDs := make([]uuid.UUID, 0, len(products))
	for _, product := range products {
		view.Products[product.ID] = product
		sellerIDs = append(sellerIDs, product.SellerID)
	}

	sellers, err := repo.FindSellersByIDs(ctx, sellerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sellers")
	}
	for _, seller := range sellers {
		view.Sellers[seller.ID] = seller
	}

	return view, nil
}
