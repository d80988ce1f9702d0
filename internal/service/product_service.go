package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/pricing"
	"github.com/weps89/lb-electronica/internal/repository"
)

const (
	priceCheckCachePrefix = "price:barcode:"
	priceCheckCacheTTL    = 60 * time.Second
)

// ProductService covers catalog maintenance and the derived price views.
// ARS prices are always computed at read time from the USD cost basis and the
// current rate; they are never stored.
type ProductService struct {
	products repository.ProductRepository
	rates    *ExchangeRateService
	cache    *redis.Client
	audit    *AuditService
}

func NewProductService(products repository.ProductRepository, rates *ExchangeRateService, cache *redis.Client, audit *AuditService) *ProductService {
	return &ProductService{products: products, rates: rates, cache: cache, audit: audit}
}

// Create registers a catalog entry with the next internal code.
func (s *ProductService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if req.CostPrice.IsNegative() || req.MarginPercent.IsNegative() {
		return nil, apierror.Validation("cost_price and margin_percent cannot be negative")
	}
	if req.Barcode != nil && *req.Barcode != "" {
		if _, err := s.products.FindByBarcode(ctx, *req.Barcode); err == nil {
			return nil, apierror.Validation("barcode already in use")
		}
	}

	p := &model.Product{
		Barcode:       req.Barcode,
		Name:          req.Name,
		Category:      req.Category,
		Brand:         req.Brand,
		Model:         req.Model,
		CostPrice:     req.CostPrice,
		MarginPercent: req.MarginPercent,
		SalePrice:     pricing.SalePriceUsd(req.CostPrice, req.MarginPercent),
		StockMinimum:  req.StockMinimum,
		Active:        true,
	}
	if p.StockMinimum <= 0 {
		p.StockMinimum = 1
	}

	err := runTx(s.products.DB(), func(tx *gorm.DB) error {
		code, err := s.products.NextInternalCodeTx(tx)
		if err != nil {
			return err
		}
		p.InternalCode = code
		return s.products.CreateTx(tx, p)
	})
	if err != nil {
		log.Error().Err(err).Msg("product create failed")
		return nil, apierror.Internal("could not create product")
	}

	s.audit.LogAction(ctx, &userID, "PRODUCT_CREATE", "product", p.ID.String(), "code="+p.InternalCode)

	resp := s.toResponse(ctx, p, true)
	return &resp, nil
}

// Update edits descriptive fields and the cost basis. Changing cost or margin
// recomputes the USD sale price; stock is never touched here.
func (s *ProductService) Update(ctx context.Context, userID uuid.UUID, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("product not found")
	}
	if err != nil {
		log.Error().Err(err).Msg("product lookup failed")
		return nil, apierror.Internal("could not load product")
	}

	p.Barcode = req.Barcode
	p.Name = req.Name
	p.Category = req.Category
	p.Brand = req.Brand
	p.Model = req.Model
	p.CostPrice = req.CostPrice
	p.MarginPercent = req.MarginPercent
	p.SalePrice = pricing.SalePriceUsd(req.CostPrice, req.MarginPercent)
	if req.StockMinimum > 0 {
		p.StockMinimum = req.StockMinimum
	}

	if err := s.products.Update(ctx, p); err != nil {
		log.Error().Err(err).Msg("product update failed")
		return nil, apierror.Internal("could not update product")
	}

	s.audit.LogAction(ctx, &userID, "PRODUCT_UPDATE", "product", p.ID.String(), "code="+p.InternalCode)
	s.invalidatePriceCache(ctx, p)

	resp := s.toResponse(ctx, p, true)
	return &resp, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID, admin bool) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("product not found")
	}
	if err != nil {
		log.Error().Err(err).Msg("product lookup failed")
		return nil, apierror.Internal("could not load product")
	}
	resp := s.toResponse(ctx, p, admin)
	return &resp, nil
}

// List returns catalog rows with derived ARS prices for all three payment
// methods. Cost basis and margin are stripped for non-admin callers.
func (s *ProductService) List(ctx context.Context, filter dto.ProductFilter, admin bool) ([]dto.ProductResponse, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("product list failed")
		return nil, apierror.Internal("could not list products")
	}
	return s.toResponses(ctx, products, admin), nil
}

// ListLowStock returns active products at or below their minimum quantity.
func (s *ProductService) ListLowStock(ctx context.Context, admin bool) ([]dto.ProductResponse, error) {
	products, err := s.products.ListLowStock(ctx)
	if err != nil {
		log.Error().Err(err).Msg("low stock list failed")
		return nil, apierror.Internal("could not list low stock products")
	}
	return s.toResponses(ctx, products, admin), nil
}

// SetActive activates or deactivates a product. Products are never deleted.
func (s *ProductService) SetActive(ctx context.Context, userID uuid.UUID, id uuid.UUID, active bool) error {
	if _, err := s.products.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound("product not found")
	} else if err != nil {
		log.Error().Err(err).Msg("product lookup failed")
		return apierror.Internal("could not load product")
	}
	if err := s.products.SetActive(ctx, id, active); err != nil {
		log.Error().Err(err).Msg("product activation update failed")
		return apierror.Internal("could not update product")
	}
	action := "PRODUCT_DEACTIVATE"
	if active {
		action = "PRODUCT_ACTIVATE"
	}
	s.audit.LogAction(ctx, &userID, action, "product", id.String(), "")
	return nil
}

// PriceCheck answers the public barcode price lookup, cached in redis for a
// short window. Redis being down degrades to a direct read.
func (s *ProductService) PriceCheck(ctx context.Context, barcode string) (*dto.PriceCheckResponse, error) {
	key := priceCheckCachePrefix + barcode
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached dto.PriceCheckResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	p, err := s.products.FindByBarcode(ctx, barcode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("no product with that barcode")
	}
	if err != nil {
		log.Error().Err(err).Msg("barcode lookup failed")
		return nil, apierror.Internal("could not look up barcode")
	}

	rate := s.rates.CurrentRate(ctx)
	resp := &dto.PriceCheckResponse{
		ProductID:        p.ID.String(),
		Name:             p.Name,
		PriceCashArs:     pricing.FinalPrice(p, model.PaymentCash, rate),
		PriceCardArs:     pricing.FinalPrice(p, model.PaymentCard, rate),
		PriceTransferArs: pricing.FinalPrice(p, model.PaymentTransfer, rate),
	}

	if s.cache != nil {
		if raw, merr := json.Marshal(resp); merr == nil {
			if err := s.cache.Set(ctx, key, raw, priceCheckCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("price cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *ProductService) invalidatePriceCache(ctx context.Context, p *model.Product) {
	if s.cache == nil || p.Barcode == nil || *p.Barcode == "" {
		return
	}
	if err := s.cache.Del(ctx, priceCheckCachePrefix+*p.Barcode).Err(); err != nil {
		log.Warn().Err(err).Msg("price cache invalidation failed")
	}
}

func (s *ProductService) toResponses(ctx context.Context, products []model.Product, admin bool) []dto.ProductResponse {
	rate := s.rates.CurrentRate(ctx)
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i], rate, admin))
	}
	return out
}

func (s *ProductService) toResponse(ctx context.Context, p *model.Product, admin bool) dto.ProductResponse {
	return toProductResponse(p, s.rates.CurrentRate(ctx), admin)
}

func toProductResponse(p *model.Product, rate decimal.Decimal, admin bool) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:               p.ID.String(),
		InternalCode:     p.InternalCode,
		Barcode:          p.Barcode,
		Name:             p.Name,
		Category:         p.Category,
		Brand:            p.Brand,
		Model:            p.Model,
		PriceCashArs:     pricing.FinalPrice(p, model.PaymentCash, rate),
		PriceCardArs:     pricing.FinalPrice(p, model.PaymentCard, rate),
		PriceTransferArs: pricing.FinalPrice(p, model.PaymentTransfer, rate),
		StockQuantity:    p.StockQuantity,
		StockMinimum:     p.StockMinimum,
		Active:           p.Active,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
	if admin {
		cost := p.CostPrice
		margin := p.MarginPercent
		saleUsd := p.SalePrice
		resp.CostPrice = &cost
		resp.MarginPercent = &margin
		resp.SalePriceUsd = &saleUsd
	}
	return resp
}
