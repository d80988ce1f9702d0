package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/config"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/pricing"
	"github.com/weps89/lb-electronica/internal/repository"
)

// StockService handles purchase lot ingestion, manual stock movements and the
// ledger read views. Every quantity change it makes appends exactly one ledger
// row inside the same transaction.
type StockService struct {
	stocks   repository.StockRepository
	products repository.ProductRepository
	rates    *ExchangeRateService
	audit    *AuditService
	cfg      *config.Config
}

func NewStockService(
	stocks repository.StockRepository,
	products repository.ProductRepository,
	rates *ExchangeRateService,
	audit *AuditService,
	cfg *config.Config,
) *StockService {
	return &StockService{stocks: stocks, products: products, rates: rates, audit: audit, cfg: cfg}
}

// IngestLot receives a purchase lot: it resolves or creates every line's
// product, allocates the shared logistics cost proportionally by purchase
// value, overwrites each product's cost basis with the landed unit cost
// (last-cost policy, not weighted average), increments stock and appends one
// purchase ledger row per line. The whole lot commits or rolls back as a unit.
func (s *StockService) IngestLot(ctx context.Context, userID uuid.UUID, req dto.CreateStockEntryRequest) (*dto.StockEntryResponse, error) {
	if len(req.Items) == 0 {
		return nil, apierror.Validation("lot must contain at least one item")
	}
	if req.LogisticsUsd.IsNegative() {
		return nil, apierror.Validation("logistics_usd cannot be negative")
	}
	for i, item := range req.Items {
		if !item.Qty.IsPositive() {
			return nil, apierror.Validation(fmt.Sprintf("item %d: qty must be positive", i+1))
		}
		if item.PurchaseUnitCostUsd.IsNegative() {
			return nil, apierror.Validation(fmt.Sprintf("item %d: purchase_unit_cost_usd cannot be negative", i+1))
		}
		if item.MarginPercent != nil && item.MarginPercent.IsNegative() {
			return nil, apierror.Validation(fmt.Sprintf("item %d: margin_percent cannot be negative", i+1))
		}
	}

	rate := s.rates.CurrentRate(ctx)
	if req.ExchangeRateArs != nil && req.ExchangeRateArs.GreaterThan(decimal.NewFromInt(1)) {
		rate = *req.ExchangeRateArs
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	entry := &model.StockEntry{
		Date:            date,
		Supplier:        req.Supplier,
		DocumentNumber:  req.DocumentNumber,
		Notes:           req.Notes,
		LogisticsUsd:    req.LogisticsUsd,
		ExchangeRateArs: rate,
		UserID:          userID,
	}

	err := runTx(s.stocks.DB(), func(tx *gorm.DB) error {
		lotNum, err := s.stocks.NextLotNumberTx(tx)
		if err != nil {
			return err
		}
		entry.BatchCode = fmt.Sprintf("LOTE-%06d", lotNum)

		if err := s.stocks.CreateEntryTx(tx, entry); err != nil {
			return err
		}

		// Resolve every line to a locked product row before any quantity
		// math, so a bad line rejects the whole batch with nothing written.
		resolved := make([]*model.Product, len(req.Items))
		for i, item := range req.Items {
			p, err := s.resolveLotProductTx(tx, item)
			if err != nil {
				return err
			}
			resolved[i] = p
		}

		totalPurchase := decimal.Zero
		for _, item := range req.Items {
			totalPurchase = totalPurchase.Add(item.Qty.Mul(item.PurchaseUnitCostUsd))
		}

		for i, item := range req.Items {
			p := resolved[i]

			linePurchase := item.Qty.Mul(item.PurchaseUnitCostUsd)
			logisticsLine := decimal.Zero
			if totalPurchase.IsPositive() {
				logisticsLine = req.LogisticsUsd.Mul(linePurchase).Div(totalPurchase)
			}
			logisticsUnit := logisticsLine.Div(item.Qty)
			finalUnitUsd := item.PurchaseUnitCostUsd.Add(logisticsUnit)
			finalUnitArs := finalUnitUsd.Mul(rate).Round(2)

			margin := s.marginFor(item, p)
			salePriceUsd := pricing.SalePriceUsd(finalUnitUsd, margin)

			p.CostPrice = finalUnitUsd
			p.MarginPercent = margin
			p.SalePrice = salePriceUsd
			p.LastStockExchangeRateArs = rate
			// Column-scoped write: stock_quantity belongs to AddStockTx alone,
			// so a lot repeating the same product keeps every increment.
			if err := s.products.UpdateCostBasisTx(tx, p); err != nil {
				return err
			}
			if _, err := s.products.AddStockTx(tx, p.ID, item.Qty); err != nil {
				return err
			}

			entryItem := &model.StockEntryItem{
				StockEntryID:         entry.ID,
				ProductID:            p.ID,
				Qty:                  item.Qty,
				PurchaseUnitCostUsd:  item.PurchaseUnitCostUsd,
				LogisticsUnitCostUsd: logisticsUnit,
				FinalUnitCostUsd:     finalUnitUsd,
				FinalUnitCostArs:     finalUnitArs,
				MarginPercent:        margin,
				SalePriceSnapshot:    salePriceUsd,
			}
			if err := s.stocks.CreateEntryItemTx(tx, entryItem); err != nil {
				return err
			}
			entry.Items = append(entry.Items, *entryItem)

			refID := entry.ID
			movement := &model.LedgerMovement{
				MovementType:          model.MovementIn,
				ReferenceType:         model.ReferencePurchase,
				ProductID:             p.ID,
				ReferenceID:           &refID,
				Qty:                   item.Qty,
				UnitCost:              finalUnitUsd,
				UnitSalePriceSnapshot: salePriceUsd.Mul(rate).Round(2),
				UserID:                userID,
				Timestamp:             time.Now(),
			}
			if err := s.stocks.CreateLedgerTx(tx, movement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		log.Error().Err(err).Msg("lot ingestion failed")
		return nil, apierror.Internal("could not ingest lot")
	}

	s.audit.LogAction(ctx, &userID, "STOCK_ENTRY_CREATE", "stock_entry", entry.ID.String(),
		fmt.Sprintf("batch=%s items=%d", entry.BatchCode, len(entry.Items)))

	// Reload with product names for the response.
	full, err := s.stocks.FindEntryByID(ctx, entry.ID)
	if err != nil {
		full = entry
	}
	resp := toStockEntryResponse(full)
	return &resp, nil
}

// resolveLotProductTx resolves a lot line to a locked product row: by id, by
// case-insensitive name, or by creating a new product for an unseen name.
func (s *StockService) resolveLotProductTx(tx *gorm.DB, item dto.StockEntryItemRequest) (*model.Product, error) {
	if item.ProductID != nil {
		id, err := uuid.Parse(*item.ProductID)
		if err != nil {
			return nil, apierror.Validation("invalid product_id")
		}
		p, err := s.products.FindByIDForUpdateTx(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found: " + *item.ProductID)
		}
		return p, err
	}

	if item.ProductName == nil || strings.TrimSpace(*item.ProductName) == "" {
		return nil, apierror.Validation("each item needs a product_id or a product_name")
	}

	existing, err := s.products.FindByNameFoldTx(tx, *item.ProductName)
	switch {
	case err == nil:
		return s.products.FindByIDForUpdateTx(tx, existing.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		code, cerr := s.products.NextInternalCodeTx(tx)
		if cerr != nil {
			return nil, cerr
		}
		p := &model.Product{
			InternalCode:  code,
			Name:          strings.TrimSpace(*item.ProductName),
			Category:      item.Category,
			MarginPercent: decimal.NewFromFloat(s.cfg.DefaultMarginPercent),
			StockMinimum:  1,
			Active:        true,
		}
		if cerr := s.products.CreateTx(tx, p); cerr != nil {
			return nil, cerr
		}
		return p, nil
	default:
		return nil, err
	}
}

// marginFor picks the margin applied at ingestion: the line's explicit margin,
// else the product's existing one, else the configured default.
func (s *StockService) marginFor(item dto.StockEntryItemRequest, p *model.Product) decimal.Decimal {
	if item.MarginPercent != nil {
		return *item.MarginPercent
	}
	if p.MarginPercent.IsPositive() {
		return p.MarginPercent
	}
	return decimal.NewFromFloat(s.cfg.DefaultMarginPercent)
}

// StockOut removes quantity outside a sale (breakage, loss, internal use).
func (s *StockService) StockOut(ctx context.Context, userID uuid.UUID, req dto.StockOutRequest) error {
	if !req.Qty.IsPositive() {
		return apierror.Validation("qty must be positive")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return apierror.Validation("invalid product_id")
	}

	err = runTx(s.stocks.DB(), func(tx *gorm.DB) error {
		p, err := s.products.FindByIDForUpdateTx(tx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("product not found")
		}
		if err != nil {
			return err
		}

		applied, err := s.products.AddStockTx(tx, p.ID, req.Qty.Neg())
		if err != nil {
			return err
		}
		if !applied {
			return apierror.StateConflict("insufficient stock for " + p.Name)
		}

		return s.stocks.CreateLedgerTx(tx, &model.LedgerMovement{
			MovementType:          model.MovementOut,
			ReferenceType:         model.ReferenceManualAdjust,
			ProductID:             p.ID,
			Qty:                   req.Qty,
			UnitCost:              p.CostPrice,
			UnitSalePriceSnapshot: p.SalePrice.Round(2),
			UserID:                userID,
			Timestamp:             time.Now(),
		})
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return err
		}
		log.Error().Err(err).Msg("stock out failed")
		return apierror.Internal("could not register stock out")
	}

	s.audit.LogAction(ctx, &userID, "STOCK_OUT", "product", req.ProductID,
		fmt.Sprintf("qty=%s reason=%s", req.Qty.String(), req.Reason))
	return nil
}

// AdjustStock applies a signed manual correction to a product's quantity.
func (s *StockService) AdjustStock(ctx context.Context, userID uuid.UUID, req dto.AdjustStockRequest) error {
	if req.Qty.IsZero() {
		return apierror.Validation("qty cannot be zero")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return apierror.Validation("invalid product_id")
	}

	err = runTx(s.stocks.DB(), func(tx *gorm.DB) error {
		p, err := s.products.FindByIDForUpdateTx(tx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("product not found")
		}
		if err != nil {
			return err
		}

		applied, err := s.products.AddStockTx(tx, p.ID, req.Qty)
		if err != nil {
			return err
		}
		if !applied {
			return apierror.StateConflict("adjustment would leave negative stock")
		}

		return s.stocks.CreateLedgerTx(tx, &model.LedgerMovement{
			MovementType:          model.MovementAdjust,
			ReferenceType:         model.ReferenceManualAdjust,
			ProductID:             p.ID,
			Qty:                   req.Qty,
			UnitCost:              p.CostPrice,
			UnitSalePriceSnapshot: p.SalePrice.Round(2),
			UserID:                userID,
			Timestamp:             time.Now(),
		})
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return err
		}
		log.Error().Err(err).Msg("stock adjust failed")
		return apierror.Internal("could not adjust stock")
	}

	s.audit.LogAction(ctx, &userID, "STOCK_ADJUST", "product", req.ProductID,
		fmt.Sprintf("qty=%s notes=%s", req.Qty.String(), req.Notes))
	return nil
}

func (s *StockService) GetEntry(ctx context.Context, id uuid.UUID) (*dto.StockEntryResponse, error) {
	entry, err := s.stocks.FindEntryByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("lot not found")
	}
	if err != nil {
		log.Error().Err(err).Msg("lot lookup failed")
		return nil, apierror.Internal("could not load lot")
	}
	resp := toStockEntryResponse(entry)
	return &resp, nil
}

func (s *StockService) ListEntries(ctx context.Context, from, to time.Time) ([]dto.StockEntryResponse, error) {
	entries, err := s.stocks.ListEntries(ctx, from, to)
	if err != nil {
		log.Error().Err(err).Msg("lot list failed")
		return nil, apierror.Internal("could not list lots")
	}
	out := make([]dto.StockEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toStockEntryResponse(&entries[i]))
	}
	return out, nil
}

func (s *StockService) ListLedger(ctx context.Context, from, to time.Time, productID *uuid.UUID) ([]dto.LedgerMovementResponse, error) {
	movements, err := s.stocks.ListLedger(ctx, from, to, productID)
	if err != nil {
		log.Error().Err(err).Msg("ledger list failed")
		return nil, apierror.Internal("could not list stock movements")
	}
	out := make([]dto.LedgerMovementResponse, 0, len(movements))
	for i := range movements {
		m := &movements[i]
		resp := dto.LedgerMovementResponse{
			ID:                    m.ID.String(),
			MovementType:          string(m.MovementType),
			ReferenceType:         string(m.ReferenceType),
			ProductID:             m.ProductID.String(),
			Qty:                   m.Qty,
			UnitCost:              m.UnitCost,
			UnitSalePriceSnapshot: m.UnitSalePriceSnapshot,
			Timestamp:             m.Timestamp.Format(time.RFC3339),
		}
		if m.Product != nil {
			resp.ProductName = m.Product.Name
		}
		if m.ReferenceID != nil {
			ref := m.ReferenceID.String()
			resp.ReferenceID = &ref
		}
		out = append(out, resp)
	}
	return out, nil
}

func toStockEntryResponse(e *model.StockEntry) dto.StockEntryResponse {
	resp := dto.StockEntryResponse{
		ID:              e.ID.String(),
		BatchCode:       e.BatchCode,
		Date:            e.Date.Format(time.RFC3339),
		Supplier:        e.Supplier,
		DocumentNumber:  e.DocumentNumber,
		Notes:           e.Notes,
		LogisticsUsd:    e.LogisticsUsd,
		ExchangeRateArs: e.ExchangeRateArs,
		TotalCostUsd:    decimal.Zero,
		Items:           make([]dto.StockEntryItemResponse, 0, len(e.Items)),
	}
	for i := range e.Items {
		item := &e.Items[i]
		ir := dto.StockEntryItemResponse{
			ProductID:            item.ProductID.String(),
			Qty:                  item.Qty,
			PurchaseUnitCostUsd:  item.PurchaseUnitCostUsd,
			LogisticsUnitCostUsd: item.LogisticsUnitCostUsd,
			FinalUnitCostUsd:     item.FinalUnitCostUsd,
			FinalUnitCostArs:     item.FinalUnitCostArs,
			MarginPercent:        item.MarginPercent,
			SalePriceSnapshot:    item.SalePriceSnapshot,
		}
		if item.Product != nil {
			ir.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, ir)
		resp.TotalCostUsd = resp.TotalCostUsd.Add(item.Qty.Mul(item.FinalUnitCostUsd))
	}
	return resp
}
