package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/pricing"
	"github.com/weps89/lb-electronica/internal/repository"
)

// SaleService drives the sale state machine: create (pending), collect
// (pending to paid/verified) and cancel (pending to cancelled). Stock effects
// and their ledger rows always commit atomically with the status change.
type SaleService struct {
	sales     repository.SaleRepository
	products  repository.ProductRepository
	stocks    repository.StockRepository
	cash      repository.CashRepository
	rates     *ExchangeRateService
	customers *CustomerService
	audit     *AuditService
}

func NewSaleService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	stocks repository.StockRepository,
	cash repository.CashRepository,
	rates *ExchangeRateService,
	customers *CustomerService,
	audit *AuditService,
) *SaleService {
	return &SaleService{
		sales:     sales,
		products:  products,
		stocks:    stocks,
		cash:      cash,
		rates:     rates,
		customers: customers,
		audit:     audit,
	}
}

// CreateSale freezes a cart into a pending sale. Unit prices are recomputed
// server side from the current cost/margin/rate; client-submitted prices are
// never trusted. Stock is decremented per line with a matching out ledger row,
// all inside one transaction. Any insufficient line rejects the whole cart.
func (s *SaleService) CreateSale(ctx context.Context, userID uuid.UUID, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	method := model.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, apierror.Validation("invalid payment method")
	}
	if len(req.Items) == 0 {
		return nil, apierror.Validation("cart is empty")
	}

	lines := make([]saleLine, len(req.Items))
	for i, item := range req.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, apierror.Validation(fmt.Sprintf("item %d: invalid product_id", i+1))
		}
		if !item.Qty.IsPositive() {
			return nil, apierror.Validation(fmt.Sprintf("item %d: qty must be positive", i+1))
		}
		if item.Discount.IsNegative() {
			return nil, apierror.Validation(fmt.Sprintf("item %d: discount cannot be negative", i+1))
		}
		lines[i] = saleLine{productID: id, qty: item.Qty, discount: item.Discount}
	}

	globalDiscount := decimal.Zero
	if req.GlobalDiscount != nil {
		if req.GlobalDiscount.IsNegative() {
			return nil, apierror.Validation("global_discount cannot be negative")
		}
		globalDiscount = *req.GlobalDiscount
	}

	// Customer linking is best effort and must never block the sale.
	customerID := s.customers.ResolveForSale(ctx, req.Customer)

	rate := s.rates.CurrentRate(ctx)
	now := time.Now()
	sale := &model.Sale{
		Date:           now,
		UserID:         userID,
		CustomerID:     customerID,
		PaymentMethod:  method,
		Status:         model.SalePending,
		GlobalDiscount: globalDiscount,
	}

	err := runTx(s.sales.DB(), func(tx *gorm.DB) error {
		// Lock product rows in a stable order so two concurrent carts that
		// share products cannot deadlock against each other.
		locked, err := s.lockSaleProductsTx(tx, lines)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		itemDiscounts := decimal.Zero
		items := make([]model.SaleItem, 0, len(lines))

		for i, line := range lines {
			p := locked[line.productID]
			unitPrice := pricing.FinalPrice(p, method, rate)
			lineGross := unitPrice.Mul(line.qty)
			if line.discount.GreaterThan(lineGross) {
				return apierror.Validation(fmt.Sprintf("item %d: discount exceeds line total", i+1))
			}

			applied, err := s.products.AddStockTx(tx, p.ID, line.qty.Neg())
			if err != nil {
				return err
			}
			if !applied {
				return apierror.StateConflict("insufficient stock for " + p.Name)
			}

			subtotal = subtotal.Add(lineGross)
			itemDiscounts = itemDiscounts.Add(line.discount)
			items = append(items, model.SaleItem{
				ProductID:         p.ID,
				Qty:               line.qty,
				UnitPrice:         unitPrice,
				Discount:          line.discount,
				CostPriceSnapshot: p.CostPrice,
				SalePriceSnapshot: unitPrice,
			})
		}

		if globalDiscount.GreaterThan(subtotal) {
			return apierror.Validation("global_discount exceeds subtotal")
		}
		discountTotal := itemDiscounts.Add(globalDiscount)
		total := subtotal.Sub(discountTotal)
		if total.IsNegative() {
			return apierror.Validation("discounts exceed subtotal")
		}

		ticket, err := s.nextTicketNumberTx(tx, now)
		if err != nil {
			return err
		}

		sale.TicketNumber = ticket
		sale.Subtotal = subtotal
		sale.DiscountTotal = discountTotal
		sale.Total = total
		sale.Items = items
		if err := s.sales.CreateTx(tx, sale); err != nil {
			return err
		}

		refID := sale.ID
		for _, item := range sale.Items {
			p := locked[item.ProductID]
			movement := &model.LedgerMovement{
				MovementType:          model.MovementOut,
				ReferenceType:         model.ReferenceSale,
				ProductID:             item.ProductID,
				ReferenceID:           &refID,
				Qty:                   item.Qty,
				UnitCost:              p.CostPrice,
				UnitSalePriceSnapshot: item.UnitPrice,
				UserID:                userID,
				Timestamp:             now,
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
		log.Error().Err(err).Msg("sale creation failed")
		return nil, apierror.Internal("could not create sale")
	}

	s.audit.LogAction(ctx, &userID, "SALE_CREATE", "sale", sale.ID.String(),
		fmt.Sprintf("ticket=%s total=%s", sale.TicketNumber, sale.Total.StringFixed(2)))

	return s.loadSaleResponse(ctx, sale.ID, sale)
}

// CollectSale records payment against a pending sale and appends the receipt
// to the collector's open cash session. Cash needs received >= total and
// returns change; card and transfer need an operation number; a verified
// transfer lands in verified instead of paid.
func (s *SaleService) CollectSale(ctx context.Context, userID uuid.UUID, req dto.CollectSaleRequest) (*dto.SaleResponse, error) {
	saleID, err := uuid.Parse(req.SaleID)
	if err != nil {
		return nil, apierror.Validation("invalid sale_id")
	}
	method := model.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, apierror.Validation("invalid payment method")
	}

	customerID := s.customers.ResolveForSale(ctx, req.Customer)

	var sale *model.Sale
	err = runTx(s.sales.DB(), func(tx *gorm.DB) error {
		var err error
		sale, err = s.sales.FindByIDForUpdateTx(tx, saleID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("sale not found")
		}
		if err != nil {
			return err
		}
		// Re-checked under the row lock: a concurrent collect or cancel that
		// already flipped the status loses this race cleanly.
		if !sale.Status.CanTransitionTo(model.SalePaid) {
			return apierror.StateConflict("sale already processed")
		}

		now := time.Now()
		switch method {
		case model.PaymentCash:
			if req.ReceivedAmount == nil {
				return apierror.Validation("received_amount is required for cash")
			}
			if req.ReceivedAmount.LessThan(sale.Total) {
				return apierror.Validation("received_amount is below the sale total")
			}
			change := req.ReceivedAmount.Sub(sale.Total)
			sale.ReceivedAmount = req.ReceivedAmount
			sale.ChangeAmount = &change
			sale.Status = model.SalePaid

		case model.PaymentCard:
			if req.OperationNumber == nil || *req.OperationNumber == "" {
				return apierror.Validation("operation_number is required for card")
			}
			received := sale.Total
			sale.ReceivedAmount = &received
			sale.OperationNumber = req.OperationNumber
			sale.Status = model.SalePaid

		case model.PaymentTransfer:
			if req.OperationNumber == nil || *req.OperationNumber == "" {
				return apierror.Validation("operation_number is required for transfer")
			}
			received := sale.Total
			sale.ReceivedAmount = &received
			sale.OperationNumber = req.OperationNumber
			sale.IsVerified = req.Verified
			if req.Verified {
				sale.Status = model.SaleVerified
			} else {
				sale.Status = model.SalePaid
			}
		}

		session, err := s.cash.FindOpenByUserForUpdateTx(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.StateConflict("no open cash session")
		}
		if err != nil {
			return err
		}

		sale.PaymentMethod = method
		sale.PaidAt = &now
		if sale.CustomerID == nil {
			sale.CustomerID = customerID
		}
		if err := s.sales.SaveTx(tx, sale); err != nil {
			return err
		}

		category := "VENTA:" + string(method)
		return s.cash.CreateMovementTx(tx, &model.CashMovement{
			CashSessionID: session.ID,
			Type:          model.CashIncome,
			Amount:        sale.Total,
			Reason:        "Venta " + sale.TicketNumber,
			Category:      &category,
			UserID:        userID,
		})
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		log.Error().Err(err).Msg("sale collection failed")
		return nil, apierror.Internal("could not collect sale")
	}

	s.audit.LogAction(ctx, &userID, "SALE_COLLECT", "sale", sale.ID.String(),
		fmt.Sprintf("ticket=%s method=%s total=%s", sale.TicketNumber, method, sale.Total.StringFixed(2)))

	return s.loadSaleResponse(ctx, sale.ID, sale)
}

// CancelSale moves a pending sale to cancelled, restoring every line's stock
// with a matching in ledger row. This is the only path that reverses a sale's
// stock effect; paid and verified sales cannot be cancelled here.
func (s *SaleService) CancelSale(ctx context.Context, userID uuid.UUID, saleID uuid.UUID, reason string) error {
	if reason == "" {
		return apierror.Validation("a cancellation reason is required")
	}

	var sale *model.Sale
	err := runTx(s.sales.DB(), func(tx *gorm.DB) error {
		var err error
		sale, err = s.sales.FindByIDForUpdateTx(tx, saleID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("sale not found")
		}
		if err != nil {
			return err
		}
		if !sale.Status.CanTransitionTo(model.SaleCancelled) {
			return apierror.StateConflict("only pending sales can be cancelled")
		}

		now := time.Now()
		refID := sale.ID
		for _, item := range sale.Items {
			if _, err := s.products.AddStockTx(tx, item.ProductID, item.Qty); err != nil {
				return err
			}
			movement := &model.LedgerMovement{
				MovementType:          model.MovementIn,
				ReferenceType:         model.ReferenceSale,
				ProductID:             item.ProductID,
				ReferenceID:           &refID,
				Qty:                   item.Qty,
				UnitCost:              item.CostPriceSnapshot,
				UnitSalePriceSnapshot: item.UnitPrice,
				UserID:                userID,
				Timestamp:             now,
			}
			if err := s.stocks.CreateLedgerTx(tx, movement); err != nil {
				return err
			}
		}

		sale.Status = model.SaleCancelled
		sale.CancelledAt = &now
		sale.CancelledReason = &reason
		return s.sales.SaveTx(tx, sale)
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return err
		}
		log.Error().Err(err).Msg("sale cancellation failed")
		return apierror.Internal("could not cancel sale")
	}

	s.audit.LogAction(ctx, &userID, "SALE_CANCEL", "sale", sale.ID.String(),
		fmt.Sprintf("ticket=%s reason=%s", sale.TicketNumber, reason))
	return nil
}

func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	return s.loadSaleResponse(ctx, id, nil)
}

func (s *SaleService) ListSales(ctx context.Context, from, to time.Time, userID *uuid.UUID) ([]dto.SaleResponse, error) {
	sales, err := s.sales.List(ctx, from, to, userID)
	if err != nil {
		log.Error().Err(err).Msg("sale list failed")
		return nil, apierror.Internal("could not list sales")
	}
	out := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, toSaleResponse(&sales[i]))
	}
	return out, nil
}

// ListPending returns all sales still awaiting collection or cancellation.
func (s *SaleService) ListPending(ctx context.Context) ([]dto.SaleResponse, error) {
	sales, err := s.sales.ListPending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("pending sale list failed")
		return nil, apierror.Internal("could not list pending sales")
	}
	out := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, toSaleResponse(&sales[i]))
	}
	return out, nil
}

type saleLine struct {
	productID uuid.UUID
	qty       decimal.Decimal
	discount  decimal.Decimal
}

// lockSaleProductsTx acquires row locks for every distinct product in the
// cart, ordered by id, and returns them keyed by id.
func (s *SaleService) lockSaleProductsTx(tx *gorm.DB, lines []saleLine) (map[uuid.UUID]*model.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if !seen[line.productID] {
			seen[line.productID] = true
			ids = append(ids, line.productID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	locked := make(map[uuid.UUID]*model.Product, len(ids))
	for _, id := range ids {
		p, err := s.products.FindByIDForUpdateTx(tx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found: " + id.String())
		}
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, apierror.Validation("product is inactive: " + p.Name)
		}
		locked[id] = p
	}
	return locked, nil
}

// nextTicketNumberTx numbers tickets per calendar day: count of today's
// tickets plus one. Retried transactions may leave gaps; uniqueness is
// enforced by the ticket_number index.
func (s *SaleService) nextTicketNumberTx(tx *gorm.DB, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
	count, err := s.sales.CountForDayTx(tx, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("T-%s-%04d", now.Format("20060102"), count+1), nil
}

func (s *SaleService) loadSaleResponse(ctx context.Context, id uuid.UUID, fallback *model.Sale) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("sale not found")
	}
	if err != nil {
		if fallback == nil {
			log.Error().Err(err).Msg("sale lookup failed")
			return nil, apierror.Internal("could not load sale")
		}
		sale = fallback
	}
	resp := toSaleResponse(sale)
	return &resp, nil
}

func toSaleResponse(sale *model.Sale) dto.SaleResponse {
	resp := dto.SaleResponse{
		ID:              sale.ID.String(),
		TicketNumber:    sale.TicketNumber,
		Date:            sale.Date.Format(time.RFC3339),
		PaymentMethod:   string(sale.PaymentMethod),
		Status:          string(sale.Status),
		Subtotal:        sale.Subtotal,
		GlobalDiscount:  sale.GlobalDiscount,
		DiscountTotal:   sale.DiscountTotal,
		Total:           sale.Total,
		ReceivedAmount:  sale.ReceivedAmount,
		ChangeAmount:    sale.ChangeAmount,
		OperationNumber: sale.OperationNumber,
		Items:           make([]dto.SaleItemResponse, 0, len(sale.Items)),
	}
	if sale.User != nil {
		resp.Seller = sale.User.Username
	}
	if sale.CustomerID != nil {
		cid := sale.CustomerID.String()
		resp.CustomerID = &cid
	}
	for i := range sale.Items {
		item := &sale.Items[i]
		ir := dto.SaleItemResponse{
			ProductID: item.ProductID.String(),
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			LineTotal: item.UnitPrice.Mul(item.Qty).Sub(item.Discount),
		}
		if item.Product != nil {
			ir.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}
