package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
)

type saleEnv struct {
	products  *stubProductRepo
	stocks    *stubStockRepo
	sales     *stubSaleRepo
	cash      *stubCashRepo
	customers *stubCustomerRepo
	svc       *SaleService
	userID    uuid.UUID
}

func newSaleEnv(t *testing.T, arsPerUsd int64) *saleEnv {
	t.Helper()
	e := &saleEnv{
		products:  newStubProductRepo(),
		stocks:    newStubStockRepo(),
		sales:     newStubSaleRepo(),
		cash:      newStubCashRepo(),
		customers: newStubCustomerRepo(),
		userID:    uuid.New(),
	}
	e.svc = NewSaleService(
		e.sales, e.products, e.stocks, e.cash,
		newTestRates(arsPerUsd), NewCustomerService(e.customers), newTestAudit(),
	)
	return e
}

func (e *saleEnv) product(cost float64, margin int64, stock int64) *model.Product {
	return e.products.add(&model.Product{
		InternalCode:  fmt.Sprintf("P-%06d", len(e.products.products)+1),
		Name:          fmt.Sprintf("item %d", len(e.products.products)+1),
		CostPrice:     decimal.NewFromFloat(cost),
		MarginPercent: decimal.NewFromInt(margin),
		SalePrice:     decimal.NewFromFloat(cost).Mul(decimal.NewFromInt(100 + margin)).Div(decimal.NewFromInt(100)),
		StockQuantity: decimal.NewFromInt(stock),
		StockMinimum:  1,
		Active:        true,
	})
}

func (e *saleEnv) openSession(opening int64) *model.CashSession {
	session := &model.CashSession{
		UserID:        e.userID,
		OpenedAt:      time.Now(),
		OpeningAmount: decimal.NewFromInt(opening),
		IsOpen:        true,
	}
	_ = e.cash.CreateSessionTx(nil, session)
	return session
}

func cartOf(p *model.Product, qty int64) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Qty: decimal.NewFromInt(qty)},
		},
	}
}

func TestCreateSale_ComputesPricesServerSide(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5) // cash price 15000 ARS

	resp, err := e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Qty: decimal.NewFromInt(2)},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].UnitPrice.Equal(decimal.NewFromInt(15000)), "got %s", resp.Items[0].UnitPrice)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(30000)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, "pending", resp.Status)

	// Stock decremented and mirrored by exactly one out ledger row.
	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(3)))
	require.Len(t, e.stocks.ledger, 1)
	assert.Equal(t, model.MovementOut, e.stocks.ledger[0].MovementType)
	assert.Equal(t, model.ReferenceSale, e.stocks.ledger[0].ReferenceType)
	assert.True(t, e.stocks.ledger[0].UnitSalePriceSnapshot.Equal(decimal.NewFromInt(15000)))
}

func TestCreateSale_CardAndTransferSurcharges(t *testing.T) {
	e := newSaleEnv(t, 1000)

	card, err := e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "card",
		Items:         []dto.SaleItemRequest{{ProductID: e.product(10, 50, 5).ID.String(), Qty: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.True(t, card.Items[0].UnitPrice.Equal(decimal.NewFromFloat(20400)), "got %s", card.Items[0].UnitPrice)

	transfer, err := e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "transfer",
		Items:         []dto.SaleItemRequest{{ProductID: e.product(10, 50, 5).ID.String(), Qty: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.True(t, transfer.Items[0].UnitPrice.Equal(decimal.NewFromFloat(16500)), "got %s", transfer.Items[0].UnitPrice)
}

func TestCreateSale_InsufficientStockRejectsWholeCart(t *testing.T) {
	e := newSaleEnv(t, 1000)
	ok := e.product(10, 50, 10)
	short := e.product(20, 50, 1)

	_, err := e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "cash",
		Items: []dto.SaleItemRequest{
			{ProductID: ok.ID.String(), Qty: decimal.NewFromInt(3)},
			{ProductID: short.ID.String(), Qty: decimal.NewFromInt(2)},
		},
	})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindStateConflict))

	// No partial state: runTx is a no-op rollback here, but no sale row or
	// ledger row may exist either way.
	assert.Empty(t, e.sales.sales)
	assert.True(t, short.StockQuantity.Equal(decimal.NewFromInt(1)))
}

func TestCreateSale_Validation(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)

	_, err := e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{PaymentMethod: "cash"})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "empty cart")

	_, err = e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "cash",
		Items:         []dto.SaleItemRequest{{ProductID: p.ID.String(), Qty: decimal.NewFromInt(-1)}},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "negative qty")

	big := decimal.NewFromInt(1_000_000)
	_, err = e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod:  "cash",
		GlobalDiscount: &big,
		Items:          []dto.SaleItemRequest{{ProductID: p.ID.String(), Qty: decimal.NewFromInt(1)}},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "global discount above subtotal")

	_, err = e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "check",
		Items:         []dto.SaleItemRequest{{ProductID: p.ID.String(), Qty: decimal.NewFromInt(1)}},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "unknown method")
}

func TestCreateSale_TicketNumbersArePerDay(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 10)

	first, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)
	second, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	day := time.Now().Format("20060102")
	assert.Equal(t, "T-"+day+"-0001", first.TicketNumber)
	assert.Equal(t, "T-"+day+"-0002", second.TicketNumber)
}

func TestCreateSale_CustomerFailureDoesNotBlock(t *testing.T) {
	e := newSaleEnv(t, 1000)
	e.customers.failAll = true
	p := e.product(10, 50, 5)

	name := "Ana"
	resp, err := e.svc.CreateSale(context.Background(), e.userID, dto.CreateSaleRequest{
		PaymentMethod: "cash",
		Customer:      &dto.CustomerUpsertRequest{Dni: "30111222", Name: &name},
		Items:         []dto.SaleItemRequest{{ProductID: p.ID.String(), Qty: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.CustomerID)
}

func TestCollectSale_CashComputesChange(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5) // total per unit 15000
	e.openSession(1000)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	received := decimal.NewFromInt(20000)
	resp, err := e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID:         created.ID,
		PaymentMethod:  "cash",
		ReceivedAmount: &received,
	})
	require.NoError(t, err)

	assert.Equal(t, "paid", resp.Status)
	require.NotNil(t, resp.ChangeAmount)
	assert.True(t, resp.ChangeAmount.Equal(decimal.NewFromInt(5000)))

	// Receipt landed on the open session tagged as a cash sale.
	session, err := e.cash.FindOpenByUser(context.Background(), e.userID)
	require.NoError(t, err)
	movements := e.cash.movements[session.ID]
	require.Len(t, movements, 1)
	assert.Equal(t, model.CashIncome, movements[0].Type)
	assert.True(t, movements[0].Amount.Equal(decimal.NewFromInt(15000)))
	require.NotNil(t, movements[0].Category)
	assert.Equal(t, "VENTA:cash", *movements[0].Category)
}

func TestCollectSale_CashRejectsInsufficientPayment(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)
	e.openSession(0)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	received := decimal.NewFromInt(100)
	_, err = e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID:         created.ID,
		PaymentMethod:  "cash",
		ReceivedAmount: &received,
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCollectSale_RequiresOpenSession(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	received := decimal.NewFromInt(20000)
	_, err = e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID:         created.ID,
		PaymentMethod:  "cash",
		ReceivedAmount: &received,
	})
	assert.True(t, apierror.IsKind(err, apierror.KindStateConflict))
}

func TestCollectSale_CardRequiresOperationNumber(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)
	e.openSession(0)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	_, err = e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID:        created.ID,
		PaymentMethod: "card",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	op := "VISA-1234"
	resp, err := e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID:          created.ID,
		PaymentMethod:   "card",
		OperationNumber: &op,
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	require.NotNil(t, resp.ReceivedAmount)
	assert.True(t, resp.ReceivedAmount.Equal(resp.Total))
	assert.Nil(t, resp.ChangeAmount)
}

func TestCollectSale_VerifiedTransfer(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)
	e.openSession(0)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	op := "TRF-900"
	resp, err := e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID:          created.ID,
		PaymentMethod:   "transfer",
		OperationNumber: &op,
		Verified:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "verified", resp.Status)
}

func TestCollectSale_TwiceIsRejected(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)
	e.openSession(0)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	received := decimal.NewFromInt(20000)
	req := dto.CollectSaleRequest{SaleID: created.ID, PaymentMethod: "cash", ReceivedAmount: &received}
	_, err = e.svc.CollectSale(context.Background(), e.userID, req)
	require.NoError(t, err)

	_, err = e.svc.CollectSale(context.Background(), e.userID, req)
	assert.True(t, apierror.IsKind(err, apierror.KindStateConflict))
}

func TestCancelSale_IsExactInverseOfCreate(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 2))
	require.NoError(t, err)
	require.True(t, p.StockQuantity.Equal(decimal.NewFromInt(3)))

	saleID := uuid.MustParse(created.ID)
	require.NoError(t, e.svc.CancelSale(context.Background(), e.userID, saleID, "customer walked away"))

	// Stock restored and the ledger nets to zero for the product.
	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(5)))
	require.Len(t, e.stocks.ledger, 2)
	assert.Equal(t, model.MovementIn, e.stocks.ledger[1].MovementType)
	assert.True(t, e.stocks.ledgerNet(p.ID).IsZero())

	// Second cancel has no further effect.
	err = e.svc.CancelSale(context.Background(), e.userID, saleID, "again")
	assert.True(t, apierror.IsKind(err, apierror.KindStateConflict))
	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(5)))
}

func TestCancelSale_PaidSaleCannotBeCancelled(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 5)
	e.openSession(0)

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 1))
	require.NoError(t, err)

	received := decimal.NewFromInt(20000)
	_, err = e.svc.CollectSale(context.Background(), e.userID, dto.CollectSaleRequest{
		SaleID: created.ID, PaymentMethod: "cash", ReceivedAmount: &received,
	})
	require.NoError(t, err)

	err = e.svc.CancelSale(context.Background(), e.userID, uuid.MustParse(created.ID), "too late")
	assert.True(t, apierror.IsKind(err, apierror.KindStateConflict))
}

func TestCancelSale_RequiresReason(t *testing.T) {
	e := newSaleEnv(t, 1000)
	err := e.svc.CancelSale(context.Background(), e.userID, uuid.New(), "")
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestStockQuantityMatchesLedgerNet(t *testing.T) {
	e := newSaleEnv(t, 1000)
	p := e.product(10, 50, 0)

	// Seed via ledger-producing flows only: purchase in, sale out, cancel in.
	_, err := e.products.AddStockTx(nil, p.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, e.stocks.CreateLedgerTx(nil, &model.LedgerMovement{
		MovementType: model.MovementIn, ReferenceType: model.ReferencePurchase,
		ProductID: p.ID, Qty: decimal.NewFromInt(10), UserID: e.userID, Timestamp: time.Now(),
	}))

	created, err := e.svc.CreateSale(context.Background(), e.userID, cartOf(p, 4))
	require.NoError(t, err)
	require.NoError(t, e.svc.CancelSale(context.Background(), e.userID, uuid.MustParse(created.ID), "void"))

	assert.True(t, e.stocks.ledgerNet(p.ID).Equal(p.StockQuantity),
		"ledger net %s, stock %s", e.stocks.ledgerNet(p.ID), p.StockQuantity)
}
