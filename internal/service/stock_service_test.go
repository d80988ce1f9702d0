package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/config"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
)

type stockEnv struct {
	products *stubProductRepo
	stocks   *stubStockRepo
	svc      *StockService
	userID   uuid.UUID
}

func newStockEnv(t *testing.T, arsPerUsd int64) *stockEnv {
	t.Helper()
	e := &stockEnv{
		products: newStubProductRepo(),
		stocks:   newStubStockRepo(),
		userID:   uuid.New(),
	}
	cfg := &config.Config{DefaultMarginPercent: 80}
	e.svc = NewStockService(e.stocks, e.products, newTestRates(arsPerUsd), newTestAudit(), cfg)
	return e
}

func lotLine(p *model.Product, qty, cost int64) dto.StockEntryItemRequest {
	id := p.ID.String()
	return dto.StockEntryItemRequest{
		ProductID:           &id,
		Qty:                 decimal.NewFromInt(qty),
		PurchaseUnitCostUsd: decimal.NewFromInt(cost),
	}
}

func TestIngestLot_AllocatesLogisticsProportionally(t *testing.T) {
	e := newStockEnv(t, 1000)
	a := e.products.add(&model.Product{Name: "a", MarginPercent: decimal.NewFromInt(50), Active: true})
	b := e.products.add(&model.Product{Name: "b", MarginPercent: decimal.NewFromInt(50), Active: true})

	// Purchase values 100 and 300 USD, logistics 40 USD: lines get 10 and 30.
	resp, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		LogisticsUsd: decimal.NewFromInt(40),
		Items: []dto.StockEntryItemRequest{
			lotLine(a, 10, 10), // 100 USD
			lotLine(b, 10, 30), // 300 USD
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.True(t, resp.Items[0].LogisticsUnitCostUsd.Equal(decimal.NewFromInt(1)), "got %s", resp.Items[0].LogisticsUnitCostUsd)
	assert.True(t, resp.Items[1].LogisticsUnitCostUsd.Equal(decimal.NewFromInt(3)), "got %s", resp.Items[1].LogisticsUnitCostUsd)
	assert.True(t, resp.Items[0].FinalUnitCostUsd.Equal(decimal.NewFromInt(11)))
	assert.True(t, resp.Items[1].FinalUnitCostUsd.Equal(decimal.NewFromInt(33)))

	// Allocation is total-preserving: qty*finalUnit sums to purchase+logistics.
	sum := decimal.Zero
	for _, item := range resp.Items {
		sum = sum.Add(item.Qty.Mul(item.FinalUnitCostUsd))
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(440)), "got %s", sum)
}

func TestIngestLot_LastCostOverwriteAndRateStamp(t *testing.T) {
	e := newStockEnv(t, 1200)
	p := e.products.add(&model.Product{
		Name:          "relay",
		CostPrice:     decimal.NewFromInt(5),
		MarginPercent: decimal.NewFromInt(50),
		StockQuantity: decimal.NewFromInt(3),
		Active:        true,
	})

	_, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{lotLine(p, 7, 20)},
	})
	require.NoError(t, err)

	// Cost basis replaced, not averaged; sale price recomputed from margin.
	assert.True(t, p.CostPrice.Equal(decimal.NewFromInt(20)))
	assert.True(t, p.SalePrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, p.LastStockExchangeRateArs.Equal(decimal.NewFromInt(1200)))
	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(10)))

	require.Len(t, e.stocks.ledger, 1)
	assert.Equal(t, model.MovementIn, e.stocks.ledger[0].MovementType)
	assert.Equal(t, model.ReferencePurchase, e.stocks.ledger[0].ReferenceType)
}

func TestIngestLot_CreatesProductByName(t *testing.T) {
	e := newStockEnv(t, 1000)

	name := "HDMI cable 2m"
	margin := decimal.NewFromInt(60)
	resp, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{
			{ProductName: &name, Qty: decimal.NewFromInt(20), PurchaseUnitCostUsd: decimal.NewFromInt(2), MarginPercent: &margin},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)

	created, err := e.products.FindByNameFoldTx(nil, "hdmi CABLE 2m")
	require.NoError(t, err)
	assert.Equal(t, "P-000001", created.InternalCode)
	assert.True(t, created.MarginPercent.Equal(margin))
	assert.True(t, created.StockQuantity.Equal(decimal.NewFromInt(20)))

	// Re-ingesting the same name reuses the product instead of duplicating.
	_, err = e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{
			{ProductName: &name, Qty: decimal.NewFromInt(5), PurchaseUnitCostUsd: decimal.NewFromInt(2)},
		},
	})
	require.NoError(t, err)
	assert.Len(t, e.products.products, 1)
	assert.True(t, created.StockQuantity.Equal(decimal.NewFromInt(25)))
}

// A lot may legitimately list the same product twice (two supplier cartons at
// different costs). Every line's increment must land and agree with the ledger.
func TestIngestLot_RepeatedProductLines(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{Name: "battery", MarginPercent: decimal.NewFromInt(50), Active: true})

	_, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{
			lotLine(p, 5, 10),
			lotLine(p, 7, 12),
		},
	})
	require.NoError(t, err)

	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(12)), "got %s", p.StockQuantity)
	assert.True(t, e.stocks.ledgerNet(p.ID).Equal(p.StockQuantity), "ledger net %s", e.stocks.ledgerNet(p.ID))
	require.Len(t, e.stocks.ledger, 2)
	// Last-cost policy within the lot too: the second line's landed cost wins.
	assert.True(t, p.CostPrice.Equal(decimal.NewFromInt(12)))
}

func TestIngestLot_DefaultMarginForNewProducts(t *testing.T) {
	e := newStockEnv(t, 1000)

	name := "no-margin widget"
	_, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{
			{ProductName: &name, Qty: decimal.NewFromInt(1), PurchaseUnitCostUsd: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	created, err := e.products.FindByNameFoldTx(nil, name)
	require.NoError(t, err)
	assert.True(t, created.MarginPercent.Equal(decimal.NewFromInt(80)))
	assert.True(t, created.SalePrice.Equal(decimal.NewFromInt(18)))
}

func TestIngestLot_ExplicitRateOverridesCurrent(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{Name: "psu", MarginPercent: decimal.NewFromInt(50), Active: true})

	override := decimal.NewFromInt(1500)
	resp, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		ExchangeRateArs: &override,
		Items:           []dto.StockEntryItemRequest{lotLine(p, 1, 10)},
	})
	require.NoError(t, err)
	assert.True(t, resp.ExchangeRateArs.Equal(override))
	assert.True(t, p.LastStockExchangeRateArs.Equal(override))
	assert.True(t, resp.Items[0].FinalUnitCostArs.Equal(decimal.NewFromInt(15000)))
}

func TestIngestLot_BatchCodesAreSequential(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{Name: "fuse", MarginPercent: decimal.NewFromInt(50), Active: true})

	first, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{lotLine(p, 1, 1)},
	})
	require.NoError(t, err)
	second, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{lotLine(p, 1, 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, "LOTE-000001", first.BatchCode)
	assert.Equal(t, "LOTE-000002", second.BatchCode)
}

func TestIngestLot_Validation(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{Name: "x", Active: true})

	_, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "empty items")

	_, err = e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{lotLine(p, 0, 10)},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "zero qty")

	_, err = e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{lotLine(p, 1, -1)},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation), "negative cost")

	unknown := uuid.New().String()
	_, err = e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		Items: []dto.StockEntryItemRequest{
			{ProductID: &unknown, Qty: decimal.NewFromInt(1), PurchaseUnitCostUsd: decimal.NewFromInt(1)},
		},
	})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound), "unknown product id")
}

func TestIngestLot_ZeroPurchaseTotalGetsNoLogistics(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{Name: "freebie", MarginPercent: decimal.NewFromInt(50), Active: true})

	resp, err := e.svc.IngestLot(context.Background(), e.userID, dto.CreateStockEntryRequest{
		LogisticsUsd: decimal.NewFromInt(40),
		Items:        []dto.StockEntryItemRequest{lotLine(p, 5, 0)},
	})
	require.NoError(t, err)
	assert.True(t, resp.Items[0].LogisticsUnitCostUsd.IsZero())
	assert.True(t, resp.Items[0].FinalUnitCostUsd.IsZero())
}

func TestStockOut_GuardsAgainstNegativeStock(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{
		Name:          "drained",
		StockQuantity: decimal.NewFromInt(2),
		Active:        true,
	})

	err := e.svc.StockOut(context.Background(), e.userID, dto.StockOutRequest{
		ProductID: p.ID.String(),
		Qty:       decimal.NewFromInt(5),
		Reason:    "breakage",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindStateConflict))
	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(2)))
	assert.Empty(t, e.stocks.ledger)

	require.NoError(t, e.svc.StockOut(context.Background(), e.userID, dto.StockOutRequest{
		ProductID: p.ID.String(),
		Qty:       decimal.NewFromInt(2),
		Reason:    "breakage",
	}))
	assert.True(t, p.StockQuantity.IsZero())
	require.Len(t, e.stocks.ledger, 1)
	assert.Equal(t, model.MovementOut, e.stocks.ledger[0].MovementType)
	assert.Equal(t, model.ReferenceManualAdjust, e.stocks.ledger[0].ReferenceType)
}

func TestAdjustStock_SignedCorrection(t *testing.T) {
	e := newStockEnv(t, 1000)
	p := e.products.add(&model.Product{
		Name:          "counted",
		StockQuantity: decimal.NewFromInt(10),
		Active:        true,
	})

	require.NoError(t, e.svc.AdjustStock(context.Background(), e.userID, dto.AdjustStockRequest{
		ProductID: p.ID.String(),
		Qty:       decimal.NewFromInt(-3),
		Notes:     "inventory count",
	}))
	assert.True(t, p.StockQuantity.Equal(decimal.NewFromInt(7)))

	require.Len(t, e.stocks.ledger, 1)
	assert.Equal(t, model.MovementAdjust, e.stocks.ledger[0].MovementType)
	assert.True(t, e.stocks.ledger[0].Qty.Equal(decimal.NewFromInt(-3)))

	err := e.svc.AdjustStock(context.Background(), e.userID, dto.AdjustStockRequest{
		ProductID: p.ID.String(),
		Qty:       decimal.Zero,
		Notes:     "noop",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}
