package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
)

const saleCategoryPrefix = "VENTA:"

var cashSaleCategory = saleCategoryPrefix + string(model.PaymentCash)

// CashService owns the till lifecycle: open with a float, accumulate income
// and expense movements while open, close against a physical count. At most
// one session per operator may be open; the check runs under a row lock with
// a partial unique index as backstop.
type CashService struct {
	cash  repository.CashRepository
	sales repository.SaleRepository
	audit *AuditService
}

func NewCashService(cash repository.CashRepository, sales repository.SaleRepository, audit *AuditService) *CashService {
	return &CashService{cash: cash, sales: sales, audit: audit}
}

// OpenSession starts a till session with the given opening float.
func (s *CashService) OpenSession(ctx context.Context, userID uuid.UUID, req dto.OpenCashSessionRequest) (*dto.CashSessionResponse, error) {
	if req.OpeningAmount.IsNegative() {
		return nil, apierror.Validation("opening_amount cannot be negative")
	}

	session := &model.CashSession{
		UserID:        userID,
		OpenedAt:      time.Now(),
		OpeningAmount: req.OpeningAmount,
		IsOpen:        true,
	}

	err := runTx(s.cash.DB(), func(tx *gorm.DB) error {
		_, err := s.cash.FindOpenByUserForUpdateTx(tx, userID)
		if err == nil {
			return apierror.StateConflict("a cash session is already open")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.cash.CreateSessionTx(tx, session)
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		log.Error().Err(err).Msg("cash session open failed")
		return nil, apierror.Internal("could not open cash session")
	}

	s.audit.LogAction(ctx, &userID, "CASH_OPEN", "cash_session", session.ID.String(),
		"opening="+req.OpeningAmount.StringFixed(2))

	resp := toCashSessionResponse(session, nil)
	return &resp, nil
}

// RecordMovement appends an income or expense to the operator's open session.
func (s *CashService) RecordMovement(ctx context.Context, userID uuid.UUID, req dto.CashMovementRequest) (*dto.CashMovementResponse, error) {
	movementType := model.CashMovementType(req.Type)
	if movementType != model.CashIncome && movementType != model.CashExpense {
		return nil, apierror.Validation("type must be income or expense")
	}
	if !req.Amount.IsPositive() {
		return nil, apierror.Validation("amount must be positive")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apierror.Validation("a reason is required")
	}

	movement := &model.CashMovement{
		Type:     movementType,
		Amount:   req.Amount,
		Reason:   req.Reason,
		Category: req.Category,
		UserID:   userID,
	}

	err := runTx(s.cash.DB(), func(tx *gorm.DB) error {
		session, err := s.cash.FindOpenByUserForUpdateTx(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.StateConflict("no open cash session")
		}
		if err != nil {
			return err
		}
		movement.CashSessionID = session.ID
		return s.cash.CreateMovementTx(tx, movement)
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		log.Error().Err(err).Msg("cash movement failed")
		return nil, apierror.Internal("could not record cash movement")
	}

	s.audit.LogAction(ctx, &userID, "CASH_MOVEMENT", "cash_movement", movement.ID.String(),
		fmt.Sprintf("type=%s amount=%s", req.Type, req.Amount.StringFixed(2)))

	resp := toCashMovementResponse(movement)
	return &resp, nil
}

// CloseSession reconciles the open session against the counted cash. Only
// physical cash counts toward the expectation: card and transfer receipts
// (VENTA:* categories other than VENTA:cash) never touch the till.
func (s *CashService) CloseSession(ctx context.Context, userID uuid.UUID, req dto.CloseCashSessionRequest) (*dto.CashSessionResponse, error) {
	if req.CountedCash.IsNegative() {
		return nil, apierror.Validation("counted_cash cannot be negative")
	}

	var session *model.CashSession
	var movements []model.CashMovement
	err := runTx(s.cash.DB(), func(tx *gorm.DB) error {
		var err error
		session, err = s.cash.FindOpenByUserForUpdateTx(tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.StateConflict("no open cash session")
		}
		if err != nil {
			return err
		}

		movements, err = s.cash.ListMovementsTx(tx, session.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		expected := ExpectedCash(session.OpeningAmount, movements)
		difference := req.CountedCash.Sub(expected)

		session.ClosedAt = &now
		session.CountedCash = &req.CountedCash
		session.ExpectedCash = &expected
		session.Difference = &difference
		session.IsOpen = false
		return s.cash.SaveSessionTx(tx, session)
	})
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		log.Error().Err(err).Msg("cash session close failed")
		return nil, apierror.Internal("could not close cash session")
	}

	s.audit.LogAction(ctx, &userID, "CASH_CLOSE", "cash_session", session.ID.String(),
		fmt.Sprintf("expected=%s counted=%s diff=%s",
			session.ExpectedCash.StringFixed(2), req.CountedCash.StringFixed(2), session.Difference.StringFixed(2)))

	resp := toCashSessionResponse(session, movements)
	return &resp, nil
}

// ExpectedCash computes the physical cash a till should hold: opening float
// plus every income except non-cash sale receipts, minus every expense.
func ExpectedCash(opening decimal.Decimal, movements []model.CashMovement) decimal.Decimal {
	expected := opening
	for i := range movements {
		m := &movements[i]
		switch m.Type {
		case model.CashIncome:
			if m.Category != nil &&
				strings.HasPrefix(*m.Category, saleCategoryPrefix) &&
				!strings.EqualFold(*m.Category, cashSaleCategory) {
				continue
			}
			expected = expected.Add(m.Amount)
		case model.CashExpense:
			expected = expected.Sub(m.Amount)
		}
	}
	return expected
}

// CurrentSession returns the operator's open session with its movements, or
// NotFound when none is open.
func (s *CashService) CurrentSession(ctx context.Context, userID uuid.UUID) (*dto.CashSessionResponse, error) {
	session, err := s.cash.FindOpenByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("no open cash session")
	}
	if err != nil {
		log.Error().Err(err).Msg("cash session lookup failed")
		return nil, apierror.Internal("could not load cash session")
	}

	movements, err := s.cash.ListMovementsTx(s.cash.DB(), session.ID)
	if err != nil {
		log.Error().Err(err).Msg("cash movement list failed")
		return nil, apierror.Internal("could not load cash movements")
	}

	resp := toCashSessionResponse(session, movements)
	return &resp, nil
}

// ListSessions returns sessions in a date window, optionally for one operator.
func (s *CashService) ListSessions(ctx context.Context, from, to time.Time, userID *uuid.UUID) ([]dto.CashSessionResponse, error) {
	sessions, err := s.cash.ListSessions(ctx, from, to, userID)
	if err != nil {
		log.Error().Err(err).Msg("cash session list failed")
		return nil, apierror.Internal("could not list cash sessions")
	}
	out := make([]dto.CashSessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toCashSessionResponse(&sessions[i], sessions[i].Movements))
	}
	return out, nil
}

// MyDay aggregates one operator's calendar day for display: sale totals by
// payment method, manual till movements and closure differences. It derives
// from the underlying records and never feeds back into reconciliation.
func (s *CashService) MyDay(ctx context.Context, userID uuid.UUID, day time.Time) (*dto.MyDayResponse, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	sales, err := s.sales.ListByUserAndDay(ctx, userID, dayStart, dayEnd)
	if err != nil {
		log.Error().Err(err).Msg("my day sale list failed")
		return nil, apierror.Internal("could not build day summary")
	}
	sessions, err := s.cash.ListSessions(ctx, dayStart, dayEnd, &userID)
	if err != nil {
		log.Error().Err(err).Msg("my day session list failed")
		return nil, apierror.Internal("could not build day summary")
	}

	resp := &dto.MyDayResponse{
		SalesTotal:       decimal.Zero,
		Incomes:          decimal.Zero,
		Expenses:         decimal.Zero,
		ClosureDiff:      decimal.Zero,
		PaymentBreakdown: map[string]decimal.Decimal{},
		DayMovements:     []dto.DayMovementResponse{},
		Sessions:         make([]dto.CashSessionResponse, 0, len(sessions)),
	}

	for i := range sales {
		sale := &sales[i]
		switch sale.Status {
		case model.SalePending:
			resp.PendingSales++
		case model.SalePaid, model.SaleVerified:
			resp.SalesCount++
			resp.SalesTotal = resp.SalesTotal.Add(sale.Total)
			method := string(sale.PaymentMethod)
			resp.PaymentBreakdown[method] = resp.PaymentBreakdown[method].Add(sale.Total)
			resp.DayMovements = append(resp.DayMovements, dto.DayMovementResponse{
				Date:          sale.Date.Format(time.RFC3339),
				Type:          "sale",
				Reference:     sale.TicketNumber,
				Amount:        sale.Total,
				PaymentMethod: method,
			})
		}
	}

	for i := range sessions {
		session := &sessions[i]
		if session.Difference != nil {
			resp.ClosureDiff = resp.ClosureDiff.Add(*session.Difference)
		}
		for j := range session.Movements {
			m := &session.Movements[j]
			if m.Category != nil && strings.HasPrefix(*m.Category, saleCategoryPrefix) {
				continue
			}
			switch m.Type {
			case model.CashIncome:
				resp.Incomes = resp.Incomes.Add(m.Amount)
			case model.CashExpense:
				resp.Expenses = resp.Expenses.Add(m.Amount)
			}
			resp.DayMovements = append(resp.DayMovements, dto.DayMovementResponse{
				Date:      m.CreatedAt.Format(time.RFC3339),
				Type:      string(m.Type),
				Reference: m.Reason,
				Amount:    m.Amount,
			})
		}
		resp.Sessions = append(resp.Sessions, toCashSessionResponse(session, session.Movements))
	}

	sort.Slice(resp.DayMovements, func(i, j int) bool {
		return resp.DayMovements[i].Date > resp.DayMovements[j].Date
	})
	return resp, nil
}

func toCashMovementResponse(m *model.CashMovement) dto.CashMovementResponse {
	return dto.CashMovementResponse{
		ID:        m.ID.String(),
		Type:      string(m.Type),
		Amount:    m.Amount,
		Reason:    m.Reason,
		Category:  m.Category,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func toCashSessionResponse(s *model.CashSession, movements []model.CashMovement) dto.CashSessionResponse {
	resp := dto.CashSessionResponse{
		ID:            s.ID.String(),
		UserID:        s.UserID.String(),
		OpenedAt:      s.OpenedAt.Format(time.RFC3339),
		OpeningAmount: s.OpeningAmount,
		CountedCash:   s.CountedCash,
		ExpectedCash:  s.ExpectedCash,
		Difference:    s.Difference,
		IsOpen:        s.IsOpen,
		Movements:     make([]dto.CashMovementResponse, 0, len(movements)),
	}
	if s.ClosedAt != nil {
		closed := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}
	for i := range movements {
		resp.Movements = append(resp.Movements, toCashMovementResponse(&movements[i]))
	}
	return resp
}
