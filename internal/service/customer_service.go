package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/apierror"
	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
)

// CustomerService is the lightweight customer directory keyed by DNI.
type CustomerService struct {
	customers repository.CustomerRepository
}

func NewCustomerService(customers repository.CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

// UpsertByDni finds or creates a customer by DNI and refreshes name/phone when
// provided. Used by the sale flow on a best-effort basis.
func (s *CustomerService) UpsertByDni(ctx context.Context, req dto.CustomerUpsertRequest) (*model.Customer, error) {
	dni := strings.TrimSpace(req.Dni)
	if dni == "" {
		return nil, apierror.Validation("dni is required")
	}

	existing, err := s.customers.FindByDni(ctx, dni)
	switch {
	case err == nil:
		changed := false
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			existing.Name = req.Name
			changed = true
		}
		if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
			existing.Phone = req.Phone
			changed = true
		}
		if changed {
			if uerr := s.customers.Update(ctx, existing); uerr != nil {
				return nil, uerr
			}
		}
		return existing, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		c := &model.Customer{Dni: dni, Name: req.Name, Phone: req.Phone, Active: true}
		if cerr := s.customers.Create(ctx, c); cerr != nil {
			return nil, cerr
		}
		return c, nil

	default:
		return nil, err
	}
}

// ResolveForSale runs the upsert without letting a failure propagate. A sale
// must never be blocked by the customer directory.
func (s *CustomerService) ResolveForSale(ctx context.Context, req *dto.CustomerUpsertRequest) *uuid.UUID {
	if req == nil || strings.TrimSpace(req.Dni) == "" {
		return nil
	}
	c, err := s.UpsertByDni(ctx, *req)
	if err != nil {
		log.Warn().Err(err).Str("dni", req.Dni).Msg("customer upsert failed, sale continues unlinked")
		return nil
	}
	return &c.ID
}

func (s *CustomerService) Search(ctx context.Context, term string) ([]dto.CustomerResponse, error) {
	rows, err := s.customers.Search(ctx, strings.TrimSpace(term), 50)
	if err != nil {
		log.Error().Err(err).Msg("customer search failed")
		return nil, apierror.Internal("could not search customers")
	}
	out := make([]dto.CustomerResponse, 0, len(rows))
	for i := range rows {
		out = append(out, dto.CustomerResponse{
			ID:    rows[i].ID.String(),
			Dni:   rows[i].Dni,
			Name:  rows[i].Name,
			Phone: rows[i].Phone,
		})
	}
	return out, nil
}
