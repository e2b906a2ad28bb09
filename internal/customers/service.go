package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rverduzco/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/rverduzco/stockroom-backend/pkg/errors"
	"github.com/rverduzco/stockroom-backend/pkg/pagination"
)

// Service defines customer book operations. Customers are optional on
// invoices; deleting them is not supported so past invoices keep resolving.
type Service interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context, filter ListFilter) ([]models.Customer, string, error)
}

type CreateCustomerInput struct {
	Name    string  `json:"name" validate:"required"`
	Phone   *string `json:"phone"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
}

type UpdateCustomerInput struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
}

type service struct {
	repo Repository
}

// NewService wires a customer service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}

	customer := &models.Customer{
		Name:    name,
		Phone:   input.Phone,
		TaxID:   input.TaxID,
		Address: input.Address,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name must not be empty")
		}
		customer.Name = name
	}
	if input.Phone != nil {
		customer.Phone = input.Phone
	}
	if input.TaxID != nil {
		customer.TaxID = input.TaxID
	}
	if input.Address != nil {
		customer.Address = input.Address
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

func (s *service) ListCustomers(ctx context.Context, filter ListFilter) ([]models.Customer, string, error) {
	customers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	next := ""
	if len(customers) > limit {
		customers = customers[:limit]
		last := customers[len(customers)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return customers, next, nil
}
