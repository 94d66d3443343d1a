package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"geoponto/internal/model"
)

type CompanyRepository interface {
	Get(ctx context.Context, id string) (*model.Company, error)
	Save(ctx context.Context, c *model.Company) error
}

type CompanyService struct {
	store CompanyRepository
}

func NewCompanyService(store CompanyRepository) *CompanyService {
	return &CompanyService{store: store}
}

// Seed stores c unless a configuration with its id already exists.
func (s *CompanyService) Seed(ctx context.Context, c *model.Company) error {
	existing, err := s.store.Get(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("get company: %w", err)
	}
	if existing != nil {
		return nil
	}
	if err := s.store.Save(ctx, c); err != nil {
		return err
	}
	log.Printf("Seeded company %s (%s)", c.ID, c.Name)
	return nil
}

func (s *CompanyService) Get(ctx context.Context, id string) (*model.Company, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("company %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// Update replaces the configuration of company id.
func (s *CompanyService) Update(ctx context.Context, id string, c *model.Company) (*model.Company, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	c.ID = id
	c.UpdatedAt = time.Now()
	if err := check(c); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
