package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"geoponto/internal/model"
)

// DefaultCompany is the unit used when no seed file exists.
func DefaultCompany() *model.Company {
	return &model.Company{
		ID:            "company_123",
		Name:          "Minha Empresa S.A.",
		TaxID:         "00.000.000/0001-00",
		Address:       "Avenida Paulista, 1000 - São Paulo, SP",
		Latitude:      -23.5614,
		Longitude:     -46.6559,
		AllowedRadius: model.DefaultAllowedRadius,
		Policies:      model.DefaultPolicies(),
	}
}

// LoadCompany reads the company seed from a YAML file. Keys missing from the
// file keep the values of DefaultCompany.
func LoadCompany(path string) (*model.Company, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read company file: %w", err)
	}

	c := DefaultCompany()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshal company yaml: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("company file %s: id is required", path)
	}
	if c.AllowedRadius < 0 {
		return nil, fmt.Errorf("company file %s: allowed_radius must not be negative", path)
	}
	return c, nil
}
