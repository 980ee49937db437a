// Package seed loads a product catalog from YAML and creates the missing products.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"workshop/internal/access"
	"workshop/internal/service"
	"workshop/pkg/apperror"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk product list. Money values are decimal strings.
type Catalog struct {
	Products []CatalogProduct `yaml:"products"`
}

type CatalogProduct struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Price       string         `yaml:"price"`
	Cost        string         `yaml:"cost"`
	Stages      []CatalogStage `yaml:"stages"`
}

type CatalogStage struct {
	Name    string `yaml:"name"`
	Payment string `yaml:"payment"`
}

func money(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("seed: %s %q: %w", field, raw, err)
	}
	return d, nil
}

// Request converts the entry into a create request
func (p CatalogProduct) Request() (service.CreateProductRequest, error) {
	req := service.CreateProductRequest{Name: p.Name, Description: p.Description}
	var err error
	if req.Price, err = money(p.Name+" price", p.Price); err != nil {
		return req, err
	}
	if req.Cost, err = money(p.Name+" cost", p.Cost); err != nil {
		return req, err
	}
	for _, s := range p.Stages {
		pay, err := money(p.Name+"/"+s.Name+" payment", s.Payment)
		if err != nil {
			return req, err
		}
		req.Stages = append(req.Stages, service.StageInput{Name: s.Name, Payment: pay})
	}
	return req, nil
}

// ParseCatalog decodes a catalog from YAML bytes
func ParseCatalog(data []byte) (Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Catalog{}, fmt.Errorf("seed: catalog is empty")
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("seed: decode catalog: %w", err)
	}
	for i, p := range cat.Products {
		if strings.TrimSpace(p.Name) == "" {
			return Catalog{}, fmt.Errorf("seed: product #%d has no name", i+1)
		}
	}
	return cat, nil
}

// LoadCatalogFile reads and decodes the catalog at path
func LoadCatalogFile(path string) (Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	cat, err := ParseCatalog(content)
	if err != nil {
		return Catalog{}, fmt.Errorf("seed: %s: %w", path, err)
	}
	return cat, nil
}

// Apply creates every catalog product that does not exist yet and returns how many
// were created. Products whose name is taken are left untouched.
func Apply(ctx context.Context, products service.ProductService, actor access.Actor, cat Catalog, log *zap.Logger) (int, error) {
	created := 0
	for _, p := range cat.Products {
		req, err := p.Request()
		if err != nil {
			return created, err
		}
		product, err := products.CreateProduct(ctx, actor, req)
		if errors.Is(err, apperror.ErrConflict) {
			log.Debug("catalog product already exists", zap.String("name", p.Name))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed: create %q: %w", p.Name, err)
		}
		created++
		log.Info("catalog product created",
			zap.String("name", product.Name),
			zap.String("product_id", product.ID.String()),
			zap.Int("stages", len(product.Stages)),
		)
	}
	return created, nil
}
