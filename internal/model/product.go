package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry with its finished-goods stock and production pipeline
type Product struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string            `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string            `gorm:"type:text" json:"description"`
	Price       decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"price"`
	Cost        decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Stock       int               `gorm:"type:int;not null;default:0;check:stock >= 0" json:"stock"`
	Stages      []ProductionStage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"stages"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ProductionStage is one ordered step of a product's pipeline (cutting, assembly...)
type ProductionStage struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Sequence  int             `gorm:"not null" json:"sequence"`
	Payment   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"payment"` // pay rate per unit
}

// SortStages orders the stages by sequence position
func (p *Product) SortStages() {
	sort.SliceStable(p.Stages, func(i, j int) bool {
		return p.Stages[i].Sequence < p.Stages[j].Sequence
	})
}

// Stage returns the stage with the given id if it belongs to the product
func (p *Product) Stage(id uuid.UUID) (ProductionStage, bool) {
	for _, s := range p.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return ProductionStage{}, false
}

// AllStagesIn reports whether every stage of the product appears in done.
// A product without stages is never complete.
func (p *Product) AllStagesIn(done map[uuid.UUID]bool) bool {
	if len(p.Stages) == 0 {
		return false
	}
	for _, s := range p.Stages {
		if !done[s.ID] {
			return false
		}
	}
	return true
}
