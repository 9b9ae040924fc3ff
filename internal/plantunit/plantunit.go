package plantunit

import (
	"sort"
	"time"

	plantunitDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/plantunit"
	"github.com/frahmantamala/plant-operations/internal/permission"
)

// PlantUnit is one (category, unit) pair. These pairs are the scopes of the plant_operations module.
type PlantUnit struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Unit        string    `json:"unit"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *PlantUnit) Scope() permission.Scope {
	return permission.Scope{Category: p.Category, Unit: p.Unit}
}

// Category groups the units of one plant category.
type Category struct {
	Name  string   `json:"name"`
	Units []string `json:"units"`
}

// GroupByCategory returns categories and their units, both sorted by name.
func GroupByCategory(units []*PlantUnit) []Category {
	byName := make(map[string][]string)
	for _, u := range units {
		byName[u.Category] = append(byName[u.Category], u.Unit)
	}

	out := make([]Category, 0, len(byName))
	for name, list := range byName {
		sort.Strings(list)
		out = append(out, Category{Name: name, Units: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func ToDataModel(p *PlantUnit) *plantunitDatamodel.PlantUnit {
	return &plantunitDatamodel.PlantUnit{
		ID:          p.ID,
		Category:    p.Category,
		Unit:        p.Unit,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(p *plantunitDatamodel.PlantUnit) *PlantUnit {
	return &PlantUnit{
		ID:          p.ID,
		Category:    p.Category,
		Unit:        p.Unit,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
