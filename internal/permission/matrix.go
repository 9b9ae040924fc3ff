package permission

import (
	"encoding/json"
	"sort"
)

type Module string

const (
	ModuleDashboard         Module = "dashboard"
	ModulePlantOperations   Module = "plant_operations"
	ModuleInspection        Module = "inspection"
	ModuleProjectManagement Module = "project_management"
)

var modules = []Module{
	ModuleDashboard,
	ModulePlantOperations,
	ModuleInspection,
	ModuleProjectManagement,
}

// Modules returns the fixed module list in canonical order.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

func ParseModule(s string) (Module, bool) {
	for _, m := range modules {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// PlantOperationsPermissions maps category -> unit -> level.
type PlantOperationsPermissions map[string]map[string]Level

// Set assigns a level for a single scope, creating the category entry if needed.
func (p PlantOperationsPermissions) Set(category, unit string, level Level) {
	units, ok := p[category]
	if !ok || units == nil {
		units = make(map[string]Level)
		p[category] = units
	}
	units[unit] = level
}

// Get returns LevelNone when either the category or the unit is missing.
func (p PlantOperationsPermissions) Get(category, unit string) Level {
	units, ok := p[category]
	if !ok {
		return LevelNone
	}
	lvl, ok := units[unit]
	if !ok || !lvl.Valid() {
		return LevelNone
	}
	return lvl
}

func (p PlantOperationsPermissions) Clone() PlantOperationsPermissions {
	out := make(PlantOperationsPermissions, len(p))
	for category, units := range p {
		cp := make(map[string]Level, len(units))
		for unit, lvl := range units {
			cp[unit] = lvl
		}
		out[category] = cp
	}
	return out
}

// Scope narrows a plant_operations permission to a single category/unit pair.
type Scope struct {
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// Matrix is a user's access rights across the four fixed modules.
type Matrix struct {
	Dashboard         Level                      `json:"dashboard"`
	PlantOperations   PlantOperationsPermissions `json:"plant_operations"`
	Inspection        Level                      `json:"inspection"`
	ProjectManagement Level                      `json:"project_management"`
}

// NewMatrix returns the default-deny matrix.
func NewMatrix() Matrix {
	return Matrix{
		Dashboard:         LevelNone,
		PlantOperations:   PlantOperationsPermissions{},
		Inspection:        LevelNone,
		ProjectManagement: LevelNone,
	}
}

// Level returns the stored scalar level for module. plant_operations and unknown modules return LevelNone.
func (m Matrix) Level(module Module) Level {
	var lvl Level
	switch module {
	case ModuleDashboard:
		lvl = m.Dashboard
	case ModuleInspection:
		lvl = m.Inspection
	case ModuleProjectManagement:
		lvl = m.ProjectManagement
	default:
		return LevelNone
	}
	if !lvl.Valid() {
		return LevelNone
	}
	return lvl
}

func (m Matrix) PlantLevel(category, unit string) Level {
	if m.PlantOperations == nil {
		return LevelNone
	}
	return m.PlantOperations.Get(category, unit)
}

// setScalar reports false for plant_operations and unknown modules.
func (m *Matrix) setScalar(module Module, level Level) bool {
	switch module {
	case ModuleDashboard:
		m.Dashboard = level
	case ModuleInspection:
		m.Inspection = level
	case ModuleProjectManagement:
		m.ProjectManagement = level
	default:
		return false
	}
	return true
}

func (m Matrix) Clone() Matrix {
	out := m
	if m.PlantOperations == nil {
		out.PlantOperations = PlantOperationsPermissions{}
	} else {
		out.PlantOperations = m.PlantOperations.Clone()
	}
	return out
}

// Equal compares two matrices structurally. A nil plant map equals an empty one.
func (m Matrix) Equal(other Matrix) bool {
	if m.Level(ModuleDashboard) != other.Level(ModuleDashboard) ||
		m.Level(ModuleInspection) != other.Level(ModuleInspection) ||
		m.Level(ModuleProjectManagement) != other.Level(ModuleProjectManagement) {
		return false
	}
	if len(m.PlantOperations) != len(other.PlantOperations) {
		return false
	}
	for category, units := range m.PlantOperations {
		otherUnits, ok := other.PlantOperations[category]
		if !ok || len(units) != len(otherUnits) {
			return false
		}
		for unit, lvl := range units {
			otherLvl, ok := otherUnits[unit]
			if !ok || lvl != otherLvl {
				return false
			}
		}
	}
	return true
}

// Scopes lists every category/unit pair with a stored level of at least min, sorted.
func (m Matrix) Scopes(min Level) []Scope {
	var scopes []Scope
	for category, units := range m.PlantOperations {
		for unit, lvl := range units {
			if lvl.Valid() && lvl.AtLeast(min) {
				scopes = append(scopes, Scope{Category: category, Unit: unit})
			}
		}
	}
	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].Category != scopes[j].Category {
			return scopes[i].Category < scopes[j].Category
		}
		return scopes[i].Unit < scopes[j].Unit
	})
	return scopes
}

// MarshalJSON keeps plant_operations an object even when the map is nil.
func (m Matrix) MarshalJSON() ([]byte, error) {
	type alias Matrix
	out := alias(m)
	if out.PlantOperations == nil {
		out.PlantOperations = PlantOperationsPermissions{}
	}
	out.Dashboard = m.Level(ModuleDashboard)
	out.Inspection = m.Level(ModuleInspection)
	out.ProjectManagement = m.Level(ModuleProjectManagement)
	return json.Marshal(out)
}

func (m *Matrix) UnmarshalJSON(data []byte) error {
	type alias Matrix
	out := alias(NewMatrix())
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out.PlantOperations == nil {
		out.PlantOperations = PlantOperationsPermissions{}
	}
	*m = Matrix(out)
	return nil
}
