package permission

import (
	"encoding/json"
	"log/slog"
	"strings"
)

type inputKind int

const (
	inputNone inputKind = iota
	inputRole
	inputRecords
)

// Input is what a matrix is built from: nothing, a role name, or a list of raw records.
type Input struct {
	kind    inputKind
	role    string
	records []RawRecord
}

func NoInput() Input {
	return Input{kind: inputNone}
}

// RoleInput builds the coarse role default: roles naming admin or operator may read the dashboard.
func RoleInput(role string) Input {
	return Input{kind: inputRole, role: role}
}

func RecordsInput(records ...RawRecord) Input {
	return Input{kind: inputRecords, records: records}
}

// Skip reasons reported while building.
const (
	SkipMalformedData   = "malformed_data"
	SkipUnknownModule   = "unknown_module"
	SkipInvalidEntry    = "invalid_entry"
	SkipUnsupportedType = "unsupported_record"
)

type skipFunc func(index int, module string, reason string)

// BuildMatrix projects the input into a matrix. It never fails: anything it cannot use is skipped.
func BuildMatrix(input Input) Matrix {
	return build(input, nil)
}

func build(input Input, onSkip skipFunc) Matrix {
	skip := func(index int, module, reason string) {
		if onSkip != nil {
			onSkip(index, module, reason)
		}
	}

	m := NewMatrix()

	switch input.kind {
	case inputRole:
		role := strings.ToLower(input.role)
		if strings.Contains(role, "admin") || strings.Contains(role, "operator") {
			m.Dashboard = LevelRead
		}
		return m
	case inputRecords:
	default:
		return m
	}

	for i, rec := range input.records {
		switch r := rec.(type) {
		case DataRecord:
			applyData(&m, i, r, skip)
		case *DataRecord:
			if r == nil {
				skip(i, "", SkipUnsupportedType)
				continue
			}
			applyData(&m, i, *r, skip)
		case LegacyRecord:
			applyLegacy(&m, i, r, skip)
		case *LegacyRecord:
			if r == nil {
				skip(i, "", SkipUnsupportedType)
				continue
			}
			applyLegacy(&m, i, *r, skip)
		default:
			skip(i, "", SkipUnsupportedType)
		}
	}

	return m
}

func applyData(m *Matrix, index int, rec DataRecord, skip skipFunc) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Raw), &doc); err != nil || doc == nil {
		skip(index, "", SkipMalformedData)
		return
	}

	for key, raw := range doc {
		module, ok := ParseModule(key)
		if !ok {
			skip(index, key, SkipUnknownModule)
			continue
		}

		if module == ModulePlantOperations {
			var plant PlantOperationsPermissions
			if err := json.Unmarshal(raw, &plant); err != nil || plant == nil {
				skip(index, key, SkipInvalidEntry)
				continue
			}
			m.PlantOperations = plant
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			skip(index, key, SkipInvalidEntry)
			continue
		}
		lvl, ok := ParseLevel(s)
		if !ok {
			skip(index, key, SkipInvalidEntry)
			continue
		}
		m.setScalar(module, lvl)
	}
}

func applyLegacy(m *Matrix, index int, rec LegacyRecord, skip skipFunc) {
	module, ok := ParseModule(rec.ModuleName)
	if !ok {
		skip(index, rec.ModuleName, SkipUnknownModule)
		return
	}

	lvl := rec.Level
	if !lvl.Valid() {
		skip(index, rec.ModuleName, SkipInvalidEntry)
		return
	}

	if module == ModulePlantOperations {
		for _, ref := range rec.PlantUnits {
			m.PlantOperations.Set(ref.Category, ref.Unit, lvl)
		}
		return
	}

	m.setScalar(module, lvl)
}

// Builder wraps BuildMatrix with logging and metrics.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

func (b *Builder) Build(input Input) Matrix {
	m := build(input, func(index int, module, reason string) {
		recordsSkipped.WithLabelValues(reason).Inc()
		b.logger.Warn("permission record skipped",
			"index", index,
			"module", module,
			"reason", reason)
	})
	matrixBuilds.WithLabelValues(input.source()).Inc()
	return m
}

func (in Input) source() string {
	switch in.kind {
	case inputRole:
		return "role"
	case inputRecords:
		return "records"
	default:
		return "none"
	}
}
