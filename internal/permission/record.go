package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RawRecord is a permission grant as read from storage. It is either a LegacyRecord or a DataRecord.
type RawRecord interface {
	rawRecord()
}

type PlantUnitRef struct {
	Category string `json:"category" validate:"required"`
	Unit     string `json:"unit" validate:"required"`
}

// LegacyRecord is a single permissions row joined through user_permissions.
// PlantUnits is nil when the stored column is null.
type LegacyRecord struct {
	ModuleName string
	Level      Level
	PlantUnits []PlantUnitRef
}

func (LegacyRecord) rawRecord() {}

// DataRecord carries a permissions_data JSON document verbatim. It is parsed during the build so a
// malformed document only drops its own record.
type DataRecord struct {
	Raw string
}

func (DataRecord) rawRecord() {}

// StoredRecord mirrors the columns the repository reads for one grant.
type StoredRecord struct {
	PermissionsData *string
	ModuleName      string `validate:"required"`
	PermissionLevel string `validate:"required"`
	PlantUnits      []byte
}

var (
	ErrInvalidRecord = errors.New("invalid permission record")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// DecodeRecord converts a stored row into its typed variant. Rows carrying permissions_data always decode
// to a DataRecord, even when the document itself is malformed.
func DecodeRecord(row StoredRecord) (RawRecord, error) {
	if row.PermissionsData != nil && strings.TrimSpace(*row.PermissionsData) != "" {
		return DataRecord{Raw: *row.PermissionsData}, nil
	}

	if err := validate.Struct(row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	level, ok := ParseLevel(row.PermissionLevel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown permission level %q", ErrInvalidRecord, row.PermissionLevel)
	}

	rec := LegacyRecord{
		ModuleName: strings.TrimSpace(row.ModuleName),
		Level:      level,
	}

	units := strings.TrimSpace(string(row.PlantUnits))
	if units == "" || units == "null" {
		return rec, nil
	}

	var refs []PlantUnitRef
	if err := json.Unmarshal([]byte(units), &refs); err != nil {
		return nil, fmt.Errorf("%w: plant_units: %v", ErrInvalidRecord, err)
	}
	for _, ref := range refs {
		if err := validate.Struct(ref); err != nil {
			return nil, fmt.Errorf("%w: plant_units: %v", ErrInvalidRecord, err)
		}
	}
	rec.PlantUnits = refs
	return rec, nil
}

// EncodeMatrix renders a matrix as a permissions_data document.
func EncodeMatrix(m Matrix) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
