package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// VehicleIDs is the set of vehicle ids a part fits. It is kept sorted and
// free of duplicates; at the sql boundary it is stored as a JSON array.
type VehicleIDs []uint

// NewVehicleIDs builds a normalized set from ids
func NewVehicleIDs(ids ...uint) VehicleIDs {
	return VehicleIDs(ids).Normalize()
}

// Normalize returns a sorted copy without duplicates
func (v VehicleIDs) Normalize() VehicleIDs {
	if len(v) == 0 {
		return VehicleIDs{}
	}
	out := make(VehicleIDs, 0, len(v))
	seen := make(map[uint]bool, len(v))
	for _, id := range v {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (v VehicleIDs) Contains(id uint) bool {
	for _, x := range v {
		if x == id {
			return true
		}
	}
	return false
}

// GormDataType keeps the column a plain text column on every dialect
func (VehicleIDs) GormDataType() string { return "text" }

func (v VehicleIDs) Value() (driver.Value, error) {
	b, err := json.Marshal(v.Normalize())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *VehicleIDs) Scan(src any) error {
	var raw []byte
	switch s := src.(type) {
	case nil:
		*v = VehicleIDs{}
		return nil
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		return fmt.Errorf("vehicle ids: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*v = VehicleIDs{}
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("vehicle ids: %w", err)
	}
	*v = VehicleIDs(ids).Normalize()
	return nil
}
