package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// AdvancePolicy controls partial up-front payment for a container.
type AdvancePolicy struct {
	Enabled                 bool          `json:"enabled" gorm:"not null;default:false"`
	UseFlatAmount           bool          `json:"use_flat_amount" gorm:"not null;default:false"`
	FlatAmount              float64       `json:"flat_amount" gorm:"not null;default:0"`
	Percentage              float64       `json:"percentage" gorm:"not null;default:0"`
	ApplicableDurationTypes DurationTypes `json:"applicable_duration_types" gorm:"type:varchar(64)"`
	ValidityDays            int           `json:"validity_days" gorm:"not null;default:0"`
	AutoCancelOnMiss        bool          `json:"auto_cancel_on_miss" gorm:"not null;default:false"`
}

// AppliesTo reports whether a booking of the given type may pay in advance.
func (p AdvancePolicy) AppliesTo(d DurationType) bool {
	return p.Enabled && p.ApplicableDurationTypes.Contains(d)
}

func (s DurationTypes) Value() (driver.Value, error) {
	parts := make([]string, 0, len(s))
	for _, d := range s {
		parts = append(parts, string(d))
	}
	return strings.Join(parts, ","), nil
}

func (s *DurationTypes) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported duration types value %T", src)
	}

	out := DurationTypes{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		d, err := ParseDurationType(part)
		if err != nil {
			return err
		}
		out = append(out, d)
	}
	*s = out
	return nil
}
