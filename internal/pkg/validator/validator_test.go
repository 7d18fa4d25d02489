package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	ResourceID   int64  `json:"resource_id" validate:"required,gt=0"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	DurationType string `json:"duration_type" validate:"required,duration_type"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{ResourceID: 1, StartDate: "2024-01-10", DurationType: "Monthly"}))

	errs := Validate(sample{StartDate: "10/01/2024", DurationType: "yearly"})
	assert.Equal(t, map[string]string{
		"resource_id":   "required",
		"start_date":    "datetime",
		"duration_type": "duration_type",
	}, errs)
}
