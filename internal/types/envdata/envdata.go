package envdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DataPoint is a self-reported environmental metric. Append-only.
type DataPoint struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"userId" db:"user_id"`
	DataType   string    `json:"dataType" db:"data_type"`
	Value      float64   `json:"value" db:"value"`
	Unit       string    `json:"unit" db:"unit"`
	RecordedAt time.Time `json:"recordedAt" db:"recorded_at"`
}

type RecordDataPointRequest struct {
	DataType string  `json:"dataType"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
}

func (r *RecordDataPointRequest) Validate() error {
	if strings.TrimSpace(r.DataType) == "" {
		return fmt.Errorf("dataType is required")
	}
	if strings.TrimSpace(r.Unit) == "" {
		return fmt.Errorf("unit is required")
	}
	if r.Value < 0 {
		return fmt.Errorf("value must be non-negative")
	}
	return nil
}
