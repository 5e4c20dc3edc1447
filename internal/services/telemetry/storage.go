package telemetry

import (
	"fmt"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
)

// System columns present in every physical dataset table.
const (
	SystemColumnID        = "id"
	SystemColumnDevice    = "device"
	SystemColumnCreatedAt = "created_at"
)

// MaxPageLimit is the hard upper bound for paginated dataset reads.
const MaxPageLimit = 1000

// PhysicalTableName derives the physical table identifier for a dataset.
// The identifier is built only from the trusted surrogate id recorded in the
// dataset registry; caller-supplied strings never reach it.
func PhysicalTableName(datasetID uint) string {
	return fmt.Sprintf("datatable_%d", datasetID)
}

// columnSet is the allow-list of column names registered for one dataset.
// Any column name interpolated into a telemetry query must pass through it.
type columnSet map[string]models.Column

func newColumnSet(columns []models.Column) columnSet {
	set := make(columnSet, len(columns))
	for _, c := range columns {
		set[c.Name] = c
	}
	return set
}

// contains reports whether the name is a registered column of the dataset
func (s columnSet) contains(name string) bool {
	_, ok := s[name]
	return ok
}
