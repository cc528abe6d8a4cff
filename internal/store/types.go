package store

import (
	"time"

	"parking-share-backend/internal/model"
)

// SpotFilter narrows a search over bookable spots. Zero values match all.
type SpotFilter struct {
	Type       model.SpotType
	Size       model.SpotSize
	BuildingID string
	// When both are set, spots holding a confirmed or active booking that
	// overlaps [Start, End) are excluded.
	Start *time.Time
	End   *time.Time
}
