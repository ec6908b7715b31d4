package file

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/station-data-impute/internal/domain"
)

// Catalog loads the station metadata document: category groups, each holding
// station items with coordinates, altitude, and an optional end date.
type Catalog struct {
	path string
}

func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

type catalogDocument struct {
	Data []struct {
		Item []catalogItem `json:"item"`
	} `json:"data"`
}

type catalogItem struct {
	StationID string   `json:"stationID"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Altitude  *float64 `json:"altitude"`
	EndDate   string   `json:"endDate"`
}

// LoadCatalog returns metadata for every active station in the document.
// Entries carrying an end date are retired and excluded.
func (c *Catalog) LoadCatalog(_ context.Context) (map[string]domain.StationMetadata, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read station catalog: %w", err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse station catalog: %w", err)
	}

	catalog := make(map[string]domain.StationMetadata)
	for _, group := range doc.Data {
		for _, item := range group.Item {
			if item.StationID == "" || item.EndDate != "" {
				continue
			}
			catalog[item.StationID] = domain.StationMetadata{
				StationID: item.StationID,
				Longitude: floatOrNaN(item.Longitude),
				Latitude:  floatOrNaN(item.Latitude),
				Altitude:  floatOrNaN(item.Altitude),
			}
		}
	}
	return catalog, nil
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
