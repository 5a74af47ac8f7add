// Package farm holds the registry of known olive groves and the per-farm
// reports derived from it.
package farm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

// ErrNotFound is returned when a farm ID is not in the registry.
var ErrNotFound = errors.New("farm not found")

// Location is a farm's position and nearest city.
type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	City string  `json:"city"`
}

// Farm is one registered grove.
type Farm struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Owner            string   `json:"owner"`
	Location         Location `json:"location"`
	SizeHectares     float64  `json:"size_hectares"`
	TreeCount        int      `json:"tree_count"`
	TreeAgeYears     int      `json:"tree_age_years"`
	IrrigationSystem string   `json:"irrigation_system"`
	SoilType         string   `json:"soil_type"`
	LastIrrigation   string   `json:"last_irrigation"`
	NDVIScore        float64  `json:"ndvi_score"`
}

// Plot returns the farm's irrigated geometry.
func (f Farm) Plot() domain.PlotGeometry {
	return domain.PlotGeometry{AreaHectares: f.SizeHectares, PlantCount: f.TreeCount}
}

// Registry is a read-only lookup table of farms. It is safe for concurrent
// use once constructed.
type Registry struct {
	farms map[string]Farm
}

// NewRegistry indexes farms by ID. Duplicate IDs are rejected.
func NewRegistry(farms []Farm) (*Registry, error) {
	idx := make(map[string]Farm, len(farms))
	for _, f := range farms {
		if f.ID == "" {
			return nil, errors.New("farm with empty id")
		}
		if _, dup := idx[f.ID]; dup {
			return nil, fmt.Errorf("duplicate farm id %q", f.ID)
		}
		idx[f.ID] = f
	}
	return &Registry{farms: idx}, nil
}

// Get looks up a farm by ID.
func (r *Registry) Get(id string) (Farm, error) {
	f, ok := r.farms[id]
	if !ok {
		return Farm{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, nil
}

// List returns all farms sorted by ID.
func (r *Registry) List() []Farm {
	out := make([]Farm, 0, len(r.farms))
	for _, f := range r.farms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of registered farms.
func (r *Registry) Len() int {
	return len(r.farms)
}

// DemoFarms returns the three demonstration groves in the Sahel region.
func DemoFarms() []Farm {
	return []Farm{
		{
			ID:               "farm_001",
			Name:             "Ahmed's Olive Grove",
			Owner:            "Ahmed Ben Salem",
			Location:         Location{Lat: 35.8256, Lon: 10.6369, City: "Sousse"},
			SizeHectares:     2.0,
			TreeCount:        400,
			TreeAgeYears:     15,
			IrrigationSystem: "drip",
			SoilType:         "clay-loam",
			LastIrrigation:   "2025-10-20",
			NDVIScore:        0.45,
		},
		{
			ID:               "farm_002",
			Name:             "Fatima's Olive Grove",
			Owner:            "Fatima Trabelsi",
			Location:         Location{Lat: 35.7753, Lon: 10.8256, City: "Monastir"},
			SizeHectares:     5.0,
			TreeCount:        1000,
			TreeAgeYears:     20,
			IrrigationSystem: "drip",
			SoilType:         "sandy-loam",
			LastIrrigation:   "2025-10-22",
			NDVIScore:        0.72,
		},
		{
			ID:               "farm_003",
			Name:             "Karim's Olive Grove",
			Owner:            "Karim Mansouri",
			Location:         Location{Lat: 35.5047, Lon: 11.0586, City: "Mahdia"},
			SizeHectares:     3.0,
			TreeCount:        600,
			TreeAgeYears:     12,
			IrrigationSystem: "sprinkler",
			SoilType:         "loam",
			LastIrrigation:   "2025-10-18",
			NDVIScore:        0.38,
		},
	}
}

// NewDemoRegistry returns a registry populated with DemoFarms.
func NewDemoRegistry() *Registry {
	r, err := NewRegistry(DemoFarms())
	if err != nil {
		panic(err) // static table
	}
	return r
}
