package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/urbancanopy/canopy-cli/internal/layer"
	"github.com/urbancanopy/canopy-cli/internal/spots"
)

// Summary is the JSON report for one analysis run.
type Summary struct {
	Location struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Center      Coordinates `json:"center_coordinates"`
	} `json:"location"`

	Metadata struct {
		RunID       string  `json:"run_id"`
		Timestamp   string  `json:"timestamp"`
		TotalAreaM2 float64 `json:"total_area_m2"`
		WidthPx     int     `json:"width_px"`
		HeightPx    int     `json:"height_px"`
	} `json:"analysis_metadata"`

	LandCoverage struct {
		Buildings  Coverage `json:"buildings"`
		Vegetation Coverage `json:"existing_vegetation"`
		Shadows    Coverage `json:"shadows"`
		Plantable  Coverage `json:"plantable_area"`
	} `json:"land_coverage"`

	PriorityDistribution struct {
		Critical PriorityBand `json:"critical"`
		High     PriorityBand `json:"high"`
		Medium   PriorityBand `json:"medium"`
		Low      PriorityBand `json:"low"`
	} `json:"priority_distribution"`

	StreetNetwork struct {
		Total      int `json:"total_streets"`
		Pedestrian int `json:"pedestrian_streets"`
		Low        int `json:"low_traffic_streets"`
		Medium     int `json:"medium_traffic_streets"`
		High       int `json:"high_traffic_streets"`
	} `json:"street_network"`

	Amenities struct {
		TotalCount int `json:"total_count"`
	} `json:"amenities"`

	CriticalSpots []SpotSummary `json:"critical_priority_spots"`

	Recommendations map[string]string `json:"recommendations"`
}

// Coordinates is a lat/lon pair in the report.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Coverage is one land-coverage entry.
type Coverage struct {
	AreaM2     float64 `json:"area_m2"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count,omitempty"`
}

// PriorityBand is one priority-class entry.
type PriorityBand struct {
	ScoreRange            string  `json:"score_range"`
	AreaM2                float64 `json:"area_m2"`
	PercentageOfPlantable float64 `json:"percentage_of_plantable"`
	SpotsCount            int     `json:"spots_count,omitempty"`
}

// SpotSummary is one ranked critical spot with map links.
type SpotSummary struct {
	SpotID        int         `json:"spot_id"`
	Coordinates   Coordinates `json:"coordinates"`
	PriorityScore float64     `json:"priority_score"`
	AreaM2        float64     `json:"area_m2"`
	AreaPixels    int         `json:"area_pixels"`
	StreetViewURL string      `json:"google_street_view_url"`
	MapsURL       string      `json:"google_maps_url"`
}

// Summarize builds the report from a completed analysis.
func Summarize(a *Analysis) *Summary {
	pxM2 := a.Grid.PixelAreaM2()
	totalPx := a.Grid.Width * a.Grid.Height
	plantablePx := a.Plantable.Count()

	s := &Summary{}
	s.Location.Name = a.Location.Name
	s.Location.Description = a.Location.Description
	s.Location.Center = Coordinates{Latitude: a.Location.Lat, Longitude: a.Location.Lon}

	s.Metadata.RunID = a.RunID
	s.Metadata.Timestamp = a.CreatedAt.Format(time.RFC3339)
	s.Metadata.TotalAreaM2 = round1(float64(totalPx) * pxM2)
	s.Metadata.WidthPx = a.Grid.Width
	s.Metadata.HeightPx = a.Grid.Height

	s.LandCoverage.Buildings = coverage(a.BuildingMask.Count(), totalPx, pxM2)
	s.LandCoverage.Buildings.Count = a.BuildingCount
	s.LandCoverage.Vegetation = coverage(a.Detection.Vegetation.Count(), totalPx, pxM2)
	s.LandCoverage.Shadows = coverage(a.Detection.Shadow.Count(), totalPx, pxM2)
	s.LandCoverage.Plantable = coverage(plantablePx, totalPx, pxM2)

	s.PriorityDistribution.Critical = band("80-100", a.Score.Critical.Count(), plantablePx, pxM2)
	s.PriorityDistribution.Critical.SpotsCount = len(a.Spots)
	s.PriorityDistribution.High = band("60-80", a.Score.High.Count(), plantablePx, pxM2)
	s.PriorityDistribution.Medium = band("40-60", a.Score.Medium.Count(), plantablePx, pxM2)
	s.PriorityDistribution.Low = band("0-40", a.Score.Low.Count(), plantablePx, pxM2)

	s.StreetNetwork.Total = a.Streets.Len()
	s.StreetNetwork.Pedestrian = a.Streets.ByTier(layer.TierPedestrian).Len()
	s.StreetNetwork.Low = a.Streets.ByTier(layer.TierLow).Len()
	s.StreetNetwork.Medium = a.Streets.ByTier(layer.TierMedium).Len()
	s.StreetNetwork.High = a.Streets.ByTier(layer.TierHigh).Len()

	s.Amenities.TotalCount = a.AmenityCount

	s.CriticalSpots = make([]SpotSummary, 0, len(a.Spots))
	for _, sp := range a.Spots {
		s.CriticalSpots = append(s.CriticalSpots, spotSummary(sp))
	}

	s.Recommendations = map[string]string{
		"immediate_action":   "Focus on critical priority spots (80-100 score) for immediate tree planting",
		"secondary_targets":  "High priority areas (60-80) are excellent for phase 2",
		"long_term_planning": "Medium priority areas (40-60) for long-term urban greening",
		"note":               "Low priority areas (0-40) have minimal cooling/environmental impact",
	}

	return s
}

func spotSummary(sp spots.Spot) SpotSummary {
	return SpotSummary{
		SpotID:        sp.ID,
		Coordinates:   Coordinates{Latitude: sp.Lat, Longitude: sp.Lon},
		PriorityScore: round1(sp.MeanScore),
		AreaM2:        round1(sp.AreaM2),
		AreaPixels:    sp.SizePx,
		StreetViewURL: fmt.Sprintf("https://www.google.com/maps/@?api=1&map_action=pano&viewpoint=%f,%f", sp.Lat, sp.Lon),
		MapsURL:       fmt.Sprintf("https://www.google.com/maps?q=%f,%f", sp.Lat, sp.Lon),
	}
}

func coverage(px, totalPx int, pxM2 float64) Coverage {
	return Coverage{
		AreaM2:     round1(float64(px) * pxM2),
		Percentage: round1(pctOf(px, totalPx)),
	}
}

func band(scoreRange string, px, plantablePx int, pxM2 float64) PriorityBand {
	return PriorityBand{
		ScoreRange:            scoreRange,
		AreaM2:                round1(float64(px) * pxM2),
		PercentageOfPlantable: round1(pctOf(px, plantablePx)),
	}
}

func pctOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
