package generator

// Settings controls a generation run.
type Settings struct {
	Size int   // Map edge length in tiles
	Seed int64 // Random stream seed; the same seed and template give the same map

	PlacementIterations int     // Force-directed rounds
	Gravity             float64 // Attraction constant between connected zones
	Stiffness           float64 // Repulsion constant between overlapping zones and edges
	SeedRadius          float64 // Radius of the circle zones are scattered on

	TightenIterations int // Cellular smoothing rounds
	Fractalize        bool
	FreePathSpacing   int // Minimum tile distance between free-path seeds

	Obstacles         bool    // Seed provisional obstacles from noise
	ObstacleThreshold float64 // Noise level above which a tile is marked pending
	Paint             bool    // Paint terrain and ground after roads
}

// DefaultSettings returns settings for a 72x72 map.
func DefaultSettings() Settings {
	return Settings{
		Size:                72,
		PlacementIterations: 100,
		Gravity:             4e-3,
		Stiffness:           4e-3,
		SeedRadius:          0.4,
		TightenIterations:   3,
		Fractalize:          true,
		FreePathSpacing:     8,
		Obstacles:           true,
		ObstacleThreshold:   0.62,
		Paint:               true,
	}
}
