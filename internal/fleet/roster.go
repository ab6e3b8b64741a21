package fleet

// DefaultRoster returns the stock six-device deployment around the
// Nairobi plains. Used when no roster is configured.
func DefaultRoster() []AgentConfig {
	return []AgentConfig{
		{
			ID:            "GPS_COLLAR_001",
			DeviceType:    DeviceGPSCollar,
			Anchor:        Location{Lat: -1.3730, Lng: 36.8520}, // Central Plains
			RoamingRadius: 0.03,
			Behavior:      BehaviorPredator,
		},
		{
			ID:            "GPS_COLLAR_002",
			DeviceType:    DeviceGPSCollar,
			Anchor:        Location{Lat: -1.4150, Lng: 36.9120}, // Near Athi Basin
			RoamingRadius: 0.04,
			Behavior:      BehaviorGrazer,
		},
		{
			ID:            "CAMERA_TRAP_001",
			DeviceType:    DeviceCameraTrap,
			Anchor:        Location{Lat: -1.3550, Lng: 36.7650}, // Forest edge (West)
			RoamingRadius: 0.001,
			Behavior:      BehaviorNone,
		},
		{
			ID:            "MOTION_SENSOR_001",
			DeviceType:    DeviceMotionSensor,
			Anchor:        Location{Lat: -1.3900, Lng: 36.8300}, // Hippo pool
			RoamingRadius: 0.002,
			Behavior:      BehaviorNone,
		},
		{
			ID:            "WEATHER_STATION_001",
			DeviceType:    DeviceWeatherStation,
			Anchor:        Location{Lat: -1.3350, Lng: 36.8650}, // East Gate
			RoamingRadius: 0,
			Behavior:      BehaviorNone,
		},
		{
			ID:            "GPS_COLLAR_003",
			DeviceType:    DeviceGPSCollar,
			Anchor:        Location{Lat: -1.4450, Lng: 36.8850}, // Southern border
			RoamingRadius: 0.05,
			Behavior:      BehaviorHerd,
		},
	}
}

// Centroid returns the mean anchor of the roster.
func Centroid(roster []AgentConfig) Location {
	if len(roster) == 0 {
		return Location{}
	}
	var c Location
	for _, a := range roster {
		c.Lat += a.Anchor.Lat
		c.Lng += a.Anchor.Lng
	}
	n := float64(len(roster))
	return Location{Lat: c.Lat / n, Lng: c.Lng / n}
}
