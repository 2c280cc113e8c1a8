package nespreso

// CommonBBoxRegions returns commonly used bounding boxes for the Gulf of
// Mexico, keyed by region name. The returned map is a fresh copy on every
// call, so callers may modify it freely.
func CommonBBoxRegions() map[string]BoundingBox {
	return map[string]BoundingBox{
		"full_gulf":       {LonMin: -97.0, LatMin: 18.0, LonMax: -82.0, LatMax: 31.0},
		"western_gulf":    {LonMin: -97.0, LatMin: 20.0, LonMax: -90.0, LatMax: 29.0},
		"eastern_gulf":    {LonMin: -90.0, LatMin: 20.0, LonMax: -82.0, LatMax: 29.0},
		"northern_gulf":   {LonMin: -97.0, LatMin: 25.0, LonMax: -82.0, LatMax: 29.0},
		"southern_gulf":   {LonMin: -97.0, LatMin: 18.0, LonMax: -82.0, LatMax: 25.0},
		"florida_straits": {LonMin: -82.0, LatMin: 24.0, LonMax: -79.0, LatMax: 26.0},
		"yucatan_channel": {LonMin: -87.0, LatMin: 20.0, LonMax: -84.0, LatMax: 22.0},
	}
}
