package gate

// Height returns the subject height for a reading: sensor offset minus
// measured distance. The value is meaningless when r.Echo is false.
func Height(cfg HeightConfig, r Reading) int {
	return cfg.OffsetCM - r.DistanceCM
}

// Classify maps a reading to exactly one Class.
func Classify(cfg HeightConfig, r Reading) Class {
	if !r.Echo {
		return NoSubject
	}

	h := Height(cfg, r)
	switch {
	case h <= 0 || h >= cfg.MaxRangeCM:
		return NoSubject
	case h < cfg.MinHeightCM:
		return TooShort
	case h > cfg.MinHeightCM:
		return InRange
	default:
		return AtThreshold
	}
}
