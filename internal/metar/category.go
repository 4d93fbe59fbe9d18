package metar

// FlightCategory is one of the four flight-condition categories, ordered by
// severity: VFR is the least restrictive, LIFR the most. The declaration
// order is the total order, so "more restrictive" is a plain > comparison.
type FlightCategory int

const (
	VFR FlightCategory = iota
	MVFR
	IFR
	LIFR
)

// Categories lists all flight categories from least to most restrictive.
var Categories = [...]FlightCategory{VFR, MVFR, IFR, LIFR}

func (c FlightCategory) String() string {
	switch c {
	case VFR:
		return "VFR"
	case MVFR:
		return "MVFR"
	case IFR:
		return "IFR"
	case LIFR:
		return "LIFR"
	}
	return "UNKNOWN"
}

// CategoryByCeiling maps a ceiling (feet AGL) to a flight category.
// Thresholds: VFR >= 3000, MVFR [1000,3000), IFR [500,1000), LIFR < 500.
func CategoryByCeiling(ceilingFt int) FlightCategory {
	switch {
	case ceilingFt >= 3000:
		return VFR
	case ceilingFt >= 1000:
		return MVFR
	case ceilingFt >= 500:
		return IFR
	}
	return LIFR
}

// CategoryByVisibility maps a visibility (statute miles) to a flight category.
// Thresholds: VFR >= 5, MVFR [3,5), IFR [1,3), LIFR < 1.
func CategoryByVisibility(visSM float64) FlightCategory {
	switch {
	case visSM >= 5:
		return VFR
	case visSM >= 3:
		return MVFR
	case visSM >= 1:
		return IFR
	}
	return LIFR
}

// worse returns the more restrictive of two categories.
func worse(a, b FlightCategory) FlightCategory {
	if b > a {
		return b
	}
	return a
}

// Classify derives the flight category for an observation. Ceiling and
// visibility are evaluated independently and the more restrictive result
// controls.
func Classify(obs Observation) FlightCategory {
	return worse(CategoryByCeiling(obs.CeilingFt), CategoryByVisibility(obs.VisibilitySM))
}
