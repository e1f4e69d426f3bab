package denm

import "fmt"

// Enumerated types from the ETSI ITS common data dictionary. Only the
// enumerants the DENM containers reference are named here; the JSON
// projection uses the ASN.1 enumerant names verbatim.

// RelevanceDistance is the geographic band an event applies to.
type RelevanceDistance uint8

const (
	RelevanceLessThan50m RelevanceDistance = iota
	RelevanceLessThan100m
	RelevanceLessThan200m
	RelevanceLessThan500m
	RelevanceLessThan1000m
	RelevanceLessThan5km
	RelevanceLessThan10km
	RelevanceOver10km
)

var relevanceDistanceNames = map[RelevanceDistance]string{
	RelevanceLessThan50m:   "lessThan50m",
	RelevanceLessThan100m:  "lessThan100m",
	RelevanceLessThan200m:  "lessThan200m",
	RelevanceLessThan500m:  "lessThan500m",
	RelevanceLessThan1000m: "lessThan1000m",
	RelevanceLessThan5km:   "lessThan5km",
	RelevanceLessThan10km:  "lessThan10km",
	RelevanceOver10km:      "over10km",
}

func (d RelevanceDistance) String() string {
	if s, ok := relevanceDistanceNames[d]; ok {
		return s
	}
	return fmt.Sprintf("relevanceDistance(%d)", uint8(d))
}

// ParseRelevanceDistance maps an enumerant name back to its value.
func ParseRelevanceDistance(s string) (RelevanceDistance, error) {
	for v, name := range relevanceDistanceNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: relevanceDistance %q", ErrInvalidField, s)
}

// RelevanceTrafficDirection is the directional scope of an event.
type RelevanceTrafficDirection uint8

const (
	TrafficAllDirections RelevanceTrafficDirection = iota
	TrafficUpstream
	TrafficDownstream
	TrafficOpposite
)

var trafficDirectionNames = map[RelevanceTrafficDirection]string{
	TrafficAllDirections: "allTrafficDirections",
	TrafficUpstream:      "upstreamTraffic",
	TrafficDownstream:    "downstreamTraffic",
	TrafficOpposite:      "oppositeTraffic",
}

func (d RelevanceTrafficDirection) String() string {
	if s, ok := trafficDirectionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("relevanceTrafficDirection(%d)", uint8(d))
}

// ParseRelevanceTrafficDirection maps an enumerant name back to its value.
func ParseRelevanceTrafficDirection(s string) (RelevanceTrafficDirection, error) {
	for v, name := range trafficDirectionNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: relevanceTrafficDirection %q", ErrInvalidField, s)
}

// AltitudeConfidence is the absolute accuracy band of a reported altitude.
type AltitudeConfidence uint8

const (
	AltConf000_01 AltitudeConfidence = iota // within 0.01 m
	AltConf000_02
	AltConf000_05
	AltConf000_10
	AltConf000_20
	AltConf000_50
	AltConf001_00
	AltConf002_00
	AltConf005_00
	AltConf010_00
	AltConf020_00
	AltConf050_00
	AltConf100_00
	AltConf200_00
	AltConfOutOfRange
	AltConfUnavailable
)

var altitudeConfidenceNames = map[AltitudeConfidence]string{
	AltConf000_01:      "alt-000-01",
	AltConf000_02:      "alt-000-02",
	AltConf000_05:      "alt-000-05",
	AltConf000_10:      "alt-000-10",
	AltConf000_20:      "alt-000-20",
	AltConf000_50:      "alt-000-50",
	AltConf001_00:      "alt-001-00",
	AltConf002_00:      "alt-002-00",
	AltConf005_00:      "alt-005-00",
	AltConf010_00:      "alt-010-00",
	AltConf020_00:      "alt-020-00",
	AltConf050_00:      "alt-050-00",
	AltConf100_00:      "alt-100-00",
	AltConf200_00:      "alt-200-00",
	AltConfOutOfRange:  "outOfRange",
	AltConfUnavailable: "unavailable",
}

func (c AltitudeConfidence) String() string {
	if s, ok := altitudeConfidenceNames[c]; ok {
		return s
	}
	return fmt.Sprintf("altitudeConfidence(%d)", uint8(c))
}

// ParseAltitudeConfidence maps an enumerant name back to its value.
func ParseAltitudeConfidence(s string) (AltitudeConfidence, error) {
	for v, name := range altitudeConfidenceNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: altitudeConfidence %q", ErrInvalidField, s)
}

// Termination distinguishes cancellation (by the originator) from negation
// (by another station).
type Termination uint8

const (
	TerminationIsCancellation Termination = iota
	TerminationIsNegation
)

func (t Termination) String() string {
	if t == TerminationIsNegation {
		return "isNegation"
	}
	return "isCancellation"
}

// ParseTermination maps an enumerant name back to its value.
func ParseTermination(s string) (Termination, error) {
	switch s {
	case "isCancellation":
		return TerminationIsCancellation, nil
	case "isNegation":
		return TerminationIsNegation, nil
	default:
		return 0, fmt.Errorf("%w: termination %q", ErrInvalidField, s)
	}
}

// Cause codes referenced by the gateway and its tests. The full table lives
// in the CDD; any 0..255 value is accepted on the wire.
const (
	CauseTrafficCondition  uint8 = 1
	CauseAccident          uint8 = 2
	CauseRoadworks         uint8 = 3
	CauseAdverseWeather    uint8 = 6
	CauseHazardousLocation uint8 = 9
)

// Station types referenced by the gateway and its tests.
const (
	StationTypeUnknown      uint8 = 0
	StationTypePedestrian   uint8 = 1
	StationTypeCyclist      uint8 = 2
	StationTypeMoped        uint8 = 3
	StationTypeMotorcycle   uint8 = 4
	StationTypePassengerCar uint8 = 5
	StationTypeRoadSideUnit uint8 = 15
)
