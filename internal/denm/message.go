package denm

import (
	"fmt"
	"time"
)

// UTC2004 is the ITS epoch (2004-01-01T00:00:00Z) in unix seconds. DENM
// timestamps count milliseconds from this instant.
const UTC2004 int64 = 1072915200

// MessageIDDenm is the ItsPduHeader messageID marker for DENM.
const MessageIDDenm = 1

// ASN.1 constraint bounds for the fields the gateway carries. Scaled units:
// coordinates in 1e-7 degrees, altitude in centimeters, speed in 0.01 m/s,
// heading in 0.1 degrees.
const (
	latitudeMin  = -900000000
	latitudeMax  = 900000001 // 900000001 = unavailable
	longitudeMin = -1800000000
	longitudeMax = 1800000001
	altitudeMin  = -100000
	altitudeMax  = 800001

	timestampMax = 4398046511103 // 2^42 - 1 ms since the ITS epoch

	semiAxisMax     = 4095 // 4095 = unavailable
	headingValueMax = 3601 // 3601 = unavailable
	speedValueMax   = 16383
	confidenceMin   = 1
	confidenceMax   = 100 // protocol allows 127; the gateway clamps to 100

	validityDurationMax     = 86400
	transmissionIntervalMin = 1
	transmissionIntervalMax = 10000

	infoQualityMax = 7
	tracesMax      = 7
)

// Default values applied by the builder.
const (
	DefaultProtocolVersion      = 2
	DefaultValidityDuration     = 600  // seconds
	DefaultTransmissionInterval = 1000 // milliseconds
	DefaultInformationQuality   = 1
	DefaultConfidence           = 95
)

// ItsTime is a DENM timestamp: milliseconds since the ITS epoch.
type ItsTime int64

// ItsTimeFrom converts a wall-clock time. Times before the ITS epoch are
// rejected.
func ItsTimeFrom(t time.Time) (ItsTime, error) {
	if t.Unix() < UTC2004 {
		return 0, fmt.Errorf("%w: %s", ErrTimestampBeforeEpoch, t.UTC().Format(time.RFC3339))
	}
	return ItsTime(t.UnixMilli() - UTC2004*1000), nil
}

// Time converts back to wall-clock UTC.
func (ts ItsTime) Time() time.Time {
	return time.UnixMilli(UTC2004*1000 + int64(ts)).UTC()
}

// FormatTimestamp renders an ITS timestamp as "YYYY-MM-DD HH:MM:SS UTC".
// Values outside the 30-year ITS range are rejected.
func FormatTimestamp(ts ItsTime) (string, error) {
	if ts < 0 || int64(ts) > 946080000000 {
		return "", fmt.Errorf("%w: ITS timestamp %d", ErrInvalidField, int64(ts))
	}
	return ts.Time().Format("2006-01-02 15:04:05") + " UTC", nil
}

// ParseTimestamp parses the JSON projection timestamp format. Resolution is
// one second; sub-second precision is not representable.
func ParseTimestamp(s string) (ItsTime, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05 UTC", s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q", ErrInvalidField, s)
	}
	return ItsTimeFrom(t)
}

// ActionID uniquely identifies a DENM event.
type ActionID struct {
	OriginatingStationID uint32
	SequenceNumber       uint16
}

// Position is the DENM event position in scaled units.
type Position struct {
	Latitude  int32 // 1e-7 degrees
	Longitude int32 // 1e-7 degrees

	// position confidence ellipse; 4095/3601 = unavailable
	SemiMajorConfidence  uint16
	SemiMinorConfidence  uint16
	SemiMajorOrientation uint16

	AltitudeValue      int32 // centimeters
	AltitudeConfidence AltitudeConfidence
}

// Header is the ItsPduHeader.
type Header struct {
	ProtocolVersion uint8
	MessageID       uint8
	StationID       uint32
}

// Management is the DENM management container. Pointer fields are the
// schema's OPTIONAL members.
type Management struct {
	ActionID      ActionID
	DetectionTime ItsTime
	ReferenceTime ItsTime
	Termination   *Termination
	EventPosition Position

	RelevanceDistance         *RelevanceDistance
	RelevanceTrafficDirection *RelevanceTrafficDirection
	ValidityDuration          *int32 // seconds, 0..86400
	TransmissionInterval      *int32 // milliseconds, 1..10000

	StationType uint8
}

// Situation is the optional DENM situation container.
type Situation struct {
	InformationQuality uint8
	CauseCode          uint8
	SubCauseCode       uint8
}

// Speed is an event speed with confidence, in 0.01 m/s.
type Speed struct {
	Value      uint16 // 0..16383
	Confidence uint8  // 1..100
}

// Heading is an event heading with confidence, in 0.1 degrees.
type Heading struct {
	Value      uint16 // 0..3601
	Confidence uint8  // 1..100
}

// Location is the optional DENM location container. Traces is structurally
// mandatory in the schema and may be empty; the gateway never populates
// path points, but the count survives a round trip.
type Location struct {
	EventSpeed   *Speed
	EventHeading *Heading
	TraceCount   uint8 // SIZE(0..7); entries themselves are not carried
}

// Message is a complete in-memory DENM value. Build one with Builder; a
// zero Message is not valid for encoding.
type Message struct {
	Header     Header
	Management Management
	Situation  *Situation
	Location   *Location
}

// validate enforces every constraint from the schema subset before encoding.
func (m *Message) validate() error {
	if m.Header.MessageID != MessageIDDenm {
		return fmt.Errorf("%w: messageID %d", ErrInvalidField, m.Header.MessageID)
	}

	mgmt := &m.Management
	if mgmt.DetectionTime < 0 || int64(mgmt.DetectionTime) > timestampMax {
		return fmt.Errorf("%w: detectionTime %d", ErrInvalidField, mgmt.DetectionTime)
	}
	if mgmt.ReferenceTime < 0 || int64(mgmt.ReferenceTime) > timestampMax {
		return fmt.Errorf("%w: referenceTime %d", ErrInvalidField, mgmt.ReferenceTime)
	}

	pos := &mgmt.EventPosition
	if pos.Latitude < latitudeMin || pos.Latitude > latitudeMax {
		return fmt.Errorf("%w: latitude %d", ErrInvalidField, pos.Latitude)
	}
	if pos.Longitude < longitudeMin || pos.Longitude > longitudeMax {
		return fmt.Errorf("%w: longitude %d", ErrInvalidField, pos.Longitude)
	}
	if pos.AltitudeValue < altitudeMin || pos.AltitudeValue > altitudeMax {
		return fmt.Errorf("%w: altitude %d", ErrInvalidField, pos.AltitudeValue)
	}
	if pos.SemiMajorConfidence > semiAxisMax || pos.SemiMinorConfidence > semiAxisMax {
		return fmt.Errorf("%w: position confidence ellipse", ErrInvalidField)
	}
	if pos.SemiMajorOrientation > headingValueMax {
		return fmt.Errorf("%w: semiMajorOrientation %d", ErrInvalidField, pos.SemiMajorOrientation)
	}
	if pos.AltitudeConfidence > AltConfUnavailable {
		return fmt.Errorf("%w: altitudeConfidence %d", ErrInvalidField, pos.AltitudeConfidence)
	}

	if mgmt.Termination != nil && *mgmt.Termination > TerminationIsNegation {
		return fmt.Errorf("%w: termination %d", ErrInvalidField, *mgmt.Termination)
	}
	if mgmt.RelevanceDistance != nil && *mgmt.RelevanceDistance > RelevanceOver10km {
		return fmt.Errorf("%w: relevanceDistance %d", ErrInvalidField, *mgmt.RelevanceDistance)
	}
	if mgmt.RelevanceTrafficDirection != nil && *mgmt.RelevanceTrafficDirection > TrafficOpposite {
		return fmt.Errorf("%w: relevanceTrafficDirection %d", ErrInvalidField, *mgmt.RelevanceTrafficDirection)
	}
	if mgmt.ValidityDuration != nil && (*mgmt.ValidityDuration < 0 || *mgmt.ValidityDuration > validityDurationMax) {
		return fmt.Errorf("%w: validityDuration %d", ErrInvalidField, *mgmt.ValidityDuration)
	}
	if mgmt.TransmissionInterval != nil &&
		(*mgmt.TransmissionInterval < transmissionIntervalMin || *mgmt.TransmissionInterval > transmissionIntervalMax) {
		return fmt.Errorf("%w: transmissionInterval %d", ErrInvalidField, *mgmt.TransmissionInterval)
	}

	if sit := m.Situation; sit != nil {
		if sit.InformationQuality > infoQualityMax {
			return fmt.Errorf("%w: informationQuality %d", ErrInvalidField, sit.InformationQuality)
		}
	}

	if loc := m.Location; loc != nil {
		if sp := loc.EventSpeed; sp != nil {
			if sp.Value > speedValueMax {
				return fmt.Errorf("%w: speedValue %d", ErrInvalidField, sp.Value)
			}
			if sp.Confidence < confidenceMin || sp.Confidence > 127 {
				return fmt.Errorf("%w: speedConfidence %d", ErrInvalidField, sp.Confidence)
			}
		}
		if hd := loc.EventHeading; hd != nil {
			if hd.Value > headingValueMax {
				return fmt.Errorf("%w: headingValue %d", ErrInvalidField, hd.Value)
			}
			if hd.Confidence < confidenceMin || hd.Confidence > 127 {
				return fmt.Errorf("%w: headingConfidence %d", ErrInvalidField, hd.Confidence)
			}
		}
		if loc.TraceCount > tracesMax {
			return fmt.Errorf("%w: traces %d", ErrInvalidField, loc.TraceCount)
		}
	}

	return nil
}
