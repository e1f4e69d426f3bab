package denm

import (
	"math"
	"time"
)

// Builder assembles a DENM value with the station-side defaults applied.
// Optional containers materialize when their first setter is called; the
// management defaults (relevance scope, validity, transmission interval)
// are always present so that a freshly built message is publishable as-is.
type Builder struct {
	m Message
}

// NewBuilder returns a builder with detection and reference time set to now
// and every defaulted field populated.
func NewBuilder() *Builder {
	now, _ := ItsTimeFrom(time.Now())

	relevance := RelevanceLessThan50m
	direction := TrafficAllDirections
	validity := int32(DefaultValidityDuration)
	interval := int32(DefaultTransmissionInterval)

	return &Builder{m: Message{
		Header: Header{
			ProtocolVersion: DefaultProtocolVersion,
			MessageID:       MessageIDDenm,
		},
		Management: Management{
			DetectionTime: now,
			ReferenceTime: now,
			EventPosition: Position{
				SemiMajorConfidence:  semiAxisMax,
				SemiMinorConfidence:  semiAxisMax,
				SemiMajorOrientation: headingValueMax,
				AltitudeConfidence:   AltConfUnavailable,
			},
			RelevanceDistance:         &relevance,
			RelevanceTrafficDirection: &direction,
			ValidityDuration:          &validity,
			TransmissionInterval:      &interval,
		},
	}}
}

// SetProtocolVersion overrides the default header protocol version.
func (b *Builder) SetProtocolVersion(v uint8) *Builder {
	b.m.Header.ProtocolVersion = v
	return b
}

// SetStationID sets the originating station on both the header and the
// action id: the station submitting the DENM is the one that originated it.
func (b *Builder) SetStationID(id uint32) *Builder {
	b.m.Header.StationID = id
	b.m.Management.ActionID.OriginatingStationID = id
	return b
}

// SetOriginatingStationID sets the action id originator independently of
// the header station (relays forward on behalf of the originator).
func (b *Builder) SetOriginatingStationID(id uint32) *Builder {
	b.m.Management.ActionID.OriginatingStationID = id
	return b
}

// SetSequenceNumber sets the action id sequence number.
func (b *Builder) SetSequenceNumber(seq uint16) *Builder {
	b.m.Management.ActionID.SequenceNumber = seq
	return b
}

// SetDetectionTime records when the event was detected. Times before the
// ITS epoch are rejected.
func (b *Builder) SetDetectionTime(t time.Time) error {
	ts, err := ItsTimeFrom(t)
	if err != nil {
		return err
	}
	b.m.Management.DetectionTime = ts
	return nil
}

// SetReferenceTime records when this DENM revision was generated. Times
// before the ITS epoch are rejected.
func (b *Builder) SetReferenceTime(t time.Time) error {
	ts, err := ItsTimeFrom(t)
	if err != nil {
		return err
	}
	b.m.Management.ReferenceTime = ts
	return nil
}

// SetEventPosition takes human units: degrees latitude/longitude and meters
// of altitude. Range validation happens at encode time.
func (b *Builder) SetEventPosition(lat, lon, altMeters float64) *Builder {
	pos := &b.m.Management.EventPosition
	pos.Latitude = int32(math.Round(lat * 1e7))
	pos.Longitude = int32(math.Round(lon * 1e7))
	pos.AltitudeValue = int32(math.Round(altMeters * 100))
	return b
}

// SetAltitudeConfidence sets the altitude accuracy band.
func (b *Builder) SetAltitudeConfidence(c AltitudeConfidence) *Builder {
	b.m.Management.EventPosition.AltitudeConfidence = c
	return b
}

// SetTermination marks the DENM as a cancellation or negation.
func (b *Builder) SetTermination(t Termination) *Builder {
	b.m.Management.Termination = &t
	return b
}

// SetRelevanceDistance sets the geographic relevance band.
func (b *Builder) SetRelevanceDistance(d RelevanceDistance) *Builder {
	b.m.Management.RelevanceDistance = &d
	return b
}

// SetRelevanceTrafficDirection sets the directional relevance scope.
func (b *Builder) SetRelevanceTrafficDirection(d RelevanceTrafficDirection) *Builder {
	b.m.Management.RelevanceTrafficDirection = &d
	return b
}

// SetValidityDuration sets how long the event stays valid. Negative
// durations clamp to zero; validation of the upper bound happens at encode.
func (b *Builder) SetValidityDuration(d time.Duration) *Builder {
	secs := int32(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	b.m.Management.ValidityDuration = &secs
	return b
}

// SetTransmissionInterval sets the repetition interval.
func (b *Builder) SetTransmissionInterval(d time.Duration) *Builder {
	ms := int32(d / time.Millisecond)
	if ms < transmissionIntervalMin {
		ms = transmissionIntervalMin
	}
	b.m.Management.TransmissionInterval = &ms
	return b
}

// SetStationType sets the originating station class.
func (b *Builder) SetStationType(t uint8) *Builder {
	b.m.Management.StationType = t
	return b
}

// SetInformationQuality materializes the situation container and sets the
// quality (clamped to 0..7).
func (b *Builder) SetInformationQuality(q uint8) *Builder {
	if q > infoQualityMax {
		q = infoQualityMax
	}
	b.situation().InformationQuality = q
	return b
}

// SetCauseCode materializes the situation container and sets the cause.
func (b *Builder) SetCauseCode(code uint8) *Builder {
	b.situation().CauseCode = code
	return b
}

// SetSubCauseCode materializes the situation container and sets the
// sub-cause.
func (b *Builder) SetSubCauseCode(code uint8) *Builder {
	b.situation().SubCauseCode = code
	return b
}

// SetEventSpeed takes m/s and stores 0.01 m/s units clamped to the
// protocol range.
func (b *Builder) SetEventSpeed(metersPerSecond float64) *Builder {
	v := math.Round(metersPerSecond * 100)
	if v < 0 {
		v = 0
	}
	if v > speedValueMax {
		v = speedValueMax
	}
	sp := b.eventSpeed()
	sp.Value = uint16(v)
	return b
}

// SetSpeedConfidence clamps to 1..100.
func (b *Builder) SetSpeedConfidence(c uint8) *Builder {
	b.eventSpeed().Confidence = clampConfidence(c)
	return b
}

// SetEventHeading takes degrees and stores 0.1 degree units clamped to the
// protocol range.
func (b *Builder) SetEventHeading(degrees float64) *Builder {
	v := math.Round(degrees * 10)
	if v < 0 {
		v = 0
	}
	if v > headingValueMax {
		v = headingValueMax
	}
	hd := b.eventHeading()
	hd.Value = uint16(v)
	return b
}

// SetHeadingConfidence clamps to 1..100.
func (b *Builder) SetHeadingConfidence(c uint8) *Builder {
	b.eventHeading().Confidence = clampConfidence(c)
	return b
}

// Build validates every constraint and returns the finished message.
func (b *Builder) Build() (*Message, error) {
	m := b.m // shallow copy; pointer fields are never mutated after Build
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (b *Builder) situation() *Situation {
	if b.m.Situation == nil {
		b.m.Situation = &Situation{InformationQuality: DefaultInformationQuality}
	}
	return b.m.Situation
}

func (b *Builder) location() *Location {
	if b.m.Location == nil {
		b.m.Location = &Location{}
	}
	return b.m.Location
}

func (b *Builder) eventSpeed() *Speed {
	loc := b.location()
	if loc.EventSpeed == nil {
		loc.EventSpeed = &Speed{Confidence: DefaultConfidence}
	}
	return loc.EventSpeed
}

func (b *Builder) eventHeading() *Heading {
	loc := b.location()
	if loc.EventHeading == nil {
		loc.EventHeading = &Heading{Confidence: DefaultConfidence}
	}
	return loc.EventHeading
}

func clampConfidence(c uint8) uint8 {
	if c < confidenceMin {
		return confidenceMin
	}
	if c > confidenceMax {
		return confidenceMax
	}
	return c
}
