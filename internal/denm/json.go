package denm

import (
	"encoding/json"
	"fmt"
)

// JSON projection of a DENM. Coordinates, altitude, speed and heading appear
// in human units (degrees, meters, m/s); enumerations by their ASN.1
// enumerant names; timestamps as "YYYY-MM-DD HH:MM:SS UTC". This is the wire
// form HTTP and WebSocket clients see.

type jsonMessage struct {
	Header     jsonHeader     `json:"header"`
	Management jsonManagement `json:"management"`
	Situation  *jsonSituation `json:"situation,omitempty"`
	Location   *jsonLocation  `json:"location,omitempty"`
}

type jsonHeader struct {
	ProtocolVersion uint8   `json:"protocolVersion"`
	MessageID       uint8   `json:"messageId"`
	StationID       *uint32 `json:"stationId"`
}

type jsonManagement struct {
	ActionID                  jsonActionID `json:"actionId"`
	DetectionTime             string       `json:"detectionTime"`
	ReferenceTime             string       `json:"referenceTime"`
	Termination               *string      `json:"termination,omitempty"`
	EventPosition             jsonPosition `json:"eventPosition"`
	RelevanceDistance         *string      `json:"relevanceDistance,omitempty"`
	RelevanceTrafficDirection *string      `json:"relevanceTrafficDirection,omitempty"`
	ValidityDuration          *int32       `json:"validityDuration,omitempty"`
	TransmissionInterval      *int32       `json:"transmissionInterval,omitempty"`
	StationType               uint8        `json:"stationType"`
}

type jsonActionID struct {
	OriginatingStationID uint32 `json:"originatingStationId"`
	SequenceNumber       uint16 `json:"sequenceNumber"`
}

type jsonPosition struct {
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	Altitude           float64     `json:"altitude"`
	ConfidenceEllipse  jsonEllipse `json:"positionConfidenceEllipse"`
	AltitudeConfidence string      `json:"altitudeConfidence"`
}

type jsonEllipse struct {
	SemiMajorConfidence  uint16 `json:"semiMajorConfidence"`
	SemiMinorConfidence  uint16 `json:"semiMinorConfidence"`
	SemiMajorOrientation uint16 `json:"semiMajorOrientation"`
}

type jsonSituation struct {
	InformationQuality uint8 `json:"informationQuality"`
	CauseCode          uint8 `json:"causeCode"`
	SubCauseCode       uint8 `json:"subCauseCode"`
}

type jsonLocation struct {
	EventSpeed   *jsonSpeed   `json:"eventSpeed,omitempty"`
	EventHeading *jsonHeading `json:"eventPositionHeading,omitempty"`
	Traces       uint8        `json:"traces"`
}

type jsonSpeed struct {
	Value      float64 `json:"speedValue"` // m/s
	Confidence uint8   `json:"speedConfidence"`
}

type jsonHeading struct {
	Value      float64 `json:"headingValue"` // degrees
	Confidence uint8   `json:"headingConfidence"`
}

// ToJSON renders the projection. Timestamps outside the representable range
// fail with ErrInvalidField.
func ToJSON(m *Message) ([]byte, error) {
	det, err := FormatTimestamp(m.Management.DetectionTime)
	if err != nil {
		return nil, err
	}
	ref, err := FormatTimestamp(m.Management.ReferenceTime)
	if err != nil {
		return nil, err
	}

	sid := m.Header.StationID
	mgmt := &m.Management
	out := jsonMessage{
		Header: jsonHeader{
			ProtocolVersion: m.Header.ProtocolVersion,
			MessageID:       m.Header.MessageID,
			StationID:       &sid,
		},
		Management: jsonManagement{
			ActionID: jsonActionID{
				OriginatingStationID: mgmt.ActionID.OriginatingStationID,
				SequenceNumber:       mgmt.ActionID.SequenceNumber,
			},
			DetectionTime: det,
			ReferenceTime: ref,
			EventPosition: jsonPosition{
				Latitude:  float64(mgmt.EventPosition.Latitude) / 1e7,
				Longitude: float64(mgmt.EventPosition.Longitude) / 1e7,
				Altitude:  float64(mgmt.EventPosition.AltitudeValue) / 100,
				ConfidenceEllipse: jsonEllipse{
					SemiMajorConfidence:  mgmt.EventPosition.SemiMajorConfidence,
					SemiMinorConfidence:  mgmt.EventPosition.SemiMinorConfidence,
					SemiMajorOrientation: mgmt.EventPosition.SemiMajorOrientation,
				},
				AltitudeConfidence: mgmt.EventPosition.AltitudeConfidence.String(),
			},
			ValidityDuration:     mgmt.ValidityDuration,
			TransmissionInterval: mgmt.TransmissionInterval,
			StationType:          mgmt.StationType,
		},
	}

	if mgmt.Termination != nil {
		s := mgmt.Termination.String()
		out.Management.Termination = &s
	}
	if mgmt.RelevanceDistance != nil {
		s := mgmt.RelevanceDistance.String()
		out.Management.RelevanceDistance = &s
	}
	if mgmt.RelevanceTrafficDirection != nil {
		s := mgmt.RelevanceTrafficDirection.String()
		out.Management.RelevanceTrafficDirection = &s
	}

	if sit := m.Situation; sit != nil {
		out.Situation = &jsonSituation{
			InformationQuality: sit.InformationQuality,
			CauseCode:          sit.CauseCode,
			SubCauseCode:       sit.SubCauseCode,
		}
	}
	if loc := m.Location; loc != nil {
		jl := &jsonLocation{Traces: loc.TraceCount}
		if sp := loc.EventSpeed; sp != nil {
			jl.EventSpeed = &jsonSpeed{Value: float64(sp.Value) / 100, Confidence: sp.Confidence}
		}
		if hd := loc.EventHeading; hd != nil {
			jl.EventHeading = &jsonHeading{Value: float64(hd.Value) / 10, Confidence: hd.Confidence}
		}
		out.Location = jl
	}

	return json.Marshal(out)
}

// FromJSON parses the projection back into a validated message. A missing
// header.stationId fails with ErrMissingRequired; malformed JSON and bad
// enumerant names fail with ErrInvalidField.
func FromJSON(data []byte) (*Message, error) {
	var in jsonMessage
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if in.Header.StationID == nil {
		return nil, fmt.Errorf("%w: header.stationId", ErrMissingRequired)
	}

	b := NewBuilder()
	if in.Header.ProtocolVersion != 0 {
		b.SetProtocolVersion(in.Header.ProtocolVersion)
	}
	b.SetStationID(*in.Header.StationID)

	mgmt := &in.Management
	b.SetOriginatingStationID(mgmt.ActionID.OriginatingStationID)
	b.SetSequenceNumber(mgmt.ActionID.SequenceNumber)

	if mgmt.DetectionTime != "" {
		ts, err := ParseTimestamp(mgmt.DetectionTime)
		if err != nil {
			return nil, err
		}
		b.m.Management.DetectionTime = ts
	}
	if mgmt.ReferenceTime != "" {
		ts, err := ParseTimestamp(mgmt.ReferenceTime)
		if err != nil {
			return nil, err
		}
		b.m.Management.ReferenceTime = ts
	}
	if mgmt.Termination != nil {
		t, err := ParseTermination(*mgmt.Termination)
		if err != nil {
			return nil, err
		}
		b.SetTermination(t)
	}

	pos := &mgmt.EventPosition
	b.SetEventPosition(pos.Latitude, pos.Longitude, pos.Altitude)
	b.m.Management.EventPosition.SemiMajorConfidence = pos.ConfidenceEllipse.SemiMajorConfidence
	b.m.Management.EventPosition.SemiMinorConfidence = pos.ConfidenceEllipse.SemiMinorConfidence
	b.m.Management.EventPosition.SemiMajorOrientation = pos.ConfidenceEllipse.SemiMajorOrientation
	if pos.AltitudeConfidence != "" {
		ac, err := ParseAltitudeConfidence(pos.AltitudeConfidence)
		if err != nil {
			return nil, err
		}
		b.SetAltitudeConfidence(ac)
	}

	if mgmt.RelevanceDistance != nil {
		d, err := ParseRelevanceDistance(*mgmt.RelevanceDistance)
		if err != nil {
			return nil, err
		}
		b.SetRelevanceDistance(d)
	}
	if mgmt.RelevanceTrafficDirection != nil {
		d, err := ParseRelevanceTrafficDirection(*mgmt.RelevanceTrafficDirection)
		if err != nil {
			return nil, err
		}
		b.SetRelevanceTrafficDirection(d)
	}
	if mgmt.ValidityDuration != nil {
		v := *mgmt.ValidityDuration
		b.m.Management.ValidityDuration = &v
	}
	if mgmt.TransmissionInterval != nil {
		v := *mgmt.TransmissionInterval
		b.m.Management.TransmissionInterval = &v
	}
	b.SetStationType(mgmt.StationType)

	if sit := in.Situation; sit != nil {
		b.SetInformationQuality(sit.InformationQuality)
		b.SetCauseCode(sit.CauseCode)
		b.SetSubCauseCode(sit.SubCauseCode)
	} else {
		b.m.Situation = nil
	}

	if loc := in.Location; loc != nil {
		if sp := loc.EventSpeed; sp != nil {
			b.SetEventSpeed(sp.Value)
			b.SetSpeedConfidence(sp.Confidence)
		}
		if hd := loc.EventHeading; hd != nil {
			b.SetEventHeading(hd.Value)
			b.SetHeadingConfidence(hd.Confidence)
		}
		b.location().TraceCount = loc.Traces
	} else {
		b.m.Location = nil
	}

	return b.Build()
}
