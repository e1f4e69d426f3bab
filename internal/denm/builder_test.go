package denm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuilder_Defaults(t *testing.T) {
	m, err := NewBuilder().SetStationID(1).Build()
	require.NoError(t, err)

	assert.Equal(t, uint8(DefaultProtocolVersion), m.Header.ProtocolVersion)
	assert.Equal(t, uint8(MessageIDDenm), m.Header.MessageID)

	pos := m.Management.EventPosition
	assert.Equal(t, uint16(semiAxisMax), pos.SemiMajorConfidence)
	assert.Equal(t, uint16(semiAxisMax), pos.SemiMinorConfidence)
	assert.Equal(t, uint16(headingValueMax), pos.SemiMajorOrientation)
	assert.Equal(t, AltConfUnavailable, pos.AltitudeConfidence)

	require.NotNil(t, m.Management.RelevanceDistance)
	assert.Equal(t, RelevanceLessThan50m, *m.Management.RelevanceDistance)
	require.NotNil(t, m.Management.RelevanceTrafficDirection)
	assert.Equal(t, TrafficAllDirections, *m.Management.RelevanceTrafficDirection)
	require.NotNil(t, m.Management.ValidityDuration)
	assert.Equal(t, int32(DefaultValidityDuration), *m.Management.ValidityDuration)
	require.NotNil(t, m.Management.TransmissionInterval)
	assert.Equal(t, int32(DefaultTransmissionInterval), *m.Management.TransmissionInterval)

	// detection and reference time default to construction time
	assert.WithinDuration(t, time.Now(), m.Management.DetectionTime.Time(), 5*time.Second)

	// optional containers stay absent until a setter touches them
	assert.Nil(t, m.Situation)
	assert.Nil(t, m.Location)
}

func TestBuilder_SetStationIDSetsOriginator(t *testing.T) {
	m, err := NewBuilder().SetStationID(1234567).Build()
	require.NoError(t, err)

	assert.Equal(t, uint32(1234567), m.Header.StationID)
	assert.Equal(t, uint32(1234567), m.Management.ActionID.OriginatingStationID)
}

func TestBuilder_RejectsTimeBeforeEpoch(t *testing.T) {
	b := NewBuilder()
	before := time.Unix(UTC2004-1, 0)

	assert.ErrorIs(t, b.SetDetectionTime(before), ErrTimestampBeforeEpoch)
	assert.ErrorIs(t, b.SetReferenceTime(before), ErrTimestampBeforeEpoch)
}

func TestBuilder_PositionScaling(t *testing.T) {
	m, err := NewBuilder().
		SetStationID(1).
		SetEventPosition(57.779017, 12.774981, 190.0).
		Build()
	require.NoError(t, err)

	pos := m.Management.EventPosition
	assert.Equal(t, int32(577790170), pos.Latitude)
	assert.Equal(t, int32(127749810), pos.Longitude)
	assert.Equal(t, int32(19000), pos.AltitudeValue)
}

func TestBuilder_SpeedHeadingClamping(t *testing.T) {
	m, err := NewBuilder().
		SetStationID(1).
		SetEventSpeed(99999).
		SetSpeedConfidence(200).
		SetEventHeading(-5).
		SetHeadingConfidence(0).
		Build()
	require.NoError(t, err)

	require.NotNil(t, m.Location)
	assert.Equal(t, uint16(speedValueMax), m.Location.EventSpeed.Value)
	assert.Equal(t, uint8(confidenceMax), m.Location.EventSpeed.Confidence)
	assert.Equal(t, uint16(0), m.Location.EventHeading.Value)
	assert.Equal(t, uint8(confidenceMin), m.Location.EventHeading.Confidence)
}

func TestBuilder_InformationQualityClamped(t *testing.T) {
	m, err := NewBuilder().SetStationID(1).SetInformationQuality(99).Build()
	require.NoError(t, err)

	require.NotNil(t, m.Situation)
	assert.Equal(t, uint8(infoQualityMax), m.Situation.InformationQuality)
}

func TestBuilder_ValidityDurationFloorsAtZero(t *testing.T) {
	m, err := NewBuilder().SetStationID(1).SetValidityDuration(-time.Minute).Build()
	require.NoError(t, err)

	require.NotNil(t, m.Management.ValidityDuration)
	assert.Equal(t, int32(0), *m.Management.ValidityDuration)
}

func TestValidate_OutOfRangeFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Message)
	}{
		{"latitude", func(m *Message) { m.Management.EventPosition.Latitude = latitudeMax + 1 }},
		{"longitude", func(m *Message) { m.Management.EventPosition.Longitude = longitudeMin - 1 }},
		{"altitude", func(m *Message) { m.Management.EventPosition.AltitudeValue = altitudeMax + 1 }},
		{"validityDuration", func(m *Message) { v := int32(validityDurationMax + 1); m.Management.ValidityDuration = &v }},
		{"transmissionInterval", func(m *Message) { v := int32(0); m.Management.TransmissionInterval = &v }},
		{"messageID", func(m *Message) { m.Header.MessageID = 5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewBuilder().SetStationID(1).Build()
			require.NoError(t, err)
			tc.mutate(m)
			assert.ErrorIs(t, m.validate(), ErrInvalidField)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts, err := ItsTimeFrom(time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC))
	require.NoError(t, err)

	s, err := FormatTimestamp(ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 12:30:45 UTC", s)

	back, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.Equal(t, ts, back)
}

func TestFormatTimestamp_OutOfRange(t *testing.T) {
	_, err := FormatTimestamp(ItsTime(-1))
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = FormatTimestamp(ItsTime(946080000001))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestEnumerantNames(t *testing.T) {
	assert.Equal(t, "lessThan50m", RelevanceLessThan50m.String())
	assert.Equal(t, "over10km", RelevanceOver10km.String())
	assert.Equal(t, "allTrafficDirections", TrafficAllDirections.String())
	assert.Equal(t, "unavailable", AltConfUnavailable.String())
	assert.Equal(t, "isCancellation", TerminationIsCancellation.String())

	d, err := ParseRelevanceDistance("lessThan1000m")
	require.NoError(t, err)
	assert.Equal(t, RelevanceLessThan1000m, d)
}
