package denm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureMessage builds the reference accident DENM used across the codec
// tests: a moped (station type 3) reporting an accident near Borås.
func fixtureMessage(t *testing.T) *Message {
	t.Helper()

	b := NewBuilder().
		SetStationID(1234567).
		SetSequenceNumber(20).
		SetEventPosition(57.779017, 12.774981, 190.0).
		SetRelevanceDistance(RelevanceLessThan50m).
		SetRelevanceTrafficDirection(TrafficAllDirections).
		SetValidityDuration(600 * time.Second).
		SetStationType(StationTypeMoped).
		SetInformationQuality(0).
		SetCauseCode(CauseAccident).
		SetSubCauseCode(0)

	require.NoError(t, b.SetDetectionTime(time.Now()))
	require.NoError(t, b.SetReferenceTime(time.Now()))

	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := fixtureMessage(t)

	data, err := Encode(m)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, m.Header, got.Header)
	assert.Equal(t, m.Management.ActionID, got.Management.ActionID)
	assert.Equal(t, m.Management.DetectionTime, got.Management.DetectionTime)
	assert.Equal(t, m.Management.ReferenceTime, got.Management.ReferenceTime)
	assert.Equal(t, m.Management.EventPosition, got.Management.EventPosition)
	require.NotNil(t, got.Management.RelevanceDistance)
	assert.Equal(t, RelevanceLessThan50m, *got.Management.RelevanceDistance)
	require.NotNil(t, got.Management.RelevanceTrafficDirection)
	assert.Equal(t, TrafficAllDirections, *got.Management.RelevanceTrafficDirection)
	require.NotNil(t, got.Management.ValidityDuration)
	assert.Equal(t, int32(600), *got.Management.ValidityDuration)
	assert.Equal(t, StationTypeMoped, got.Management.StationType)

	require.NotNil(t, got.Situation)
	assert.Equal(t, uint8(0), got.Situation.InformationQuality)
	assert.Equal(t, CauseAccident, got.Situation.CauseCode)
	assert.Equal(t, uint8(0), got.Situation.SubCauseCode)

	assert.Nil(t, got.Location)
}

func TestEncodeDecode_RoundTripWithLocation(t *testing.T) {
	b := NewBuilder().
		SetStationID(42).
		SetSequenceNumber(1).
		SetEventPosition(59.911491, 10.757933, 23.0).
		SetStationType(StationTypePassengerCar).
		SetCauseCode(CauseRoadworks).
		SetEventSpeed(13.89).
		SetSpeedConfidence(80).
		SetEventHeading(181.5).
		SetHeadingConfidence(90)

	m, err := b.Build()
	require.NoError(t, err)

	data, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	require.NotNil(t, got.Location)
	require.NotNil(t, got.Location.EventSpeed)
	assert.Equal(t, uint16(1389), got.Location.EventSpeed.Value)
	assert.Equal(t, uint8(80), got.Location.EventSpeed.Confidence)
	require.NotNil(t, got.Location.EventHeading)
	assert.Equal(t, uint16(1815), got.Location.EventHeading.Value)
	assert.Equal(t, uint8(90), got.Location.EventHeading.Confidence)
	assert.Equal(t, uint8(0), got.Location.TraceCount)
}

func TestEncodeDecode_TerminationSurvives(t *testing.T) {
	b := NewBuilder().
		SetStationID(7).
		SetEventPosition(0, 0, 0).
		SetTermination(TerminationIsNegation)

	m, err := b.Build()
	require.NoError(t, err)

	data, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, got.Management.Termination)
	assert.Equal(t, TerminationIsNegation, *got.Management.Termination)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestDecode_RejectsWrongMessageType(t *testing.T) {
	m := fixtureMessage(t)
	data, err := Encode(m)
	require.NoError(t, err)

	// messageID is the second octet of the header
	data[1] = 2

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrWrongMessageType)
}

func TestDecode_RejectsTruncated(t *testing.T) {
	m := fixtureMessage(t)
	data, err := Encode(m)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestEncode_RejectsOutOfRange(t *testing.T) {
	m := fixtureMessage(t)
	m.Management.EventPosition.Latitude = latitudeMax + 1

	_, err := Encode(m)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestJSON_RoundTrip(t *testing.T) {
	m := fixtureMessage(t)

	j, err := ToJSON(m)
	require.NoError(t, err)

	got, err := FromJSON(j)
	require.NoError(t, err)

	assert.Equal(t, m.Header, got.Header)
	assert.Equal(t, m.Management.ActionID, got.Management.ActionID)
	// JSON timestamps carry one-second resolution
	assert.WithinDuration(t, m.Management.DetectionTime.Time(), got.Management.DetectionTime.Time(), time.Second)
	assert.WithinDuration(t, m.Management.ReferenceTime.Time(), got.Management.ReferenceTime.Time(), time.Second)
	assert.Equal(t, m.Management.EventPosition, got.Management.EventPosition)
	assert.Equal(t, *m.Management.RelevanceDistance, *got.Management.RelevanceDistance)
	assert.Equal(t, *m.Management.RelevanceTrafficDirection, *got.Management.RelevanceTrafficDirection)
	assert.Equal(t, *m.Management.ValidityDuration, *got.Management.ValidityDuration)
	assert.Equal(t, m.Management.StationType, got.Management.StationType)
	assert.Equal(t, m.Situation, got.Situation)
	assert.Equal(t, m.Location, got.Location)
}

func TestJSON_RoundTripWithLocation(t *testing.T) {
	b := NewBuilder().
		SetStationID(42).
		SetEventPosition(59.911491, 10.757933, 23.0).
		SetCauseCode(CauseRoadworks).
		SetEventSpeed(13.89).
		SetEventHeading(181.5)

	m, err := b.Build()
	require.NoError(t, err)

	j, err := ToJSON(m)
	require.NoError(t, err)

	got, err := FromJSON(j)
	require.NoError(t, err)
	assert.Equal(t, m.Location, got.Location)
}

func TestFromJSON_MissingStationID(t *testing.T) {
	_, err := FromJSON([]byte(`{"header":{"protocolVersion":2,"messageId":1},"management":{}}`))
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestFromJSON_Malformed(t *testing.T) {
	_, err := FromJSON([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestFromJSON_BadEnumerant(t *testing.T) {
	j := `{"header":{"stationId":1},"management":{"relevanceDistance":"lessThan42m","eventPosition":{"latitude":0,"longitude":0,"altitude":0}}}`
	_, err := FromJSON([]byte(j))
	assert.ErrorIs(t, err, ErrInvalidField)
}
