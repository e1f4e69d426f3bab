package denm

import "fmt"

// UPER codec for the DENM schema subset the gateway carries.
//
// Constrained whole numbers are written as fixed-width offsets from their
// lower bound (unaligned PER), enumerations in the width of their root
// enumerant count, and each SEQUENCE leads with its extension bit (always
// zero here; extension additions are rejected) followed by the presence
// bitmap of its OPTIONAL members. Field order and widths:
//
//	ItsPduHeader     protocolVersion:8  messageID:8  stationID:32
//	DENM payload     presence[situation,location,alacarte]:3
//	Management       ext:1 presence[termination,relevanceDistance,
//	                 relevanceTrafficDirection,validityDuration,
//	                 transmissionInterval]:5
//	                 originatingStationID:32 sequenceNumber:16
//	                 detectionTime:42 referenceTime:42 termination?:1
//	                 latitude:31(-900000000) longitude:32(-1800000000)
//	                 semiMajor:12 semiMinor:12 orientation:12
//	                 altitudeValue:20(-100000) altitudeConfidence:4
//	                 relevanceDistance?:3 relevanceTrafficDirection?:2
//	                 validityDuration?:17 transmissionInterval?:14(1)
//	                 stationType:8
//	Situation        ext:1 presence[linkedCause,eventHistory]:2
//	                 informationQuality:3 causeCode:8 subCauseCode:8
//	Location         ext:1 presence[eventSpeed,eventPositionHeading,roadType]:3
//	                 speedValue?:14 speedConfidence?:7(1)
//	                 headingValue?:12 headingConfidence?:7(1)
//	                 traces-length:3
//
// The alacarte container, linked causes, event histories, trace path points
// and road types are never produced by this gateway; their presence bits
// decode but a set bit is rejected as unsupported.

// Encode serializes a message to its UPER byte form. Constraint violations
// surface as ErrInvalidField before any bit is written.
func Encode(m *Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	w := newBitWriter()

	// ItsPduHeader
	w.writeBits(uint64(m.Header.ProtocolVersion), 8)
	w.writeBits(uint64(m.Header.MessageID), 8)
	w.writeBits(uint64(m.Header.StationID), 32)

	// payload presence bitmap
	w.writeBool(m.Situation != nil)
	w.writeBool(m.Location != nil)
	w.writeBool(false) // alacarte

	encodeManagement(w, &m.Management)
	if m.Situation != nil {
		encodeSituation(w, m.Situation)
	}
	if m.Location != nil {
		encodeLocation(w, m.Location)
	}

	return w.bytes(), nil
}

func encodeManagement(w *bitWriter, mgmt *Management) {
	w.writeBool(false) // extension
	w.writeBool(mgmt.Termination != nil)
	w.writeBool(mgmt.RelevanceDistance != nil)
	w.writeBool(mgmt.RelevanceTrafficDirection != nil)
	w.writeBool(mgmt.ValidityDuration != nil)
	w.writeBool(mgmt.TransmissionInterval != nil)

	w.writeBits(uint64(mgmt.ActionID.OriginatingStationID), 32)
	w.writeBits(uint64(mgmt.ActionID.SequenceNumber), 16)
	w.writeBits(uint64(mgmt.DetectionTime), 42)
	w.writeBits(uint64(mgmt.ReferenceTime), 42)

	if mgmt.Termination != nil {
		w.writeBits(uint64(*mgmt.Termination), 1)
	}

	pos := &mgmt.EventPosition
	w.writeBits(uint64(int64(pos.Latitude)-latitudeMin), 31)
	w.writeBits(uint64(int64(pos.Longitude)-longitudeMin), 32)
	w.writeBits(uint64(pos.SemiMajorConfidence), 12)
	w.writeBits(uint64(pos.SemiMinorConfidence), 12)
	w.writeBits(uint64(pos.SemiMajorOrientation), 12)
	w.writeBits(uint64(int64(pos.AltitudeValue)-altitudeMin), 20)
	w.writeBits(uint64(pos.AltitudeConfidence), 4)

	if mgmt.RelevanceDistance != nil {
		w.writeBits(uint64(*mgmt.RelevanceDistance), 3)
	}
	if mgmt.RelevanceTrafficDirection != nil {
		w.writeBits(uint64(*mgmt.RelevanceTrafficDirection), 2)
	}
	if mgmt.ValidityDuration != nil {
		w.writeBits(uint64(*mgmt.ValidityDuration), 17)
	}
	if mgmt.TransmissionInterval != nil {
		w.writeBits(uint64(*mgmt.TransmissionInterval-transmissionIntervalMin), 14)
	}
	w.writeBits(uint64(mgmt.StationType), 8)
}

func encodeSituation(w *bitWriter, sit *Situation) {
	w.writeBool(false) // extension
	w.writeBool(false) // linkedCause
	w.writeBool(false) // eventHistory
	w.writeBits(uint64(sit.InformationQuality), 3)
	w.writeBits(uint64(sit.CauseCode), 8)
	w.writeBits(uint64(sit.SubCauseCode), 8)
}

func encodeLocation(w *bitWriter, loc *Location) {
	w.writeBool(false) // extension
	w.writeBool(loc.EventSpeed != nil)
	w.writeBool(loc.EventHeading != nil)
	w.writeBool(false) // roadType

	if sp := loc.EventSpeed; sp != nil {
		w.writeBits(uint64(sp.Value), 14)
		w.writeBits(uint64(sp.Confidence-confidenceMin), 7)
	}
	if hd := loc.EventHeading; hd != nil {
		w.writeBits(uint64(hd.Value), 12)
		w.writeBits(uint64(hd.Confidence-confidenceMin), 7)
	}
	w.writeBits(uint64(loc.TraceCount), 3)
}

// Decode parses a UPER byte form back into a message. Truncated input, out
// of range values and unsupported extensions fail with ErrDecodeFailed; a
// non-DENM messageID fails with ErrWrongMessageType.
func Decode(data []byte) (*Message, error) {
	r := newBitReader(data)
	var m Message

	pv, err := r.readBits(8)
	if err != nil {
		return nil, err
	}
	mid, err := r.readBits(8)
	if err != nil {
		return nil, err
	}
	sid, err := r.readBits(32)
	if err != nil {
		return nil, err
	}
	if mid != MessageIDDenm {
		return nil, fmt.Errorf("%w: messageID %d", ErrWrongMessageType, mid)
	}
	m.Header = Header{ProtocolVersion: uint8(pv), MessageID: uint8(mid), StationID: uint32(sid)}

	hasSituation, err := r.readBool()
	if err != nil {
		return nil, err
	}
	hasLocation, err := r.readBool()
	if err != nil {
		return nil, err
	}
	hasAlacarte, err := r.readBool()
	if err != nil {
		return nil, err
	}
	if hasAlacarte {
		return nil, fmt.Errorf("%w: alacarte container unsupported", ErrDecodeFailed)
	}

	if err := decodeManagement(r, &m.Management); err != nil {
		return nil, err
	}
	if hasSituation {
		m.Situation = &Situation{}
		if err := decodeSituation(r, m.Situation); err != nil {
			return nil, err
		}
	}
	if hasLocation {
		m.Location = &Location{}
		if err := decodeLocation(r, m.Location); err != nil {
			return nil, err
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return &m, nil
}

func decodeManagement(r *bitReader, mgmt *Management) error {
	ext, err := r.readBool()
	if err != nil {
		return err
	}
	if ext {
		return fmt.Errorf("%w: management extension unsupported", ErrDecodeFailed)
	}

	var present [5]bool
	for i := range present {
		if present[i], err = r.readBool(); err != nil {
			return err
		}
	}

	orig, err := r.readBits(32)
	if err != nil {
		return err
	}
	seq, err := r.readBits(16)
	if err != nil {
		return err
	}
	det, err := r.readBits(42)
	if err != nil {
		return err
	}
	ref, err := r.readBits(42)
	if err != nil {
		return err
	}
	mgmt.ActionID = ActionID{OriginatingStationID: uint32(orig), SequenceNumber: uint16(seq)}
	mgmt.DetectionTime = ItsTime(det)
	mgmt.ReferenceTime = ItsTime(ref)

	if present[0] {
		v, err := r.readBits(1)
		if err != nil {
			return err
		}
		t := Termination(v)
		mgmt.Termination = &t
	}

	lat, err := readOffset(r, 31, latitudeMin, latitudeMax)
	if err != nil {
		return fmt.Errorf("%w: latitude: %v", ErrDecodeFailed, err)
	}
	lon, err := readOffset(r, 32, longitudeMin, longitudeMax)
	if err != nil {
		return fmt.Errorf("%w: longitude: %v", ErrDecodeFailed, err)
	}
	semiMajor, err := r.readBits(12)
	if err != nil {
		return err
	}
	semiMinor, err := r.readBits(12)
	if err != nil {
		return err
	}
	orientation, err := r.readBits(12)
	if err != nil {
		return err
	}
	alt, err := readOffset(r, 20, altitudeMin, altitudeMax)
	if err != nil {
		return fmt.Errorf("%w: altitude: %v", ErrDecodeFailed, err)
	}
	altConf, err := r.readBits(4)
	if err != nil {
		return err
	}
	mgmt.EventPosition = Position{
		Latitude:             int32(lat),
		Longitude:            int32(lon),
		SemiMajorConfidence:  uint16(semiMajor),
		SemiMinorConfidence:  uint16(semiMinor),
		SemiMajorOrientation: uint16(orientation),
		AltitudeValue:        int32(alt),
		AltitudeConfidence:   AltitudeConfidence(altConf),
	}

	if present[1] {
		v, err := r.readBits(3)
		if err != nil {
			return err
		}
		d := RelevanceDistance(v)
		mgmt.RelevanceDistance = &d
	}
	if present[2] {
		v, err := r.readBits(2)
		if err != nil {
			return err
		}
		d := RelevanceTrafficDirection(v)
		mgmt.RelevanceTrafficDirection = &d
	}
	if present[3] {
		v, err := r.readBits(17)
		if err != nil {
			return err
		}
		dur := int32(v)
		mgmt.ValidityDuration = &dur
	}
	if present[4] {
		v, err := r.readBits(14)
		if err != nil {
			return err
		}
		ms := int32(v) + transmissionIntervalMin
		mgmt.TransmissionInterval = &ms
	}

	st, err := r.readBits(8)
	if err != nil {
		return err
	}
	mgmt.StationType = uint8(st)
	return nil
}

func decodeSituation(r *bitReader, sit *Situation) error {
	ext, err := r.readBool()
	if err != nil {
		return err
	}
	if ext {
		return fmt.Errorf("%w: situation extension unsupported", ErrDecodeFailed)
	}
	hasLinkedCause, err := r.readBool()
	if err != nil {
		return err
	}
	hasEventHistory, err := r.readBool()
	if err != nil {
		return err
	}
	if hasLinkedCause || hasEventHistory {
		return fmt.Errorf("%w: linked cause / event history unsupported", ErrDecodeFailed)
	}

	q, err := r.readBits(3)
	if err != nil {
		return err
	}
	cause, err := r.readBits(8)
	if err != nil {
		return err
	}
	sub, err := r.readBits(8)
	if err != nil {
		return err
	}
	*sit = Situation{InformationQuality: uint8(q), CauseCode: uint8(cause), SubCauseCode: uint8(sub)}
	return nil
}

func decodeLocation(r *bitReader, loc *Location) error {
	ext, err := r.readBool()
	if err != nil {
		return err
	}
	if ext {
		return fmt.Errorf("%w: location extension unsupported", ErrDecodeFailed)
	}
	hasSpeed, err := r.readBool()
	if err != nil {
		return err
	}
	hasHeading, err := r.readBool()
	if err != nil {
		return err
	}
	hasRoadType, err := r.readBool()
	if err != nil {
		return err
	}
	if hasRoadType {
		return fmt.Errorf("%w: roadType unsupported", ErrDecodeFailed)
	}

	if hasSpeed {
		v, err := r.readBits(14)
		if err != nil {
			return err
		}
		c, err := r.readBits(7)
		if err != nil {
			return err
		}
		loc.EventSpeed = &Speed{Value: uint16(v), Confidence: uint8(c) + confidenceMin}
	}
	if hasHeading {
		v, err := r.readBits(12)
		if err != nil {
			return err
		}
		c, err := r.readBits(7)
		if err != nil {
			return err
		}
		loc.EventHeading = &Heading{Value: uint16(v), Confidence: uint8(c) + confidenceMin}
	}

	n, err := r.readBits(3)
	if err != nil {
		return err
	}
	loc.TraceCount = uint8(n)
	return nil
}

// readOffset reads an n-bit offset-encoded integer and range-checks it:
// the bit width can represent values past the constraint's upper bound.
func readOffset(r *bitReader, n uint, min, max int64) (int64, error) {
	v, err := r.readBits(n)
	if err != nil {
		return 0, err
	}
	val := min + int64(v)
	if val > max {
		return 0, fmt.Errorf("value %d above upper bound %d", val, max)
	}
	return val, nil
}
