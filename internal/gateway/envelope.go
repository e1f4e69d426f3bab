package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/go-amqp"
	"github.com/google/uuid"

	"denm-gateway/internal/denm"
	"denm-gateway/internal/general/geo"
)

// messageTTL is how long a published DENM stays deliverable at the broker.
const messageTTL = time.Hour

// Envelope is the outer JSON accepted on the denm.outgoing topic: interchange
// routing metadata around a nested DENM projection. Pointer fields distinguish
// absent from zero.
type Envelope struct {
	MessageType        string          `json:"messageType,omitempty"`
	ProtocolVersion    string          `json:"protocolVersion,omitempty"`
	PublisherID        *string         `json:"publisherId"`
	PublicationID      string          `json:"publicationId,omitempty"`
	OriginatingCountry *string         `json:"originatingCountry"`
	Latitude           *float64        `json:"latitude"`
	Longitude          *float64        `json:"longitude"`
	QuadTree           string          `json:"quadTree,omitempty"`
	ShardID            *int64          `json:"shardId,omitempty"`
	ShardCount         *int64          `json:"shardCount,omitempty"`
	Timestamp          *int64          `json:"timestamp,omitempty"`
	Relation           *string         `json:"relation,omitempty"`
	Data               json.RawMessage `json:"data"`
}

// ParseEnvelope unmarshals and checks the mandatory routing fields.
func ParseEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", denm.ErrInvalidField, err)
	}

	switch {
	case env.PublisherID == nil || *env.PublisherID == "":
		return nil, fmt.Errorf("%w: publisherId", denm.ErrMissingRequired)
	case env.OriginatingCountry == nil || *env.OriginatingCountry == "":
		return nil, fmt.Errorf("%w: originatingCountry", denm.ErrMissingRequired)
	case env.Latitude == nil:
		return nil, fmt.Errorf("%w: latitude", denm.ErrMissingRequired)
	case env.Longitude == nil:
		return nil, fmt.Errorf("%w: longitude", denm.ErrMissingRequired)
	case len(env.Data) == 0:
		return nil, fmt.Errorf("%w: data", denm.ErrMissingRequired)
	}
	return &env, nil
}

// ValidateOutgoing checks an outgoing payload without publishing it: the
// envelope's mandatory routing fields plus the nested DENM's encodability.
// The HTTP ingress runs this before acking so constraint failures surface to
// the caller instead of vanishing in the subscriber.
func ValidateOutgoing(payload []byte) error {
	env, err := ParseEnvelope(payload)
	if err != nil {
		return err
	}
	m, err := denm.FromJSON(env.Data)
	if err != nil {
		return fmt.Errorf("envelope data: %w", err)
	}
	if _, err := denm.Encode(m); err != nil {
		return err
	}
	return nil
}

// buildMessage encodes the nested DENM and assembles the broker message with
// the interchange application properties. protocolVersion and sendTo come
// from configuration; the envelope may override protocolVersion.
func buildMessage(env *Envelope, protocolVersion, username, sendTo string) (*amqp.Message, error) {
	m, err := denm.FromJSON(env.Data)
	if err != nil {
		return nil, fmt.Errorf("envelope data: %w", err)
	}
	body, err := denm.Encode(m)
	if err != nil {
		return nil, err
	}

	messageType := env.MessageType
	if messageType == "" {
		messageType = "DENM"
	}
	if env.ProtocolVersion != "" {
		protocolVersion = env.ProtocolVersion
	}
	publicationID := env.PublicationID
	if publicationID == "" {
		publicationID = *env.PublisherID + ":" + uuid.NewString()
	}
	quadTree := env.QuadTree
	if quadTree == "" {
		quadTree = geo.QuadTree(*env.Latitude, *env.Longitude)
	}

	props := map[string]any{
		"messageType":        messageType,
		"protocolVersion":    protocolVersion,
		"publisherId":        *env.PublisherID,
		"publicationId":      publicationID,
		"originatingCountry": *env.OriginatingCountry,
		"latitude":           *env.Latitude,
		"longitude":          *env.Longitude,
		"quadTree":           "," + quadTree + ",",
	}
	props["causeCode"] = int64(0)
	if m.Situation != nil {
		props["causeCode"] = int64(m.Situation.CauseCode)
	}
	if env.ShardID != nil {
		props["shardId"] = *env.ShardID
	}
	if env.ShardCount != nil {
		props["shardCount"] = *env.ShardCount
	}
	if env.Timestamp != nil {
		props["timestamp"] = *env.Timestamp
	}
	if env.Relation != nil {
		props["relation"] = *env.Relation
	}

	to := sendTo
	return &amqp.Message{
		Header: &amqp.MessageHeader{
			Durable:  true,
			Priority: 1,
			TTL:      messageTTL,
		},
		Properties: &amqp.MessageProperties{
			To:     &to,
			UserID: []byte(username),
		},
		ApplicationProperties: props,
		Data:                  [][]byte{body},
	}, nil
}
