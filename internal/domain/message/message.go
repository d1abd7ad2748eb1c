// Package message holds the typed form of an inbound envelope: the routing
// header and one details variant per message type.
package message

import "github.com/fsp-loan-gateway/internal/domain/shared"

// Header is the routing block present on every envelope
type Header struct {
	Sender      string             `json:"Sender"`
	Receiver    string             `json:"Receiver"`
	FSPCode     string             `json:"FSPCode"`
	MsgID       string             `json:"MsgId"`
	MessageType shared.MessageType `json:"MessageType"`
}

// Message is a decoded, signature-checked inbound envelope
type Message struct {
	Header    Header
	Fields    Fields
	Signature string
}

// Details is implemented by every typed MessageDetails variant
type Details interface {
	MessageType() shared.MessageType
}
