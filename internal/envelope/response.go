package envelope

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/fsp-loan-gateway/internal/domain/message"
)

const documentElement = "Document"

// Builder composes response envelopes on behalf of this gateway
type Builder struct {
	systemIdentity string
	signer         *Signer
}

// NewBuilder creates a response builder. A nil signer leaves Signature empty.
func NewBuilder(systemIdentity string, signer *Signer) *Builder {
	return &Builder{systemIdentity: systemIdentity, signer: signer}
}

// Build returns the Data tree of an acknowledgement for the request
// identified by req. details adds type-specific MessageDetails entries.
func (b *Builder) Build(resultCode int, description string, req message.Header, details map[string]interface{}) Tree {
	messageDetails := Tree{
		"ResponseCode": strconv.Itoa(resultCode),
		"Description":  description,
	}
	for k, v := range details {
		if k == "ResponseCode" || k == "Description" {
			continue
		}
		messageDetails[k] = v
	}

	return Tree{
		"Header": Tree{
			"Sender":      b.systemIdentity,
			"Receiver":    req.Sender,
			"FSPCode":     req.FSPCode,
			"MsgId":       req.MsgID,
			"MessageType": string(req.MessageType.ResponseType()),
		},
		"MessageDetails": messageDetails,
	}
}

// Encode serialises a Data tree into a signed document
func (b *Builder) Encode(data Tree) ([]byte, error) {
	dataXML, err := EncodeElement(dataElement, data)
	if err != nil {
		return nil, err
	}

	signature := ""
	if b.signer != nil {
		if signature, err = b.signer.Sign(dataXML); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<" + documentElement + ">")
	buf.Write(dataXML)
	sigXML, err := EncodeElement(signatureElement, signature)
	if err != nil {
		return nil, err
	}
	buf.Write(sigXML)
	buf.WriteString("</" + documentElement + ">")
	return buf.Bytes(), nil
}
