package envelope

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fsp-loan-gateway/internal/domain/message"
	"github.com/fsp-loan-gateway/internal/domain/shared"
)

// repeatedElements lists, per message type, the MessageDetails paths that
// may occur more than once. They always decode to a sequence.
var repeatedElements = map[shared.MessageType][]string{
	shared.MessageTypeProductDetail:       {"ProductDetail", "ProductDetail/TermsAndConditions"},
	shared.MessageTypeProductDecommission: {"ProductCode"},
}

// Decoder runs the inbound half of the pipeline: content negotiation,
// signature split, tree parsing, header validation and verification.
type Decoder struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewDecoder creates a decoder. A nil verifier disables signature checks.
func NewDecoder(logger *slog.Logger, verifier Verifier) *Decoder {
	return &Decoder{verifier: verifier, logger: logger}
}

// Decode turns a request body into a message. Signature verification, when
// enabled, runs before the message is returned so nothing downstream ever
// sees an unverified envelope.
func (d *Decoder) Decode(ctx context.Context, body []byte, contentType string) (*message.Message, error) {
	doc, err := ToXML(body, contentType)
	if err != nil {
		return nil, err
	}

	parts, err := Split(doc)
	if err != nil {
		return nil, err
	}

	tree, err := ParseXML(parts.Data)
	if err != nil {
		return nil, err
	}

	header, fields, err := DecodeTree(tree)
	if err != nil {
		return nil, err
	}

	if d.verifier != nil {
		if err := d.verifier.Verify(ctx, parts.Data, parts.Signature, header.FSPCode); err != nil {
			d.logger.Warn("Envelope signature rejected",
				"fsp_code", header.FSPCode,
				"msg_id", header.MsgID,
				"error", err,
			)
			return nil, err
		}
	}

	return &message.Message{Header: header, Fields: fields, Signature: parts.Signature}, nil
}

// DecodeTree extracts the header and MessageDetails from a tree rooted at
// Data, or at a document element that contains Data.
func DecodeTree(tree Tree) (message.Header, message.Fields, error) {
	data := findData(tree)

	h := asTree(data["Header"])
	header := message.Header{
		Sender:      text(h, "Sender"),
		Receiver:    text(h, "Receiver"),
		FSPCode:     text(h, "FSPCode"),
		MsgID:       text(h, "MsgId"),
		MessageType: shared.MessageType(text(h, "MessageType")),
	}

	if header.FSPCode == "" {
		return header, nil, shared.MissingFspCode()
	}
	if header.MsgID == "" {
		return header, nil, shared.MissingHeaderField("MsgId")
	}
	if header.MessageType == "" {
		return header, nil, shared.MissingHeaderField("MessageType")
	}
	if header.Sender == "" {
		return header, nil, shared.MissingHeaderField("Sender")
	}

	fields := message.Fields(asTree(data["MessageDetails"]))
	if fields == nil {
		fields = message.Fields{}
	}
	for _, path := range repeatedElements[header.MessageType] {
		normalizeList(fields, strings.Split(path, "/"))
	}
	return header, fields, nil
}

func findData(tree Tree) Tree {
	if data := asTree(tree["Data"]); data != nil {
		return data
	}
	if len(tree) == 1 {
		for _, root := range tree {
			if data := asTree(asTree(root)["Data"]); data != nil {
				return data
			}
		}
	}
	return Tree{}
}

// normalizeList wraps the element at path in a one-item sequence when it
// occurred only once.
func normalizeList(node map[string]interface{}, path []string) {
	v, ok := node[path[0]]
	if !ok {
		return
	}

	if len(path) == 1 {
		if _, isList := v.([]interface{}); !isList {
			node[path[0]] = []interface{}{v}
		}
		return
	}

	switch t := v.(type) {
	case map[string]interface{}:
		normalizeList(t, path[1:])
	case []interface{}:
		for _, item := range t {
			if child, ok := item.(map[string]interface{}); ok {
				normalizeList(child, path[1:])
			}
		}
	}
}

func asTree(v interface{}) Tree {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

func text(t Tree, key string) string {
	return message.Fields(t).String(key)
}
