// Package envelope turns raw signed request bodies into typed messages and
// builds the XML acknowledgement returned for each of them.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/clbanning/mxj/v2"
	"github.com/fsp-loan-gateway/internal/domain/shared"
)

const (
	ContentTypeXML     = "application/xml"
	ContentTypeTextXML = "text/xml"
	ContentTypeJSON    = "application/json"
)

// Tree is the canonical in-memory form of an envelope. Element values are
// strings, nested Trees (as map[string]interface{}) or []interface{} for
// repeated siblings.
type Tree = map[string]interface{}

// ToXML validates the declared content type and returns the body as XML,
// converting JSON objects to the equivalent element structure.
func ToXML(body []byte, contentType string) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, shared.UnsupportedMediaType(contentType)
	}

	switch strings.ToLower(mediaType) {
	case ContentTypeXML, ContentTypeTextXML:
		return body, nil
	case ContentTypeJSON:
		return jsonToXML(body)
	default:
		return nil, shared.UnsupportedMediaType(contentType)
	}
}

// ParseXML parses an XML document into a Tree keyed by its root element
func ParseXML(doc []byte) (Tree, error) {
	m, err := mxj.NewMapXml(doc)
	if err != nil {
		return nil, shared.MalformedPayload(err)
	}
	return Tree(m), nil
}

func jsonToXML(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, shared.MalformedPayload(err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return nil, shared.MalformedPayload(errors.New("JSON envelope must be a non-empty object"))
	}

	doc, err := mxj.Map(stringifyScalars(obj).(map[string]interface{})).Xml()
	if err != nil {
		return nil, shared.MalformedPayload(fmt.Errorf("converting JSON to XML: %w", err))
	}
	return doc, nil
}

// stringifyScalars turns JSON numbers, booleans and nulls into element text
// so the XML form carries exactly what the sender wrote.
func stringifyScalars(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			t[k] = stringifyScalars(child)
		}
		return t
	case []interface{}:
		for i, child := range t {
			t[i] = stringifyScalars(child)
		}
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return t
	}
}
