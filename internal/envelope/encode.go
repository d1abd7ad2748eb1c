package envelope

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
)

// elementRank fixes the position of well-known elements; others follow
// alphabetically so the same tree always encodes to the same bytes.
var elementRank = map[string]int{
	"Data":           1,
	"Header":         2,
	"Sender":         3,
	"Receiver":       4,
	"FSPCode":        5,
	"MsgId":          6,
	"MessageType":    7,
	"MessageDetails": 8,
	"ResponseCode":   9,
	"Description":    10,
	"Signature":      99,
}

// EncodeElement serialises value as an element called name
func EncodeElement(name string, value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := writeElement(enc, name, value); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeElement(enc *xml.Encoder, name string, value interface{}) error {
	if name == "" {
		return fmt.Errorf("empty element name")
	}

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if err := writeElement(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	case []string:
		for _, item := range v {
			if err := writeElement(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	case []map[string]interface{}:
		for _, item := range v {
			if err := writeElement(enc, name, item); err != nil {
				return err
			}
		}
		return nil
	}

	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch v := value.(type) {
	case map[string]interface{}:
		for _, key := range orderedKeys(v) {
			if err := writeElement(enc, key, v[key]); err != nil {
				return err
			}
		}
	case nil:
	case string:
		if err := enc.EncodeToken(xml.CharData(v)); err != nil {
			return err
		}
	default:
		if err := enc.EncodeToken(xml.CharData(fmt.Sprint(v))); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

func orderedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func rank(key string) int {
	if r, ok := elementRank[key]; ok {
		return r
	}
	return 50
}
