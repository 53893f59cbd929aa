package utils

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// EncodeString converts s to a single byte charset. Nil charmap keeps UTF-8.
func EncodeString(cm *charmap.Charmap, s string) ([]byte, error) {
	if cm == nil {
		return []byte(s), nil
	}
	bs, _, err := transform.Bytes(cm.NewEncoder(), []byte(s))
	return bs, err
}
