package config

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// LookupEncoding finds a single byte charmap by its display name,
// e.g. "Windows 1251". Empty name means UTF-8 and returns nil.
func LookupEncoding(name string) (*charmap.Charmap, error) {
	if name == "" {
		return nil, nil
	}
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if cm.String() == name {
				return cm, nil
			}
		}
	}
	return nil, errors.Errorf("Failed to find encoding %q; known encodings: %s",
		name, strings.Join(ListEncodings(), ", "))
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}
