package web

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/jweese001/threejs-ide/internal/importmap"
)

// InjectImportMap replaces the contents of the page's importmap script tag
// with the serialized map. The page must carry exactly one
// <script type="importmap"> placeholder.
func InjectImportMap(page []byte, m *importmap.Map) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse sandbox page: %w", err)
	}

	sel := doc.Find(`script[type="importmap"]`)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("sandbox page has no importmap script tag")
	}
	if sel.Length() > 1 {
		return nil, fmt.Errorf("sandbox page has %d importmap script tags, want 1", sel.Length())
	}

	serialized, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	sel.SetText(string(serialized))

	html, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("serialize sandbox page: %w", err)
	}
	return []byte(html), nil
}
