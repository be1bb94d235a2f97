package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrMarkerNotFound = errors.New("payload marker not found")
	ErrKeyNotFound    = errors.New("payload key not found")
)

// PayloadLocator says where the embedded JSON document sits in a page:
// either between a pair of literal markers or inside the first element
// matching a CSS selector. Selector wins when both are set.
type PayloadLocator struct {
	Start    string
	End      string
	Selector string
}

func (l PayloadLocator) locate(html string) (string, error) {
	if l.Selector != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		sel := doc.Find(l.Selector).First()
		if sel.Length() == 0 {
			return "", fmt.Errorf("%w: selector %q", ErrMarkerNotFound, l.Selector)
		}
		return sel.Text(), nil
	}

	_, rest, ok := strings.Cut(html, l.Start)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMarkerNotFound, l.Start)
	}
	payload, _, ok := strings.Cut(rest, l.End)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMarkerNotFound, l.End)
	}
	return payload, nil
}

// ExtractCollection pulls the embedded JSON document out of html and walks
// keyPath down to the wanted collection.
func ExtractCollection(html string, loc PayloadLocator, keyPath ...string) (json.RawMessage, error) {
	payload, err := loc.locate(html)
	if err != nil {
		return nil, err
	}

	cur := json.RawMessage(payload)
	if !json.Valid(cur) {
		return nil, fmt.Errorf("parse payload: invalid JSON (%d bytes)", len(payload))
	}

	for i, key := range keyPath {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			at := "payload root"
			if i > 0 {
				at = strings.Join(keyPath[:i], ".")
			}
			return nil, fmt.Errorf("%w: %s is not an object", ErrKeyNotFound, at)
		}
		next, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, strings.Join(keyPath[:i+1], "."))
		}
		cur = next
	}

	return cur, nil
}
