package widget

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/Rrens/chat-widget/internal/domain"
	"golang.org/x/net/html"
)

// ErrNoScriptTag is returned when a host page carries no widget script tag
var ErrNoScriptTag = errors.New("widget: no script tag with data-agent-id found")

const scriptSelector = "script[" + AttrAgentID + "]"

// Host is the page embedding the widget. The widget only reads its URL,
// referrer and user agent, and only writes under its own root node.
type Host struct {
	Document  *html.Node
	URL       string
	Referrer  string
	UserAgent string
}

// ParseHost parses a host page
func ParseHost(r io.Reader, url, referrer, userAgent string) (*Host, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host page: %w", err)
	}
	return &Host{Document: doc, URL: url, Referrer: referrer, UserAgent: userAgent}, nil
}

// BlankHost returns a host with an empty document, for mounts where only
// the script attributes are known.
func BlankHost(url, referrer, userAgent string) *Host {
	h, _ := ParseHost(strings.NewReader("<!DOCTYPE html><html><head></head><body></body></html>"), url, referrer, userAgent)
	return h
}

// Visitor snapshots the visitor context sent along with each turn
func (h *Host) Visitor() domain.VisitorInfo {
	return domain.VisitorInfo{
		URL:       h.URL,
		Referrer:  h.Referrer,
		UserAgent: h.UserAgent,
	}
}

// ScriptAttributes returns the data-* attributes of the first script tag
// carrying data-agent-id. Other attributes (src, async, ...) are dropped.
func (h *Host) ScriptAttributes() (map[string]string, error) {
	sel := goquery.NewDocumentFromNode(h.Document).Find(scriptSelector).First()
	if sel.Length() == 0 {
		return nil, ErrNoScriptTag
	}

	attrs := make(map[string]string)
	for _, a := range sel.Nodes[0].Attr {
		if strings.HasPrefix(a.Key, "data-") {
			attrs[a.Key] = a.Val
		}
	}
	return attrs, nil
}
