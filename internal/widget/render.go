package widget

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/chat-widget/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const rootIDPrefix = "cw-"

var (
	ErrAlreadyMounted = errors.New("widget: surface already mounted")
	ErrNoBody         = errors.New("widget: host document has no body")
)

// Surface is the isolated visual surface of one widget. Every node it
// creates or mutates lives under a single root element carrying a unique
// id; host nodes are never written except for appending that root to body.
type Surface struct {
	rootID string
	cfg    domain.WidgetConfig

	root     *html.Node
	launcher *html.Node
	badge    *html.Node
	panel    *html.Node
	log      *html.Node
	typing   *html.Node
	input    *html.Node
	send     *html.Node

	mounted bool
}

// NewSurface builds the detached widget subtree for cfg. The initial paint
// shows the launcher and keeps the panel hidden.
func NewSurface(cfg domain.WidgetConfig) *Surface {
	s := &Surface{
		rootID: newRootID(),
		cfg:    cfg,
	}
	s.build()
	return s
}

func newRootID() string {
	return rootIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// RootID returns the unique id of the widget root element
func (s *Surface) RootID() string {
	return s.rootID
}

func (s *Surface) build() {
	s.root = element(atom.Div,
		attr("id", s.rootID),
		attr("class", "cw-root cw-"+string(s.cfg.Position)),
		attr("data-agent-id", s.cfg.AgentID),
	)

	style := element(atom.Style)
	style.AppendChild(text(Stylesheet(s.rootID, s.cfg)))
	s.root.AppendChild(style)

	s.panel = element(atom.Div,
		attr("class", "cw-panel"),
		attr("role", "dialog"),
		attr("aria-label", s.cfg.DisplayName),
		attr("hidden", ""),
	)

	header := element(atom.Div, attr("class", "cw-header"))
	if s.cfg.AvatarURL != "" {
		header.AppendChild(element(atom.Img,
			attr("class", "cw-avatar"),
			attr("src", s.cfg.AvatarURL),
			attr("alt", s.cfg.DisplayName),
		))
	}
	title := element(atom.Span, attr("class", "cw-title"))
	title.AppendChild(text(s.cfg.DisplayName))
	header.AppendChild(title)
	closeBtn := element(atom.Button,
		attr("type", "button"),
		attr("class", "cw-close"),
		attr("aria-label", "Fermer"),
		attr("data-action", "toggle"),
	)
	closeBtn.AppendChild(text("×"))
	header.AppendChild(closeBtn)
	s.panel.AppendChild(header)

	s.log = element(atom.Div,
		attr("class", "cw-messages"),
		attr("role", "log"),
		attr("aria-live", "polite"),
	)
	s.typing = element(atom.Div,
		attr("class", "cw-typing"),
		attr("aria-label", s.cfg.DisplayName+" écrit..."),
		attr("hidden", ""),
	)
	for i := 0; i < 3; i++ {
		s.typing.AppendChild(element(atom.Span))
	}
	s.log.AppendChild(s.typing)
	s.panel.AppendChild(s.log)

	form := element(atom.Form, attr("class", "cw-form"), attr("data-action", "send"))
	s.input = element(atom.Input,
		attr("class", "cw-input"),
		attr("type", "text"),
		attr("name", "message"),
		attr("autocomplete", "off"),
		attr("placeholder", s.cfg.InputPlaceholder),
	)
	s.send = element(atom.Button, attr("type", "submit"), attr("class", "cw-send"))
	s.send.AppendChild(text("Envoyer"))
	form.AppendChild(s.input)
	form.AppendChild(s.send)
	s.panel.AppendChild(form)
	s.root.AppendChild(s.panel)

	s.launcher = element(atom.Button,
		attr("type", "button"),
		attr("class", "cw-launcher"),
		attr("aria-label", "Ouvrir le chat"),
		attr("aria-expanded", "false"),
		attr("data-action", "toggle"),
	)
	s.badge = element(atom.Span, attr("class", "cw-badge"), attr("hidden", ""))
	s.launcher.AppendChild(s.badge)
	s.root.AppendChild(s.launcher)
}

// Mount appends the widget root to the host document's body
func (s *Surface) Mount(doc *html.Node) error {
	if s.mounted {
		return ErrAlreadyMounted
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		return ErrNoBody
	}
	body.AppendChild(s.root)
	s.mounted = true
	return nil
}

// Mounted reports whether the root has been attached to a host document
func (s *Surface) Mounted() bool {
	return s.mounted
}

// SetOpen shows or hides the conversation panel
func (s *Surface) SetOpen(open bool) {
	setFlag(s.panel, "hidden", !open)
	setAttr(s.launcher, "aria-expanded", fmt.Sprint(open))
	if open {
		setAttr(s.launcher, "aria-label", "Fermer le chat")
	} else {
		setAttr(s.launcher, "aria-label", "Ouvrir le chat")
	}
}

// AppendMessageView renders a message at the end of the log, above the
// typing indicator.
func (s *Surface) AppendMessageView(m domain.Message) {
	row := element(atom.Div,
		attr("class", "cw-message cw-"+string(m.Role)),
		attr("data-role", string(m.Role)),
	)
	bubble := element(atom.Div, attr("class", "cw-bubble"))
	bubble.AppendChild(text(m.Content))
	row.AppendChild(bubble)
	s.log.InsertBefore(row, s.typing)
}

// SetTypingIndicator shows or hides the typing indicator and disables the
// input while a reply is pending.
func (s *Surface) SetTypingIndicator(on bool) {
	setFlag(s.typing, "hidden", !on)
	setFlag(s.input, "disabled", on)
	setFlag(s.send, "disabled", on)
}

// SetNotification shows or hides the unread badge on the launcher
func (s *Surface) SetNotification(on bool) {
	setFlag(s.badge, "hidden", !on)
}

// FocusInput marks the message input as the focused control
func (s *Surface) FocusInput() {
	setFlag(s.input, "autofocus", true)
}

// HTML serialises the widget root subtree
func (s *Surface) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, s.root); err != nil {
		return "", fmt.Errorf("failed to render widget: %w", err)
	}
	return buf.String(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, attr(key, val))
}

// setFlag adds or removes a boolean attribute
func setFlag(n *html.Node, key string, on bool) {
	if on {
		setAttr(n, key, "")
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
