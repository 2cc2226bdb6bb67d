package widget

import "github.com/Rrens/chat-widget/internal/domain"

// ViewModel describes what the surface shows for a given state. The
// Surface applies the same mapping imperatively, one operation at a time.
type ViewModel struct {
	RootClass     string
	Title         string
	AvatarURL     string
	Placeholder   string
	PanelVisible  bool
	BadgeVisible  bool
	TypingVisible bool
	InputDisabled bool
	Bubbles       []Bubble
}

// Bubble is one rendered log entry
type Bubble struct {
	Role  domain.MessageRole
	Class string
	Text  string
}

// View maps a configuration and a state snapshot to the view description
func View(cfg domain.WidgetConfig, snap Snapshot) ViewModel {
	vm := ViewModel{
		RootClass:     "cw-root cw-" + string(cfg.Position),
		Title:         cfg.DisplayName,
		AvatarURL:     cfg.AvatarURL,
		Placeholder:   cfg.InputPlaceholder,
		PanelVisible:  snap.State == StateOpen,
		BadgeVisible:  snap.Notification,
		TypingVisible: snap.AwaitingReply,
		InputDisabled: snap.AwaitingReply,
		Bubbles:       make([]Bubble, 0, len(snap.Messages)),
	}
	for _, m := range snap.Messages {
		vm.Bubbles = append(vm.Bubbles, Bubble{
			Role:  m.Role,
			Class: "cw-message cw-" + string(m.Role),
			Text:  m.Content,
		})
	}
	return vm
}

// View returns the view description of the current state
func (w *Widget) View() ViewModel {
	return View(w.cfg, w.Snapshot())
}
