package building

import "beltworks.dev/internal/sim/message"

// ErrorBuilding stands in for a building that could not be constructed.
type ErrorBuilding struct {
	name   string
	reason string
}

func NewErrorBuilding(name, reason string) *ErrorBuilding {
	return &ErrorBuilding{name: name, reason: reason}
}

func (e *ErrorBuilding) Name() string   { return e.name }
func (e *ErrorBuilding) Kind() Kind     { return KindError }
func (e *ErrorBuilding) Reason() string { return e.reason }

func (e *ErrorBuilding) Tick(uint64) {}

func (e *ErrorBuilding) PullMessages(uint64) []*message.Message { return nil }

func (e *ErrorBuilding) MessageSendResult(message.SendResult) {}

func (e *ErrorBuilding) TryPushMessage(msg *message.Message) *message.Message { return msg }

func (e *ErrorBuilding) View() View {
	return View{Name: e.name, Kind: KindError, State: e.reason}
}
