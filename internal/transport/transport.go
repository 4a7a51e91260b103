// Package transport defines the messaging contract between the exam engine
// and the chat platform. The engine talks to a [Messenger]; the Telegram
// adapter implements it. Keeping the engine off the bot API types makes the
// whole exam flow testable with an in-memory fake.
package transport

import "context"

// Keyboard selects which reply keyboard accompanies a message.
type Keyboard int

const (
	// KeyboardNone leaves the current keyboard untouched.
	KeyboardNone Keyboard = iota

	// KeyboardMain is the top-level menu (Speaking / Dictionary / Writing).
	KeyboardMain

	// KeyboardExam shows the in-exam controls (Pause / Resume / Stop / Back).
	KeyboardExam

	// KeyboardBack shows only the back button.
	KeyboardBack

	// KeyboardDictionary shows the dictionary direction choices.
	KeyboardDictionary
)

// MessageRef points at a sent message so its text can be edited in place.
// The countdown timer uses it to update the remaining seconds.
type MessageRef interface {
	Edit(ctx context.Context, text string) error
}

// Messenger delivers messages to a single chat platform user.
type Messenger interface {
	// SendText sends a text message, optionally switching the reply
	// keyboard, and returns a reference for later edits.
	SendText(ctx context.Context, userID int64, text string, kb Keyboard) (MessageRef, error)

	// SendPhoto sends the image file at path with a caption.
	SendPhoto(ctx context.Context, userID int64, path string, caption string) error
}
