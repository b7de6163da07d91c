package editor

import "github.com/atotto/clipboard"

// SystemClipboard writes through the OS clipboard. The copy-selector
// action falls back to a notification when no clipboard is available,
// so headless environments degrade gracefully.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
