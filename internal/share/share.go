// Package share invites other people to the calendar: through a share sheet
// when one is available, otherwise by copying the calendar link.
package share

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
)

// Confirmation messages shown after a link lands on the clipboard.
const (
	SharedMessage = "Link copied! Share it with a friend 💛"
	CopiedMessage = "Link copied to your clipboard."
)

// Payload is what gets shared.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Sheet is a platform share sheet.
type Sheet interface {
	Share(ctx context.Context, p Payload) error
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// SystemClipboard is the OS clipboard.
var SystemClipboard Clipboard = systemClipboard{}

// Available reports whether the OS clipboard can be used.
func Available() bool {
	return !clipboard.Unsupported
}

// Share offers p through sheet. When sheet is nil or fails, the URL is
// copied to cb instead and the returned message confirms the copy. A sheet
// failure is not reported; only a clipboard failure is.
func Share(ctx context.Context, p Payload, sheet Sheet, cb Clipboard) (string, error) {
	if sheet != nil {
		if err := sheet.Share(ctx, p); err == nil {
			return "", nil
		}
	}
	if err := writeClipboard(cb, p.URL); err != nil {
		return "", err
	}
	return SharedMessage, nil
}

// CopyLink copies url to cb.
func CopyLink(url string, cb Clipboard) (string, error) {
	if err := writeClipboard(cb, url); err != nil {
		return "", err
	}
	return CopiedMessage, nil
}

func writeClipboard(cb Clipboard, text string) error {
	if cb == nil {
		cb = SystemClipboard
	}
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("copying link: %w", err)
	}
	return nil
}
