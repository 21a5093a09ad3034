package display

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: no clipboard utility available")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

// ShareURL returns a WhatsApp link that pre-fills text. Spaces are encoded
// as %20 so the message survives clients that do not decode '+'.
func ShareURL(text string) string {
	return "https://wa.me/?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
