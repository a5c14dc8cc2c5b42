// Package dispatch opens a prefilled WhatsApp Web compose view in the
// operator's browser. It deliberately stops there: the operator reviews
// the text and presses Enter manually.
package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

const composeBaseURL = "https://web.whatsapp.com/send"

var phoneCleaner = strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "")

type WhatsAppWeb struct {
	open func(url string) error
}

func NewWhatsAppWeb() *WhatsAppWeb {
	return &WhatsAppWeb{open: openBrowser}
}

// WithOpener overrides how the URL is opened (tests).
func (w *WhatsAppWeb) WithOpener(open func(url string) error) *WhatsAppWeb {
	w.open = open
	return w
}

// OpenCompose opens the default browser on a chat with the phone number,
// the message text prefilled.
func (w *WhatsAppWeb) OpenCompose(ctx context.Context, phone, text string) error {
	if phone == "" {
		return fmt.Errorf("open compose: phone is empty")
	}
	if err := w.open(ComposeURL(phone, text)); err != nil {
		return fmt.Errorf("open compose: %w", err)
	}
	return nil
}

// ComposeURL builds the wa.me-style prefill URL for a phone and text.
func ComposeURL(phone, text string) string {
	number := phoneCleaner.Replace(phone)
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("%s?phone=%s&text=%s", composeBaseURL, number, encoded)
}

func openBrowser(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	return cmd.Start()
}
