// Package translate formats user-facing messages for the host locale.
package translate

import (
	"github.com/jeandeaual/go-locale"
	"github.com/retroenv/retrogolib/log"

	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.NewWithConfig(log.DefaultConfig()).Error("Locale detection failed", log.Err(err))
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
