// Package translate formats user-facing messages for the host locale.
package translate

import (
	"github.com/jeandeaual/go-locale"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/message"
)

var printer = newPrinter()

func newPrinter() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		logrus.WithError(err).Debug("translate: locale lookup failed")
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
}

// From formats an en-US Sprintf() key for the current locale.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
