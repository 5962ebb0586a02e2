package support

import (
	"strings"
	"unicode"
)

const Fallback = "Thanks for your message. Our team will get back to you shortly. In the meantime, try reconnecting the device or check the settings page."

type rule struct {
	keywords []string
	reply    string
}

// Bot answers support chat messages from a fixed keyword table. The first
// rule with a matching keyword wins.
type Bot struct {
	rules []rule
}

func NewBot() *Bot {
	return &Bot{rules: []rule{
		{[]string{"connect", "bluetooth", "pair"}, "Make sure the Calibri sensor is charged and nearby, then press Connect. If it still fails, disconnect and connect again."},
		{[]string{"record", "session"}, "Start a recording from the monitoring page once the device is connected. Stopping keeps the samples so you can review them."},
		{[]string{"threshold", "sensitivity", "frequency", "setting"}, "Settings are on the settings page. Update frequency changes apply the next time you connect the device."},
		{[]string{"password", "login", "account", "register"}, "Passwords need at least 6 characters. If you cannot sign in, log out and try again with the email you registered with."},
		{[]string{"emg", "muscle", "signal"}, "The EMG envelope shows muscle activity. Relax your arm for a few seconds to get a clean baseline."},
		{[]string{"hello", "hi", "привет"}, "Hello! How can I help you with your Calibri device?"},
	}}
}

func (b *Bot) Reply(message string) string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, r := range b.rules {
		for _, k := range r.keywords {
			for _, w := range words {
				if matches(w, k) {
					return r.reply
				}
			}
		}
	}
	return Fallback
}

// matches compares short keywords exactly and longer ones by prefix, so
// "recording" hits "record" but "history" does not hit "hi".
func matches(word, keyword string) bool {
	if len(keyword) <= 3 {
		return word == keyword
	}
	return strings.HasPrefix(word, keyword)
}
