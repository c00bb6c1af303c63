// Package links builds click-to-chat WhatsApp URLs. Nothing is sent; the
// console only opens the link.
package links

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// WhatsAppBase is the click-to-chat endpoint.
const WhatsAppBase = "https://wa.me/"

// CountryCode replaces the leading trunk 0 of local workshop numbers.
const CountryCode = "27"

// NormalizeDriverPhone strips every whitespace character from phone.
func NormalizeDriverPhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// NormalizeWorkshopPhone strips whitespace and turns a leading local 0 into
// the country code.
func NormalizeWorkshopPhone(phone string) string {
	p := NormalizeDriverPhone(phone)
	if strings.HasPrefix(p, "0") {
		p = CountryCode + p[1:]
	}
	return p
}

// componentUnescaper undoes the escapes url.QueryEscape applies to characters
// that encodeURIComponent leaves alone, and writes spaces as %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// Encode percent-encodes text the way a browser's encodeURIComponent does for
// message bodies.
func Encode(text string) string {
	return componentUnescaper.Replace(url.QueryEscape(text))
}

// URL returns the chat link for an already normalized number.
func URL(phone, text string) string {
	return WhatsAppBase + phone + "?text=" + Encode(text)
}

// DriverReminder returns the link reminding a driver of an outstanding amount.
func DriverReminder(phone, name string, outstanding float64) string {
	return URL(NormalizeDriverPhone(phone), ReminderMessage(name, outstanding))
}

// WorkshopBooking returns the link asking a workshop to book a bike in.
func WorkshopBooking(phone, workshop, bike string) string {
	return URL(NormalizeWorkshopPhone(phone), BookingMessage(workshop, bike))
}

// ReminderMessage is the canned payment reminder text.
func ReminderMessage(name string, outstanding float64) string {
	return fmt.Sprintf("Hi %s, this is a friendly reminder that R%.2f of your bike rental is outstanding. Please make a payment as soon as possible. Thank you!", name, outstanding)
}

// BookingMessage is the canned service booking text.
func BookingMessage(workshop, bike string) string {
	return fmt.Sprintf("Hi %s, we would like to book motorbike %s in for a service. When is your next available slot?", workshop, bike)
}
