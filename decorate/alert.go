package decorate

import (
	"strconv"

	"golang.org/x/net/html"
)

// Element ids of the page alert box.
const (
	MessageID = "msgerr"
	AlertID   = "alertMsg"
)

// Alert animation timings, read by the page script from data attributes.
const (
	AlertFadeMs  = 2000
	AlertSlideMs = 500
)

// ShowError writes msg into the #msgerr element and marks #alertMsg to be
// shown, faded and slid up by the page script. Missing elements are ignored;
// a later call overwrites the message.
func ShowError(doc *html.Node, msg string) {
	if doc == nil {
		return
	}
	if m := findByID(doc, MessageID); m != nil {
		setText(m, msg)
	}
	alert := findByID(doc, AlertID)
	if alert == nil {
		return
	}
	removeClass(alert, "d-none")
	addClass(alert, "show")
	setAttr(alert, "data-fade-ms", strconv.Itoa(AlertFadeMs))
	setAttr(alert, "data-slide-ms", strconv.Itoa(AlertSlideMs))
}
