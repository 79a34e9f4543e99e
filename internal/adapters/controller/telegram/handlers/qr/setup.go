package qr

import (
	tele "gopkg.in/telebot.v3"
)

// Setup registers the QR commands. owned guards commands whose first
// argument is a short code.
func (h Handler) Setup(group *tele.Group, owned tele.MiddlewareFunc) {
	group.Handle("/start", h.start)
	group.Handle("/help", h.start)
	group.Handle("/qr", h.render)
	group.Handle("/new", h.create)
	group.Handle("/list", h.list)
	group.Handle("/token", h.token)
	group.Handle(tele.OnDocument, h.restyle)

	group.Handle("/code", h.download, owned)
	group.Handle("/style", h.style, owned)
	group.Handle("/stats", h.stats, owned)
	group.Handle("/mail", h.sendMail, owned)
	group.Handle("/pause", h.setActive(false), owned)
	group.Handle("/resume", h.setActive(true), owned)
	group.Handle("/delete", h.remove, owned)
}
