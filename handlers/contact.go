package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

const whatsAppGreeting = "Bonjour, je souhaite avoir des informations sur vos excursions."

type ContactInfo struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	WhatsApp string `json:"whatsapp"`
}

type ContactHandler struct {
	info ContactInfo
}

func NewContactHandler(phone, email string) *ContactHandler {
	return &ContactHandler{info: ContactInfo{
		Phone:    phone,
		Email:    email,
		WhatsApp: WhatsAppLink(phone, whatsAppGreeting),
	}}
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.info)
}

// WhatsAppLink builds a wa.me deep link from a phone number in any format.
func WhatsAppLink(phone, text string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	return "https://wa.me/" + digits + "?" + url.Values{"text": {text}}.Encode()
}
