package tools

import (
	"net/url"
	"regexp"
	"strings"
)

func ValidateEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	re := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return re.MatchString(email)
}

func CheckPassword(password string) string {
	if len(password) < 6 {
		return "password"
	}
	return ""
}

// ValidateDocumentURL exige uma URL https absoluta (documentos ready apontam
// para o blob público; http puro não é aceito).
func ValidateDocumentURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}
