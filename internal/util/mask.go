package util

import "strings"

// MaskSecret enmascara un secreto para poder loguear "hay algo configurado"
// sin filtrar el valor. Deja primeros/últimos 2 chars si hay largo suficiente.
func MaskSecret(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "***"
	}
	return s[:2] + "…" + s[len(s)-2:]
}
