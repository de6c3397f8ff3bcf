// Package i18n holds the French and English messages shown to operators.
// French is the default language.
package i18n

import (
	"fmt"
	"strings"
)

const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":             "Requis",
		"must_be_positive":     "Doit être positif",
		"must_not_be_negative": "Ne doit pas être négatif",
		"invalid_number":       "Nombre invalide",
		"invalid_email":        "Email invalide",
		"out_of_range":         "Hors limites",
		"not_found":            "Introuvable",
		"forbidden":            "Accès refusé",
		"unauthorized":         "Non authentifié",
		"referenced":           "Enregistrement encore référencé",
		"duplicate":            "Référence déjà utilisée",
		"order_locked":         "Commande validée : modification impossible",
		"order_not_validated":  "La commande doit être validée",
		"invalid_credentials":  "Email ou mot de passe invalide",
		"insufficient_stock":   "Stock insuffisant",
		"invalid_order":        "Commande invalide",
		"invalid_body":         "Requête invalide",
		"validation":           "Données invalides",
		"internal_error":       "Erreur interne",
		"too_short":            "Trop court",
		"wrong_password":       "Mot de passe actuel incorrect",

		"validation.insufficient_stock": "Stock insuffisant pour %s (commande %s : demandé %d, disponible %d)",
		"validation.order_not_found":    "Commande %d introuvable",
		"validation.summary":            "Opération de validation terminée : %d validée(s), %d déjà validée(s), %d échec(s).",
	},
	"en": {
		"required":             "Required",
		"must_be_positive":     "Must be positive",
		"must_not_be_negative": "Must not be negative",
		"invalid_number":       "Invalid number",
		"invalid_email":        "Invalid email",
		"out_of_range":         "Out of range",
		"not_found":            "Not found",
		"forbidden":            "Forbidden",
		"unauthorized":         "Unauthorized",
		"referenced":           "Record is still referenced",
		"duplicate":            "Reference already in use",
		"order_locked":         "Order is validated and cannot be changed",
		"order_not_validated":  "Order must be validated first",
		"invalid_credentials":  "Invalid email or password",
		"insufficient_stock":   "Insufficient stock",
		"invalid_order":        "Invalid order",
		"invalid_body":         "Invalid request body",
		"validation":           "Invalid data",
		"internal_error":       "Internal error",
		"too_short":            "Too short",
		"wrong_password":       "Current password is incorrect",

		"validation.insufficient_stock": "Insufficient stock for %s (order %s: requested %d, available %d)",
		"validation.order_not_found":    "Order %d not found",
		"validation.summary":            "Validation finished: %d validated, %d already validated, %d failed.",
	},
}

// DetectLanguage picks "en" or "fr" from an Accept-Language header.
// Only the first tag counts; anything but English falls back to French.
func DetectLanguage(acceptLanguage string) string {
	first, _, _ := strings.Cut(acceptLanguage, ",")
	first, _, _ = strings.Cut(first, ";")
	tag := strings.ToLower(strings.TrimSpace(first))
	if tag == "en" || strings.HasPrefix(tag, "en-") {
		return "en"
	}
	return DefaultLang
}

// Supported reports whether lang has a message table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// T returns the message for code in lang, then in French, then code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// Tf formats the message for code with args.
func Tf(lang, code string, args ...any) string {
	return fmt.Sprintf(T(lang, code), args...)
}
