// Package intent maps a broker's raw message to a routing label. The
// classifier is pure and deterministic: no I/O, no model calls.
package intent

import (
	"strings"
	"unicode/utf8"
)

// Intent is a routing label produced by Classify.
type Intent string

const (
	Greeting Intent = "greeting"
	QA       Intent = "qa"
	Quote    Intent = "quote"
	Handoff  Intent = "handoff"
	Unknown  Intent = "unknown"
)

func (i Intent) String() string { return string(i) }

// shortMessageRunes is the length at or below which unmatched text is
// considered too short to be a question.
const shortMessageRunes = 3

// Handoff phrases are checked before quote phrases because a few of them
// overlap with insurance vocabulary.
var handoffKeywords = []string{
	"/humano", "falar com humano", "falar com uma pessoa", "atendente",
	"pessoa real", "quero falar com", "preciso de um humano",
	"falar com alguem", "falar com alguém", "especialista", "consultor",
	"me transfere", "transferir",
}

var quoteKeywords = []string{
	"cotar", "cotação", "cotacao", "quero cotar", "fazer uma cotação",
	"preciso de uma cotação", "preciso de cotacao", "cotação de",
	"cotar um", "cotar uma",
}

var greetingKeywords = []string{
	"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite",
	"hey", "hello", "tudo bem", "tudo bom", "e aí", "e ai",
	"opa", "fala", "bão",
}

// menu maps the standalone digits of the welcome menu to their intents.
var menu = map[string]Intent{
	"1": QA,
	"2": Quote,
	"3": Handoff,
}

// Classify returns the routing label for text. Precedence:
//  1. the whole trimmed message is a menu digit
//  2. a handoff phrase appears anywhere
//  3. a quote phrase appears anywhere
//  4. the message starts with a greeting
//  5. anything longer than three characters is a question
//  6. otherwise Unknown
func Classify(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	if in, ok := menu[lower]; ok {
		return in
	}
	if containsAny(lower, handoffKeywords) {
		return Handoff
	}
	if containsAny(lower, quoteKeywords) {
		return Quote
	}
	for _, k := range greetingKeywords {
		if strings.HasPrefix(lower, k) {
			return Greeting
		}
	}
	if utf8.RuneCountInString(lower) > shortMessageRunes {
		return QA
	}
	return Unknown
}

// IsMenuShortcut reports whether text, once trimmed, is exactly one of the
// menu digits. Inside an active quote these digits are field answers rather
// than menu choices.
func IsMenuShortcut(text string) bool {
	_, ok := menu[strings.TrimSpace(text)]
	return ok
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
