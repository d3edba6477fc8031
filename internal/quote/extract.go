package quote

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbourn/go-broker-assistant/internal/utils"
)

// Extractor is the constrained generative fallback used when the fast
// patterns cannot read a field. Implementations return the model's raw
// answer; validation happens here.
type Extractor interface {
	// ExtractLives answers with an integer or "NENHUM".
	ExtractLives(ctx context.Context, text string) (string, error)
	// ExtractAgeRange answers with "XX-YY" or "NENHUMA".
	ExtractAgeRange(ctx context.Context, text string) (string, error)
}

const (
	minLives = 1
	maxLives = 100
	maxAge   = 120
)

var (
	pureNumberRE   = regexp.MustCompile(`^\s*(\d+)\s*$`)
	inlineNumberRE = regexp.MustCompile(`\b(\d{1,3})\b`)

	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,3})\s*[-–]\s*(\d{1,3})\b`),     // 20-30, 20–30
		regexp.MustCompile(`(?i)\b(\d{1,3})\s+a\s+(\d{1,3})\b`),    // 20 a 30
		regexp.MustCompile(`(?i)entre\s+(\d{1,3})\s+e\s+(\d{1,3})\b`), // entre 20 e 30
		regexp.MustCompile(`(?i)de\s+(\d{1,3})\s+a\s+(\d{1,3})\b`),    // de 20 a 30
	}
	ageAnswerRE = regexp.MustCompile(`^(\d{1,3})-(\d{1,3})$`)
)

// LivesFast reads a lives count without any external call. A message that
// is only a number is final: out of range means no value, with no inline
// fallback.
func LivesFast(text string) (int, bool) {
	if m := pureNumberRE.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < minLives || n > maxLives {
			return 0, false
		}
		return n, true
	}
	if m := inlineNumberRE.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= minLives && n <= maxLives {
			return n, true
		}
	}
	return 0, false
}

// pureNumber reports whether text is only digits (and spaces).
func pureNumber(text string) bool { return pureNumberRE.MatchString(text) }

// ParseLivesAnswer validates an extractor answer.
func ParseLivesAnswer(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "NENHUM") {
		return 0, false
	}
	n, err := strconv.Atoi(leadingDigits(raw))
	if err != nil || n < minLives || n > maxLives {
		return 0, false
	}
	return n, true
}

// AgeRangeFast reads an age range like "30-40", "30 a 40",
// "entre 30 e 40" or "de 30 a 40". The result is normalized to "min-max".
func AgeRangeFast(text string) (string, bool) {
	for _, re := range agePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if r, ok := ageRange(m[1], m[2]); ok {
			return r, true
		}
	}
	return "", false
}

// ParseAgeAnswer validates an extractor answer.
func ParseAgeAnswer(raw string) (string, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if raw == "" || strings.EqualFold(raw, "NENHUMA") {
		return "", false
	}
	m := ageAnswerRE.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return ageRange(m[1], m[2])
}

func ageRange(a, b string) (string, bool) {
	lo, err1 := strconv.Atoi(a)
	hi, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil || lo < 0 || hi > maxAge || lo >= hi {
		return "", false
	}
	return strconv.Itoa(lo) + "-" + strconv.Itoa(hi), true
}

// parseRange splits a normalized "min-max" string.
func parseRange(r string) (lo, hi int, ok bool) {
	m := ageAnswerRE.FindStringSubmatch(r)
	if m == nil {
		return 0, 0, false
	}
	lo, _ = strconv.Atoi(m[1])
	hi, _ = strconv.Atoi(m[2])
	return lo, hi, true
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// Normalize lowercases, trims and strips diacritics ("São Paulo" ->
// "sao paulo").
func Normalize(s string) string { return utils.Fold(s) }

// Cities is the list of cities a quote can be priced for.
var Cities = []string{
	"Sao Paulo",
	"Rio de Janeiro",
	"Belo Horizonte",
	"Curitiba",
	"Porto Alegre",
}

var cityAliases = map[string]string{
	"sp":             "Sao Paulo",
	"sao paulo":      "Sao Paulo",
	"sampa":          "Sao Paulo",
	"rio":            "Rio de Janeiro",
	"rj":             "Rio de Janeiro",
	"rio de janeiro": "Rio de Janeiro",
	"bh":             "Belo Horizonte",
	"belo horizonte": "Belo Horizonte",
	"cwb":            "Curitiba",
	"curitiba":       "Curitiba",
	"poa":            "Porto Alegre",
	"porto alegre":   "Porto Alegre",
}

// ResolveCity maps an alias to its canonical city.
func ResolveCity(text string) (string, bool) {
	key := strings.Join(strings.Fields(Normalize(text)), " ")
	key = strings.TrimRight(key, ".!?")
	c, ok := cityAliases[key]
	return c, ok
}

// ResolvePlanType accepts the menu digits or the tier names.
func ResolvePlanType(text string) (PlanType, bool) {
	switch strings.TrimRight(Normalize(text), ".!") {
	case "1", "enfermaria":
		return PlanEnfermaria, true
	case "2", "apartamento", "apto":
		return PlanApartamento, true
	}
	return "", false
}
