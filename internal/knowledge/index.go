package knowledge

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tbourn/go-broker-assistant/internal/utils"
)

// Fact is one retrievable statement. Product is empty for general facts.
type Fact struct {
	Product Product
	Text    string
}

// Result is a ranked fact with its similarity score.
type Result struct {
	Product Product
	Snippet string
	Score   float64
}

// Index ranks facts against a query. Implementations are read-only after
// construction and safe for concurrent use.
type Index interface {
	// TopK returns up to k facts by similarity to query, over all products.
	TopK(query string, k int) []Result
	// Lookup is TopK restricted to one product plus general facts. An empty
	// product behaves like TopK.
	Lookup(query string, product Product, k int) []Result
	// Len is the number of indexed facts.
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minRunes  int
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{
		minRunes:  12,
		stopwords: toSet(portugueseStopwords),
		maxDocs:   0,
	}
}

// WithMinRunes drops facts shorter than n runes. Negative values are ignored.
func WithMinRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

// WithStopwords replaces the default Portuguese stop-word list. An empty list
// disables stop-word removal.
func WithStopwords(words []string) Option {
	return func(c *config) {
		c.stopwords = toSet(words)
	}
}

// WithMaxDocs caps the number of indexed facts.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

var portugueseStopwords = []string{
	"a", "o", "as", "os", "um", "uma", "de", "da", "do", "das", "dos",
	"e", "em", "no", "na", "nos", "nas", "para", "por", "com", "que",
	"se", "ou", "ao", "aos", "como", "qual", "quais", "seguro", "tem",
	"ter", "sobre", "me", "meu", "minha", "eu", "voce", "isso",
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = utils.Fold(w)
		if w != "" {
			m[w] = struct{}{}
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	product Product
	text    string
	tokens  map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over facts.
func NewIndex(facts []Fact, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(facts))
	for _, f := range facts {
		t := strings.TrimSpace(normalizeWhitespace(f.Text))
		if t == "" {
			continue
		}
		if cfg.minRunes > 0 && utf8.RuneCountInString(t) < cfg.minRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{product: f.Product, text: t, tokens: toks})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// CatalogFacts flattens Catalog into facts, in detection order.
func CatalogFacts() []Fact {
	var out []Fact
	for _, p := range Products() {
		for _, line := range Catalog[p].Lines() {
			out = append(out, Fact{Product: p, Text: line})
		}
	}
	return out
}

func (i *index) Len() int { return len(i.docs) }

func (i *index) TopK(q string, k int) []Result { return i.Lookup(q, "", k) }

// Lookup scores with Jaccard similarity |Q ∩ D| / |Q ∪ D|. Ties go to the
// shorter fact, then lexical order, so results are deterministic.
func (i *index) Lookup(q string, product Product, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	type scored struct {
		d        *doc
		score    float64
		lenRunes int
	}
	var buf []scored
	for n := range i.docs {
		d := &i.docs[n]
		if product != "" && d.product != "" && d.product != product {
			continue
		}
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(len(qTokens)+len(d.tokens)-over)
		buf = append(buf, scored{d: d, score: score, lenRunes: utf8.RuneCountInString(d.text)})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].d.text < buf[b].d.text
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Product: buf[n].d.product, Snippet: buf[n].d.text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

// tokenize folds accents so "saúde" and "saude" share a token.
func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(utils.Fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
