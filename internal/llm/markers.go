package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

const transferMarker = "[TRANSFER]"

var quotationRE = regexp.MustCompile(`(?s)\[QUOTATION_COMPLETE\](\{.*\})`)

// Parsed is a model reply with its control markers removed.
type Parsed struct {
	Text     string
	Transfer bool
	// Quotation is the decoded [QUOTATION_COMPLETE] payload, nil when absent
	// or malformed.
	Quotation map[string]any
}

// ParseMarkers strips [TRANSFER] and [QUOTATION_COMPLETE]{json} from raw.
// Malformed JSON is dropped from the text but otherwise ignored.
func ParseMarkers(raw string) Parsed {
	out := Parsed{Text: raw}

	if strings.Contains(out.Text, transferMarker) {
		out.Transfer = true
		out.Text = strings.TrimSpace(strings.ReplaceAll(out.Text, transferMarker, ""))
	}

	if m := quotationRE.FindStringSubmatchIndex(out.Text); m != nil {
		var payload map[string]any
		if err := json.Unmarshal([]byte(out.Text[m[2]:m[3]]), &payload); err == nil {
			out.Quotation = payload
		}
		out.Text = strings.TrimSpace(out.Text[:m[0]] + out.Text[m[1]:])
	}
	return out
}
