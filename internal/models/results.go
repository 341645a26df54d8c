package models

// Hit is the outcome of one pattern rule matching one signal value.
type Hit struct {
	// Technology is the signature name that produced the hit.
	Technology string
	// Category is the signal category, e.g. "headers" or "scriptSrc".
	Category string
	// Key is the sub-key within the category (header name, js path,
	// selector); empty for list categories like html.
	Key string
	// Pattern is the pattern text as written in the signature file.
	Pattern string
	// Confidence weight of the matched rule.
	Confidence int
	// Version extracted via the rule's version template, may be empty.
	Version string
}

// BreakdownKey builds the confidence-breakdown key for the hit. Identical
// keys from repeated matches of the same rule collapse into one entry.
func (h Hit) BreakdownKey() string {
	if h.Key == "" {
		return h.Category + " " + h.Pattern
	}
	return h.Category + " " + h.Key + " " + h.Pattern
}

// Detection is the merged, per-technology result of one inspection.
type Detection struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Website     string         `json:"website,omitempty"`
	CPE         string         `json:"cpe,omitempty"`
	Pricing     []string       `json:"pricing,omitempty"`
	OSS         bool           `json:"oss"`
	SaaS        bool           `json:"saas"`
	Categories  []string       `json:"cats"`
	Versions    []string       `json:"versions"`
	Confidence  int            `json:"confidence"`
	Breakdown   map[string]int `json:"confidenceBreakdown"`
	// Implied is true when the detection exists only because another
	// detection implies it, with no direct pattern evidence.
	Implied bool `json:"implied,omitempty"`
	// MissingRequires lists required technologies that were not
	// detected. The detection is kept; the flag is advisory.
	MissingRequires []string `json:"missingRequires,omitempty"`
}

// Report is the final result of one inspection.
type Report struct {
	// RunID uniquely identifies the inspection run.
	RunID string `json:"runId"`
	// URL is the inspected page's final URL, when known.
	URL string `json:"url,omitempty"`
	// Technologies maps technology name to its detection.
	Technologies map[string]*Detection `json:"technologies"`
	// Count is the number of surviving detections.
	Count int `json:"count"`
}

// CategoryGroup is one bucket of the by-category view of a report.
type CategoryGroup struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Priority     int          `json:"-"`
	Technologies []*Detection `json:"technologies"`
}
