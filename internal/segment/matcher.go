package segment

import (
	"regexp"
	"sort"
	"strconv"
)

// BoundaryMatch describes a recognized entry header: the position where a
// new loan entry starts, the leading ordinal, and the free-text label
// between the ordinal and the deal-type tag.
type BoundaryMatch struct {
	// Start is the byte offset of the ordinal within the scanned text.
	Start   int
	Ordinal int
	Label   string
	// Rule is the name of the boundary rule that recognized the header.
	Rule string
}

// boundaryRule is one entry of the ordered rule list. Rules are evaluated
// in declaration order and the first rule to claim a position wins.
type boundaryRule struct {
	name string
	re   *regexp.Regexp
}

// headerPattern builds the scanning pattern for one deal-type tag phrase:
// an ordinal, a dot, a free-text label, a dash separator and the tag.
// A dash-separated sub-label may follow the tag but is not consumed, so a
// header immediately followed by another header stays detectable.
func headerPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|\s)(\d+)\.\s+(.+?)\s*[-—–]\s*` + tag)
}

// Matcher recognizes start-of-entry header lines in report page text.
type Matcher struct {
	rules []boundaryRule
}

// NewMatcher returns a matcher with the recognized deal-type vocabulary.
// The report body uses the Russian tag phrases; the English equivalents
// cover translated reports. Internal whitespace in tag phrases is flexible.
func NewMatcher() *Matcher {
	return &Matcher{rules: []boundaryRule{
		{"loan-agreement", headerPattern(`(?:Договор\s+займа\s*\(кредита\)|Loan\s+Agreement)`)},
		{"suretyship", headerPattern(`(?:Поручительство\s+по\s+займу\s*\(кредиту\)|Suretyship\s+for\s+a\s+loan)`)},
		{"consumer-credit", headerPattern(`(?:Потребит\.\s*кредит|Consumer\s+credit)`)},
		{"credit-card", headerPattern(`(?:Кредитная\s+карта|Credit\s+card)`)},
		{"microloan", headerPattern(`(?:Микрокредит|Microloan)`)},
	}}
}

// Match reports whether the given text begins a new loan entry. A no-match
// is not an error: the text belongs to the preceding span.
func (m *Matcher) Match(text string) (BoundaryMatch, bool) {
	for _, rule := range m.rules {
		loc := rule.re.FindStringSubmatchIndex(text)
		if loc == nil || loc[2] != 0 {
			continue
		}
		return m.boundary(rule, text, loc), true
	}
	return BoundaryMatch{}, false
}

// FindAll returns every boundary position in the text, in document order.
// When two rules recognize a header at the same position, the
// earliest-defined rule wins.
func (m *Matcher) FindAll(text string) []BoundaryMatch {
	byStart := make(map[int]BoundaryMatch)
	for _, rule := range m.rules {
		for _, loc := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			start := loc[2]
			if _, claimed := byStart[start]; claimed {
				continue
			}
			byStart[start] = m.boundary(rule, text, loc)
		}
	}
	matches := make([]BoundaryMatch, 0, len(byStart))
	for _, b := range byStart {
		matches = append(matches, b)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
	return matches
}

func (m *Matcher) boundary(rule boundaryRule, text string, loc []int) BoundaryMatch {
	ordinal, _ := strconv.Atoi(text[loc[2]:loc[3]])
	return BoundaryMatch{
		Start:   loc[2],
		Ordinal: ordinal,
		Label:   text[loc[4]:loc[5]],
		Rule:    rule.name,
	}
}
