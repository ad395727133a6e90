package segment

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MaxeeTig/creditstory/internal/entity"
)

// DefaultMinSpanLength filters out stray matches that captured no real
// content, such as a table-of-contents line.
const DefaultMinSpanLength = 100

// Segmenter cuts page text into ordered, non-overlapping loan-entry spans
// at header boundaries. Segmentation is a pure function of the text, so
// re-running it over the same input yields the same spans.
type Segmenter struct {
	matcher *Matcher
	minLen  int
	logger  *slog.Logger
}

func NewSegmenter(matcher *Matcher, minSpanLength int, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher == nil {
		matcher = NewMatcher()
	}
	if minSpanLength <= 0 {
		minSpanLength = DefaultMinSpanLength
	}
	return &Segmenter{matcher: matcher, minLen: minSpanLength, logger: logger}
}

// SegmentPage produces the candidate spans of one page's body text. Span i
// runs from boundary i to boundary i+1 (the last one to the end of text).
// Candidates whose collapsed content is shorter than the minimum length are
// dropped. A page with no recognized boundaries yields zero spans.
func (s *Segmenter) SegmentPage(pageNumber int, text string) []entity.Span {
	boundaries := s.matcher.FindAll(text)
	if len(boundaries) == 0 {
		return nil
	}

	spans := make([]entity.Span, 0, len(boundaries))
	for i, b := range boundaries {
		end := len(text)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].Start
		}
		content := collapseWhitespace(text[b.Start:end])
		if utf8.RuneCountInString(content) < s.minLen {
			s.logger.Debug("segment.span.dropped",
				"page", pageNumber,
				"ordinal", b.Ordinal,
				"length", utf8.RuneCountInString(content),
				"min_length", s.minLen,
			)
			continue
		}
		spans = append(spans, entity.Span{
			PageNumber:  pageNumber,
			StartOffset: b.Start,
			EndOffset:   end,
			Content:     content,
			ExtractedAt: time.Now().UTC(),
		})
	}

	s.logger.Debug("segment.page.ok",
		"page", pageNumber,
		"boundaries", len(boundaries),
		"spans", len(spans),
	)
	return spans
}

// collapseWhitespace folds every whitespace run, newlines included, into a
// single space and trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
