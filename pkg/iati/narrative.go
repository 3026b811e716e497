package iati

import (
	"strings"

	"golang.org/x/text/language"
)

// PreferredNarrative picks the display value from a multilingual narrative
// list: the first narrative whose language matches the preferred tag, or
// the first narrative when no language matches. The full list is always
// retained on the element for persistence; this only affects display.
func PreferredNarrative(narratives []Narrative, preferred language.Tag) string {
	if len(narratives) == 0 {
		return ""
	}
	if preferred == language.Und {
		return strings.TrimSpace(narratives[0].Text)
	}

	tags := make([]language.Tag, 0, len(narratives))
	indexes := make([]int, 0, len(narratives))
	for i, n := range narratives {
		if n.Lang == "" {
			continue
		}
		tag, err := language.Parse(n.Lang)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		indexes = append(indexes, i)
	}

	if len(tags) > 0 {
		matcher := language.NewMatcher(tags)
		if _, idx, conf := matcher.Match(preferred); conf > language.No {
			return strings.TrimSpace(narratives[indexes[idx]].Text)
		}
	}

	return strings.TrimSpace(narratives[0].Text)
}

// DisplayText returns the block's display value for the preferred language.
func (t TextBlock) DisplayText(preferred language.Tag) string {
	return PreferredNarrative(t.Narratives, preferred)
}
