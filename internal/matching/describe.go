package matching

import "strings"

const describeTagLimit = 10

// DescribeSecondary renders tagger signals as analysis text for runs where
// the tagger is the only source. Lines are emitted only for signals present.
func DescribeSecondary(secondary SecondarySignals) string {
	var b strings.Builder
	b.WriteString("Caption: ")
	b.WriteString(secondary.Caption)
	b.WriteByte('\n')

	if len(secondary.DetectedTexts) > 0 {
		texts := make([]string, 0, len(secondary.DetectedTexts))
		for _, dt := range secondary.DetectedTexts {
			texts = append(texts, dt.Text)
		}
		b.WriteString("TEXT DETECTED: ")
		b.WriteString(strings.Join(texts, " | "))
		b.WriteByte('\n')
	}

	if len(secondary.Tags) > 0 {
		tags := secondary.Tags
		if len(tags) > describeTagLimit {
			tags = tags[:describeTagLimit]
		}
		names := make([]string, 0, len(tags))
		for _, tag := range tags {
			names = append(names, tag.Name)
		}
		b.WriteString("Tags: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteByte('\n')
	}
	return b.String()
}
