package matching

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"menumatch/internal/textutil"
)

var confidenceScoreTail = regexp.MustCompile(`(?is)CONFIDENCE[^\p{L}\p{N}_]*SCORE.*`)

// MatchFilename derives the output file name for a match. The result depends
// only on match, confidence and the extension of fileName. An empty match
// returns fileName unchanged.
func MatchFilename(match string, confidence float64, fileName string) string {
	_, ext := textutil.SplitExt(fileName)
	if match == "" {
		return fileName
	}

	pct := strconv.Itoa(int(math.Floor(confidence * 100)))

	if IsUnmatched(match) {
		label := strings.TrimSpace(match[len(UnmatchedPrefix):])
		label = strings.TrimSpace(confidenceScoreTail.ReplaceAllString(label, ""))
		label = textutil.SanitizeFileComponent(textutil.CollapseWhitespace(label, "_"))
		return "UNMATCHED_" + label + "_conf" + pct + ext
	}

	label := textutil.SanitizeFileComponent(textutil.CollapseWhitespace(match, "_"))
	return label + "_conf" + pct + ext
}
