package convo

import (
	"regexp"
	"strings"
)

// Tagger classifies free-text user messages into a coarse intent and an
// emotion label. Rules are ordered: the first matching rule wins, so the
// output is deterministic for any input.

// Label is a detected intent or emotion with its rule confidence.
type Label struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type rule struct {
	label      string
	confidence float64
	pattern    *regexp.Regexp
}

var intentRules = []rule{
	{"loan", 0.85, regexp.MustCompile(`loan|vay|mortgage|interest|lãi suất`)},
	{"travel", 0.80, regexp.MustCompile(`travel|du lịch|flight|hotel|vé máy bay|khách sạn`)},
	{"saving", 0.80, regexp.MustCompile(`saving|tiết kiệm|deposit|gửi góp|lãi kép`)},
	{"credit", 0.75, regexp.MustCompile(`credit|thẻ tín dụng|limit|cashback|points`)},
	{"insurance", 0.75, regexp.MustCompile(`insurance|bảo hiểm|policy|premium`)},
	{"spending", 0.70, regexp.MustCompile(`spending|chi tiêu|budget|ngân sách|transaction|giao dịch`)},
	{"investment", 0.70, regexp.MustCompile(`invest|đầu tư|stock|fund|bond|etf|cổ phiếu`)},
}

var emotionRules = []rule{
	{"stress", 0.80, regexp.MustCompile(`urgent|gấp|kẹt|overdue|nợ|debt|stress|áp lực`)},
	{"concern", 0.75, regexp.MustCompile(`worried|lo|concern|sợ|không biết`)},
	{"excitement", 0.75, regexp.MustCompile(`great|tuyệt|excited|hào hứng|được rồi|yay`)},
}

// DetectIntent classifies the message topic. Unmatched text falls back to
// "unknown" with low confidence rather than guessing.
func DetectIntent(text string) Label {
	t := strings.ToLower(text)
	for _, r := range intentRules {
		if r.pattern.MatchString(t) {
			return Label{Label: r.label, Confidence: r.confidence}
		}
	}
	return Label{Label: "unknown", Confidence: 0.4}
}

// DetectEmotion classifies the message tone, defaulting to neutral.
func DetectEmotion(text string) Label {
	t := strings.ToLower(text)
	for _, r := range emotionRules {
		if r.pattern.MatchString(t) {
			return Label{Label: r.label, Confidence: r.confidence}
		}
	}
	return Label{Label: "neutral", Confidence: 0.7}
}
