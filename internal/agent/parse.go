package agent

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/hlavac/versionone-go/internal/logger"
)

// Answer is the finalized, parsed response the system will speak and
// display.
type Answer struct {
	Long      string
	Short     string
	MediaURLs []string
}

// fallbackShort is shown when the model's output could not be parsed and
// no summary exists to speak.
const fallbackShort = "Here is a short summary."

type rawAnswer struct {
	LongAnswer  *string `json:"long_answer"`
	ShortAnswer string  `json:"short_answer"`
	MediaURLs   any     `json:"media_urls"`
}

// ParseAnswer parses the model's raw output into an Answer. Model output
// is unreliable input: on any parse failure, or when the long_answer key
// is absent, the whole raw text becomes the long answer and media URLs
// are dropped. The fallback is a first-class branch, reported via ok,
// never an escaping error. A long_answer that is present but empty is
// kept as-is, and a media_urls value of the wrong type is coerced to an
// empty list rather than failing the parse.
func ParseAnswer(raw string) (answer Answer, ok bool) {
	var parsed rawAnswer
	if err := sonic.Unmarshal([]byte(raw), &parsed); err != nil || parsed.LongAnswer == nil {
		logger.L.Warn("model output not valid JSON; falling back to raw text")
		return Answer{Long: raw, Short: fallbackShort}, false
	}

	answer = Answer{
		Long:  strings.TrimSpace(*parsed.LongAnswer),
		Short: strings.TrimSpace(parsed.ShortAnswer),
	}
	if urls, isList := parsed.MediaURLs.([]any); isList {
		for _, u := range urls {
			if s, isString := u.(string); isString {
				answer.MediaURLs = append(answer.MediaURLs, s)
			}
		}
	}
	return answer, true
}
