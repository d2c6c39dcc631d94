package elevenlabs

import (
	"regexp"
	"strings"
)

// expressionTag matches delivery hints the model may already have written.
var expressionTag = regexp.MustCompile(`(?i)\[(gentle|gently|warmly|soothing|confidently|reverently|encouragingly|caringly|peacefully|hopefully|compassionate|loving|prayerful|encouraging|authoritative)\]`)

type tagRule struct {
	keywords []string
	tags     []string
}

// Telugu keywords that select a delivery style.
var tagRules = []tagRule{
	{keywords: []string{"ప్రేమ", "ప్రియుడా", "బిడ్డ"}, tags: []string{"[warmly]", "[caringly]"}},
	{keywords: []string{"ఆదరించు", "ఆదుకో", "సాంత్వన"}, tags: []string{"[gentle]", "[gently]"}},
	{keywords: []string{"ప్రార్థన", "దీవెన", "ఆశీర్వాద"}, tags: []string{"[reverently]"}},
	{keywords: []string{"ధైర్యం", "ఆశ", "ఉత్సాహ"}, tags: []string{"[encouragingly]", "[hopefully]"}},
}

var defaultTags = []string{"[warmly]", "[gentle]"}

// WithExpressionTags prefixes text with delivery tags unless it already has some.
func WithExpressionTags(text string) string {
	if strings.TrimSpace(text) == "" || expressionTag.MatchString(text) {
		return text
	}

	var tags []string
	for _, rule := range tagRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, rule.tags...)
				break
			}
		}
	}
	if len(tags) == 0 {
		tags = defaultTags
	}
	return strings.Join(tags, " ") + " " + text
}
