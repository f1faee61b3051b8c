package ax

import "strings"

// Class is the content category a node's text falls into.
type Class int

const (
	ClassIgnore Class = iota
	ClassOther
	ClassLocation
	ClassWeather
)

func (c Class) String() string {
	switch c {
	case ClassWeather:
		return "weather"
	case ClassLocation:
		return "location"
	case ClassOther:
		return "other"
	default:
		return "ignore"
	}
}

// Classifier holds the keyword sets driving content classification. The sets
// are deliberately configuration, not constants: the observed vocabulary is
// locale-specific and the defaults mix Japanese and English tokens taken from
// real Weather-app trees. Matching is best-effort, not a guarantee.
type Classifier struct {
	Weather  []string
	Location []string
}

// Temperature markers checked before the weather keyword list.
var degreeTokens = []string{"°", "℃", "℉"}

// DefaultClassifier returns the stock keyword sets.
func DefaultClassifier() *Classifier {
	return &Classifier{
		Weather: []string{
			"°C", "°F",
			"温度", "気温", "天気", "湿度", "風", "降水",
			"曇り", "晴れ", "雨", "雪",
			"humidity", "wind", "sunny", "cloudy", "rain", "snow", "forecast",
		},
		Location: []string{
			"市", "区", "県", "町", "村", "都", "道", "府",
			"city", "prefecture", "station", "district",
		},
	}
}

// Classify buckets the node's concatenated text. Priority order: Weather is
// checked before Location, so content carrying both kinds of keyword lands in
// Weather. Blank content is Ignore, anything else Other.
func (c *Classifier) Classify(n *Node) Class {
	return c.ClassifyText(n.Text())
}

// ClassifyText applies the same policy to an already-extracted string.
func (c *Classifier) ClassifyText(content string) Class {
	content = strings.TrimSpace(content)
	if content == "" {
		return ClassIgnore
	}
	lower := strings.ToLower(content)
	for _, tok := range degreeTokens {
		if strings.Contains(content, tok) {
			return ClassWeather
		}
	}
	if containsAnyFold(content, lower, c.Weather) {
		return ClassWeather
	}
	if containsAnyFold(content, lower, c.Location) {
		return ClassLocation
	}
	return ClassOther
}

func containsAnyFold(content, lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		// ASCII keywords match case-insensitively; CJK tokens match as-is.
		if strings.Contains(lower, strings.ToLower(kw)) || strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
