package ax

import "testing"

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	cases := []struct {
		name string
		node *Node
		want Class
	}{
		{"temperature value", &Node{Title: "23°C", Value: ""}, ClassWeather},
		{"degree only", &Node{Value: "8°"}, ClassWeather},
		{"japanese condition", &Node{Value: "晴れ"}, ClassWeather},
		{"english condition", &Node{Description: "Partly Cloudy"}, ClassWeather},
		{"humidity term", &Node{Value: "湿度 45%"}, ClassWeather},
		{"place suffix", &Node{Value: "東京都"}, ClassLocation},
		{"english place", &Node{Title: "Kyoto City"}, ClassLocation},
		{"plain text", &Node{Title: "Settings"}, ClassOther},
		{"blank", &Node{Value: "   "}, ClassIgnore},
		{"empty node", &Node{}, ClassIgnore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.node); got != tc.want {
				t.Fatalf("Classify(%q) = %v, want %v", tc.node.Text(), got, tc.want)
			}
		})
	}
}

func TestClassifyPriorityWeatherOverLocation(t *testing.T) {
	c := DefaultClassifier()
	// Content carrying both a weather and a location keyword lands in Weather.
	n := &Node{Value: "東京都の天気"}
	if got := c.Classify(n); got != ClassWeather {
		t.Fatalf("expected Weather for mixed content, got %v", got)
	}
}

func TestClassifyConcatenatesFields(t *testing.T) {
	c := DefaultClassifier()
	n := &Node{Title: "Current", Value: "", Description: "wind 12 km/h"}
	if got := c.Classify(n); got != ClassWeather {
		t.Fatalf("expected Weather from description field, got %v", got)
	}
}

func TestClassifyCustomKeywords(t *testing.T) {
	c := &Classifier{Weather: []string{"pressure"}, Location: []string{"harbor"}}
	if got := c.ClassifyText("pressure 1013 hPa"); got != ClassWeather {
		t.Fatalf("custom weather keyword ignored: %v", got)
	}
	if got := c.ClassifyText("inner harbor"); got != ClassLocation {
		t.Fatalf("custom location keyword ignored: %v", got)
	}
	if got := c.ClassifyText("晴れ"); got != ClassOther {
		t.Fatalf("default keywords leaked into custom classifier: %v", got)
	}
}
