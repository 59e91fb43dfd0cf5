// Package prompt turns a poem into a text-to-image prompt.
package prompt

import (
	"strings"
)

const (
	stylePrefix   = "Beautiful Chinese traditional painting style"
	qualitySuffix = "high quality, detailed, artistic"
	defaultPhrase = "Chinese traditional painting style, elegant landscape"

	// Negative is sent with every request.
	Negative = "text, words, letters, watermark, signature, low quality, blurry, distorted, ugly, deformed"
)

type rule struct {
	keywords []string
	phrase   string
}

var titleRules = []rule{
	{[]string{"春"}, "spring landscape, cherry blossoms, green trees"},
	{[]string{"秋"}, "autumn landscape, golden leaves, maple trees"},
	{[]string{"雪", "冬"}, "winter snow, white landscape, snowflakes"},
	{[]string{"月"}, "moonlight, night sky, stars"},
	{[]string{"山"}, "mountain landscape, peaks, clouds"},
	{[]string{"水", "江", "河"}, "river, water, flowing stream"},
	{[]string{"花"}, "flowers, blooming, colorful petals"},
}

var moodRules = []rule{
	{[]string{"愁", "悲", "泪", "伤"}, "melancholy mood, soft lighting, gentle colors"},
	{[]string{"喜", "乐", "欢", "笑"}, "joyful mood, bright colors, warm lighting"},
	{[]string{"思", "念", "忆", "怀"}, "nostalgic mood, dreamy atmosphere, soft focus"},
}

var tagRules = []rule{
	{[]string{"自然", "风景"}, "natural landscape, scenic view"},
	{[]string{"情感", "爱情"}, "romantic atmosphere, emotional scene"},
	{[]string{"历史", "古风"}, "ancient Chinese style, traditional architecture"},
}

// Build returns the prompt and negative prompt for a poem. It never fails; empty
// input yields the default landscape prompt.
func Build(title, body string, tags []string) (string, string) {
	var parts []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			parts = append(parts, p)
		}
	}

	for _, r := range titleRules {
		if containsAny(title, r.keywords) {
			add(r.phrase)
		}
	}

	lowered := strings.ToLower(body)
	for _, r := range moodRules {
		if containsAny(lowered, r.keywords) {
			add(r.phrase)
		}
	}

	for _, tag := range tags {
		for _, r := range tagRules {
			if containsAny(tag, r.keywords) {
				add(r.phrase)
			}
		}
	}

	if len(parts) == 0 {
		add(defaultPhrase)
	}

	return stylePrefix + ", " + strings.Join(parts, ", ") + ", " + qualitySuffix, Negative
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
