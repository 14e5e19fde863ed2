package config

// CategoryWeights orders command categories in listings.
var CategoryWeights = map[string]int{
	"🕯️ Information": 0,
	"🔊 Voice":        10,
	"⚙️ Settings":    50,
}

// CategoryWeight returns the sort weight for category, unknown ones last.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 1000
}
