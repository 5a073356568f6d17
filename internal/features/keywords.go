package features

import "strings"

var (
	brandTerms = []string{
		"brand", "company", "product", "official", "customer service", "support team",
	}

	emotionalTerms = []string{
		"love", "hate", "amazing", "awesome", "terrible", "awful", "horrible",
		"furious", "angry", "thrilled", "excited", "disappointed", "obsessed", "worst", "best",
	}

	comparisonTerms = []string{
		"better than", "worse than", "compared to", "compared with", "versus", " vs ", "vs.",
		"instead of", "switched to", "switching to", "alternative to",
	}

	priceTerms = []string{
		"price", "cost", "expensive", "cheap", "afford", "discount", " deal", "on sale",
		"refund", "subscription", "$", "€", "£",
	}

	recommendationTerms = []string{
		"recommend", "suggest", "should try", "must have", "must-have", "check out",
		"worth it", "go for it", "highly rated",
	}
)

// KeywordMatches reports which lexical families occur in a text.
type KeywordMatches struct {
	Brand          bool
	Emotional      bool
	Comparison     bool
	Price          bool
	Recommendation bool
}

// KeywordDetector performs case-insensitive lexical matching on post content.
type KeywordDetector struct {
	brand []string
}

// NewKeywordDetector creates a detector; extra terms extend the brand lexicon.
func NewKeywordDetector(extraBrandTerms ...string) *KeywordDetector {
	brand := append([]string(nil), brandTerms...)
	for _, term := range extraBrandTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			brand = append(brand, term)
		}
	}
	return &KeywordDetector{brand: brand}
}

// Detect scans text for each lexical family.
func (d *KeywordDetector) Detect(text string) KeywordMatches {
	lower := " " + strings.ToLower(text) + " "
	return KeywordMatches{
		Brand:          containsAny(lower, d.brand) || hasMention(lower),
		Emotional:      containsAny(lower, emotionalTerms),
		Comparison:     containsAny(lower, comparisonTerms),
		Price:          containsAny(lower, priceTerms),
		Recommendation: containsAny(lower, recommendationTerms),
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// hasMention reports an @handle, the usual way posts address a brand directly.
func hasMention(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '@' && (i == 0 || text[i-1] == ' ') {
			next := text[i+1]
			if (next >= 'a' && next <= 'z') || (next >= '0' && next <= '9') || next == '_' {
				return true
			}
		}
	}
	return false
}
