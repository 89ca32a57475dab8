// Package classify assigns a coarse category to free text by keyword match.
package classify

import (
	"strings"
)

// Confidence buckets reported alongside a category.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

var categoryKeywords = map[string][]string{
	"E-commerce/Marketplace": {"marketplace", "buyers", "sellers", "shop", "store", "purchase", "sell", "buy", "auction", "bid", "listing", "e-commerce", "sale", "spend", "marketing"},
	"Technology/IoT":         {"gps", "tracking", "device", "sensor", "iot", "real-time", "hardware", "monitor"},
	"Weather/Climate":        {"weather", "climate", "forecast", "meteorological", "atmospheric", "prediction", "satellite", "temperature", "humidity", "precipitation", "weather patterns"},
	"Blockchain/Crypto":      {"blockchain", "crypto", "nft", "token", "mint", "cryptocurrency", "decentralized", "ledger", "smart contract", "digital asset", "wallet", "miners", "cryptocurrencies"},
	"Social Media":           {"social", "posts", "sharing", "friends", "network", "community"},
	"Productivity":           {"workflow", "efficiency", "tools", "organization", "tasks", "management"},
	"Entertainment":          {"games", "music", "video", "streaming", "play", "watch"},
	"Healthcare":             {"health", "medical", "wellness", "patient", "doctor", "treatment", "diagnosis", "hospital", "clinic", "pharmacy", "medicine", "prescription"},
	"Communication":          {"chat", "message", "communication", "contact", "connect"},
	"News":                   {"news", "articles", "updates", "information", "current events", "newsletter", "journalism", "reporting", "breaking news"},
	"Education":              {"learning", "learn", "teaching", "education", "students", "teachers", "courses", "classes", "tutorials", "lessons", "curriculum"},
	"Finance":                {"finance", "investment", "banking", "money", "stocks", "trading", "economy", "financial"},
	"Travel":                 {"travel", "tourism", "destination", "vacation", "trip", "hotel", "flight", "booking", "reservations"},
	"Food":                   {"food", "restaurant", "cuisine", "recipe", "cooking", "dining", "menu", "ingredients", "meal"},
	"Space/Aerospace":        {"satellite", "space", "orbit", "launch", "rocket", "spacecraft", "astronomical", "aerospace", "constellation", "celestial", "planetary", "mission", "astronomy"},
	"Sports":                 {"sports", "game", "match", "team", "player", "score", "tournament", "championship", "league", "athletes", "competition", "athletics", "playoffs", "players"},
}

var explanations = map[string]string{
	"E-commerce/Marketplace": "This text describes a platform for buying and selling.",
	"Technology/IoT":         "This text involves technological devices or IoT capabilities.",
	"Weather/Climate":        "This text relates to weather analysis or climate data.",
	"Blockchain/Crypto":      "This text involves blockchain technology or cryptocurrency.",
	"Social Media":           "This text describes social networking features.",
	"Productivity":           "This text involves tools for improving efficiency.",
	"Entertainment":          "This text relates to entertainment content.",
	"Healthcare":             "This text involves health-related services.",
	"Communication":          "This text describes communication features.",
	"News":                   "This text involves news articles or updates.",
	"Education":              "This text relates to educational content or learning resources.",
	"Finance":                "This text involves financial services or investment information.",
	"Travel":                 "This text describes travel or tourism services.",
	"Food":                   "This text relates to food, recipes, or dining experiences.",
	"Space/Aerospace":        "This text involves space exploration or aerospace technology.",
	"Sports":                 "This text describes sports events or competitions.",
	"Other":                  "This text doesn't clearly match our predefined categories.",
}

// Classify returns the best-matching category and a confidence bucket.
// Confidence is High with more than one keyword hit, Medium with exactly
// one, and Low for the Other fallback.
func Classify(text string) (category string, confidence string) {
	text = strings.ToLower(text)

	bestCategory := ""
	bestCount := 0
	for cat, keywords := range categoryKeywords {
		count := 0
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				count++
			}
		}
		if count > bestCount || (count == bestCount && count > 0 && cat < bestCategory) {
			bestCategory = cat
			bestCount = count
		}
	}

	if bestCount == 0 {
		return "Other", ConfidenceLow
	}
	if bestCount > 1 {
		return bestCategory, ConfidenceHigh
	}
	return bestCategory, ConfidenceMedium
}

// Explanation returns the canned explanation for a category.
func Explanation(category string) string {
	if e, ok := explanations[category]; ok {
		return e
	}
	return "Category determined based on content analysis."
}
