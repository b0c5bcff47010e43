package repository

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateCraneSlug builds the stable catalog identifier from manufacturer and
// model, e.g. "Liebherr" + "LTM 1030" -> "liebherr-ltm1030". The slug never
// changes after creation even if the display fields are edited.
func GenerateCraneSlug(manufacturer, model string) string {
	manu := slugCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(manufacturer)), "")
	mod := slugCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(model)), "")
	switch {
	case manu == "" && mod == "":
		return GenerateRandomCode()
	case manu == "":
		return mod
	case mod == "":
		return manu
	}
	return manu + "-" + mod
}

// GenerateRandomCode returns a short code like "ab12345", used as a fallback
// identifier when there is nothing meaningful to slug.
func GenerateRandomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "abcdefghijklmnopqrstuvwxyz"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}
