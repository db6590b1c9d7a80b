package chain

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// analysisInstructions steer the vision collaborator toward details that keep
// the follow-up video prompt stylistically consistent with the generated
// image rather than a generic template.
const analysisInstructions = "Describe this product image in two sentences: " +
	"composition, lighting, color palette, camera angle and overall mood. " +
	"Do not mention text or watermarks."

var supportedLocales = []language.Tag{
	language.English,
	language.Indonesian,
	language.Spanish,
	language.Portuguese,
	language.Japanese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// NormalizeLocale maps an arbitrary store locale to the closest supported
// tag, falling back to English.
func NormalizeLocale(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.English.String()
	}
	matched, _, _ := localeMatcher.Match(tag)
	base, _ := matched.Base()
	return base.String()
}

// BuildImagePrompt renders the image-stage prompt from the request variables.
func BuildImagePrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Professional product photo of %s", strings.TrimSpace(req.ProductTitle))
	if price := strings.TrimSpace(req.ProductPrice); price != "" {
		fmt.Fprintf(&b, ", priced at %s", price)
	}
	b.WriteString(". Studio lighting, clean commercial background, sharp focus on the product, ")
	b.WriteString("shot for a short-form social media ad.")
	if locale := NormalizeLocale(req.Locale); locale != language.English.String() {
		fmt.Fprintf(&b, " Text-free visual suitable for a %s-speaking audience.", locale)
	}
	return b.String()
}

// BuildComposedVideoPrompt renders the single-submission video prompt for
// composed mode, where the scene plan carries the structure and the prompt
// only sets the overall look.
func BuildComposedVideoPrompt(productTitle, price, locale string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cinematic short-form product ad of %s", strings.TrimSpace(productTitle))
	if price = strings.TrimSpace(price); price != "" {
		fmt.Fprintf(&b, ", offered at %s", price)
	}
	b.WriteString(". Scene-driven vertical edit, slow camera moves, studio lighting, ")
	b.WriteString("soft highlights sweeping across the product. No on-screen text.")
	if l := NormalizeLocale(locale); l != language.English.String() {
		fmt.Fprintf(&b, " Visuals suitable for a %s-speaking audience.", l)
	}
	return b.String()
}

// BuildVideoPrompt injects the vision analysis of the generated image into
// the video-stage prompt so the motion stays faithful to the specific frame.
func BuildVideoPrompt(productTitle, analysis string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cinematic product showcase of %s. ", strings.TrimSpace(productTitle))
	if analysis = strings.TrimSpace(analysis); analysis != "" {
		fmt.Fprintf(&b, "Match the look of the reference image: %s ", analysis)
	}
	b.WriteString("Slow camera push-in, subtle parallax, soft highlights sweeping across the product. ")
	b.WriteString("No on-screen text, vertical framing for short-form platforms.")
	return b.String()
}
