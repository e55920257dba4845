package llm

import (
	"fmt"
	"strings"

	"menumatch/internal/matching"
)

const (
	contextTextConfidence = 0.5
	contextTagConfidence  = 0.7
)

// contextVocabulary extends the fusion vocabulary with dish and ingredient
// words that help the describer narrow a category.
var contextVocabulary = func() map[string]struct{} {
	extra := []string{"hamburger", "pasta", "pizza", "seafood", "rice", "chicken", "beef", "pork", "fish", "sauce", "condiment"}
	set := make(map[string]struct{}, len(matching.FoodVocabulary)+len(extra))
	for _, word := range matching.FoodVocabulary {
		set[word] = struct{}{}
	}
	for _, word := range extra {
		set[word] = struct{}{}
	}
	return set
}()

// SystemPrompt frames the describer as a food identification assistant.
const SystemPrompt = `You are a skilled visual analysis assistant specializing in food identification. Your role is to:
1. Identify any text visible in the image that might identify the food
2. Describe the primary food item shown clearly and accurately
3. Match the item to a menu description when reasonable, or mark as UNMATCHED if needed

FOOD IDENTIFICATION GUIDELINES:
- "Chicken Salad" is chopped/shredded chicken mixed with mayonnaise as a spread
- A sandwich with chicken pieces/patty on bread/bun is a "Chicken Sandwich"
- Breaded or fried chicken on a bun is a chicken sandwich
- A burger has a ground meat patty; a sandwich has sliced meat or chicken pieces
- A sub is on elongated roll/bun; a sandwich is typically on sliced bread or round bun
- A wrap is in a tortilla/flatbread

Your description should:
- Report any text you can read in the image, prefixed with "TEXT DETECTED: "
- Identify the food's category (sandwich, salad, burger, etc.)
- Note key visual elements: bread type, filling/ingredients, preparation style

When evaluating matches:
- Use a balanced confidence scale (1-10) to indicate match quality
- Don't be overly strict - use confidence scores to express uncertainty
- For strong matches (8-10): The item clearly matches the description
- For medium matches (5-7): The item generally matches with minor differences
- For weak matches (1-4): The item has some similarity but significant differences
- Mark as UNMATCHED when no reasonable match exists

If uncertain, provide your best assessment with an appropriate confidence score that reflects your level of certainty.`

const userPromptBody = `Identify and describe the food item in this image with precision.

IMPORTANT: First, carefully check for and read any text visible in the image (labels, packaging, price tags, etc.) that might identify the food item. Report this text exactly as written, prefixed with "TEXT DETECTED: ".

Given the image I provide, your task is to:
1. Look for and report any text visible in the image that might identify the food item
2. Carefully analyze the visual features of the food
3. Match the image to one of these menu item descriptions if possible:

%s

4. Provide a meaningful confidence score (1-10) that reflects how well the item matches:
   - Use 8-10 for very confident matches (clearly the same item)
   - Use 5-7 for possible matches with some uncertainty
   - Use 3-4 for items that have similarities but significant differences
   - Use 1-2 for very low confidence matches

5. For items that don't clearly match any description, mark as UNMATCHED with a specific description:
   - Use ALL CAPS format
   - Create an abbreviated but descriptive name (e.g., CHK for chicken, SNDWCH for sandwich)
   - Example: "UNMATCHED FRIED CHKN SNDWCH" for an unmatched chicken sandwich
   - Still provide a confidence score (1-10) for your description of what the item is

FOOD IDENTIFICATION GUIDELINES:
- "Chicken Salad" refers to chopped/shredded chicken mixed with mayonnaise as a spread
- A chicken patty on a bun is a "Chicken Sandwich" not "Chicken Salad"
- A burger has a ground meat patty; a sandwich typically has whole meat
- A sub is on elongated roll/bun; a sandwich is on sliced bread or round bun
- A wrap is in a tortilla/flatbread; a burrito is a specific wrapped Mexican food
- A salad plate has greens/vegetables as the base with toppings

FORMAT YOUR RESPONSE AS:
[Any detected text, prefixed with "TEXT DETECTED: "]
[Best matching menu item OR your "UNMATCHED" description]
[Confidence score: X/10]
[Brief description of what you see, including key identifying features]`

// BuildUserPrompt renders the catalog into the describer instructions,
// preceded by the secondary-signal context block when signals are supplied.
func BuildUserPrompt(catalog []string, secondary *matching.SecondarySignals) string {
	var b strings.Builder
	if secondary != nil {
		b.WriteString(BuildVisionContext(*secondary))
	}
	fmt.Fprintf(&b, userPromptBody, strings.Join(catalog, "\n"))
	return b.String()
}

// BuildVisionContext summarizes tagger output for the describer. Only texts
// above 0.5 and food-related tags above 0.7 are listed.
func BuildVisionContext(secondary matching.SecondarySignals) string {
	var b strings.Builder
	b.WriteString("I'll provide you with Azure Vision API results for this image to help your analysis:\n\n")

	if secondary.Caption != "" {
		fmt.Fprintf(&b, "VISION API CAPTION: %s (Confidence: %.2f)\n\n", secondary.Caption, secondary.CaptionConfidence)
	}

	if len(secondary.DetectedTexts) > 0 {
		b.WriteString("VISION API TEXT DETECTION:\n")
		for _, text := range secondary.DetectedTexts {
			if text.Confidence > contextTextConfidence {
				fmt.Fprintf(&b, "- %q (Confidence: %.2f)\n", text.Text, text.Confidence)
			}
		}
		b.WriteString("\n")
	}

	var tags []string
	for _, tag := range secondary.Tags {
		if tag.Confidence <= contextTagConfidence {
			continue
		}
		if _, ok := contextVocabulary[tag.Name]; ok {
			tags = append(tags, fmt.Sprintf("%s (Confidence: %.2f)", tag.Name, tag.Confidence))
		}
	}
	if len(tags) > 0 {
		b.WriteString("VISION API FOOD-RELATED TAGS:\n- ")
		b.WriteString(strings.Join(tags, "\n- "))
		b.WriteString("\n\n")
	}

	if len(secondary.Objects) > 0 {
		b.WriteString("VISION API OBJECTS DETECTED:\n")
		for _, obj := range secondary.Objects {
			fmt.Fprintf(&b, "- %s (Confidence: %.2f)\n", obj.Name, obj.Confidence)
		}
		b.WriteString("\n")
	}

	b.WriteString("INSTRUCTIONS FOR USING VISION API RESULTS:\n")
	b.WriteString("1. Use the detected text as a strong signal for identifying the food item\n")
	b.WriteString("2. Consider the Vision API caption as a helpful but not definitive description\n")
	b.WriteString("3. Use the food-related tags to narrow down food categories\n")
	b.WriteString("4. When the Vision API and your own analysis differ, prioritize what you can directly observe\n")
	b.WriteString("5. Still be EXTREMELY STRICT about menu item matching\n\n")
	return b.String()
}
