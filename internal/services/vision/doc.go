// Package vision provides the Azure AI Vision image analysis client that
// produces the secondary signals for a food image: caption, tags, detected
// objects, and OCR lines.
//
// Analyze maps the service response into matching.SecondarySignals. Object
// names come from each object's first tag ("unknown" with zero confidence
// when untagged) and an OCR line's confidence is the highest confidence of
// its words.
package vision
