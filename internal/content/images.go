// Package content implements the content-preservation transform: embedded
// inline images (base64 data URIs and friends) are swapped for short
// placeholder tokens before text passes through the generative model, then
// swapped back afterwards. Large opaque payloads would otherwise risk
// truncation or byte corruption inside the model round-trip.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// imgTagRe matches an image tag carrying a src attribute. Case-insensitive,
// tolerant of single- or double-quoted values and of tags spanning lines.
var imgTagRe = regexp.MustCompile(`(?i)<img\b[^>]*\bsrc\s*=\s*(?:"[^"]*"|'[^']*')[^>]*>`)

// placeholderFormat yields {{IMAGE_0}}, {{IMAGE_1}}, ... in source order.
const placeholderFormat = "{{IMAGE_%d}}"

// ImageRef is one extracted image: its placeholder token and the full
// original tag text it replaced.
type ImageRef struct {
	Token string
	Tag   string
}

// Extraction is the result of stripping embedded images from a document.
// Images are ordered by placeholder index, matching left-to-right source order.
type Extraction struct {
	CleanText string
	Images    []ImageRef
}

// HasImages reports whether any image was extracted.
func (e Extraction) HasImages() bool { return len(e.Images) > 0 }

// Preserver extracts and restores embedded image payloads.
type Preserver struct {
	logger *zap.Logger
}

// NewPreserver creates a Preserver.
func NewPreserver(logger *zap.Logger) *Preserver {
	return &Preserver{logger: logger}
}

// Extract replaces every embedded image tag with a unique placeholder token,
// assigned in strictly increasing index order of appearance. Empty input
// yields an empty result without error.
func (p *Preserver) Extract(html string) Extraction {
	if html == "" {
		return Extraction{}
	}

	var images []ImageRef
	idx := 0
	clean := imgTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		token := fmt.Sprintf(placeholderFormat, idx)
		images = append(images, ImageRef{Token: token, Tag: tag})
		idx++
		return token
	})

	return Extraction{CleanText: clean, Images: images}
}

// Restore substitutes original image tags back for their placeholder tokens.
// Restoration is best-effort: a placeholder the generator dropped is logged
// as a mismatch and simply leaves no image in the output.
func (p *Preserver) Restore(text string, images []ImageRef) string {
	for _, img := range images {
		if !strings.Contains(text, img.Token) {
			p.logger.Warn("Image placeholder missing from generated text",
				zap.String("token", img.Token),
			)
			continue
		}
		text = strings.ReplaceAll(text, img.Token, img.Tag)
	}
	return text
}

// Validate self-checks an extraction: every placeholder index from 0 to
// len(images)-1 must appear both in the clean text and in the image list.
// Used for diagnostics, never to block the pipeline.
func (p *Preserver) Validate(e Extraction) bool {
	for i, img := range e.Images {
		want := fmt.Sprintf(placeholderFormat, i)
		if img.Token != want {
			return false
		}
		if !strings.Contains(e.CleanText, want) {
			return false
		}
	}
	return true
}
