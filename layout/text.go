package layout

import "strings"

// UnknownLanguage is reported when the document carries no language hint.
const UnknownLanguage = "auto"

// DetectLanguage returns the language of the first page if Vision reported
// one, otherwise the first word-level language found in reading order.
func DetectLanguage(doc *Document) string {
	if doc == nil || len(doc.Pages) == 0 {
		return UnknownLanguage
	}
	if code := firstLanguage(doc.Pages[0].Property); code != "" {
		return code
	}
	for _, page := range doc.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					if code := firstLanguage(word.Property); code != "" {
						return code
					}
				}
			}
		}
	}
	return UnknownLanguage
}

func firstLanguage(p *Property) string {
	if p == nil || len(p.DetectedLanguages) == 0 {
		return ""
	}
	return p.DetectedLanguages[0].LanguageCode
}

// TranslationUnits lists the strings to translate for a document, in the
// index space Synthesize pairs them back in: auto lines, then manual lines.
func TranslationUnits(lines []TextLine, manual []ManualLine) []string {
	units := make([]string, 0, len(lines)+len(manual))
	for _, line := range lines {
		units = append(units, line.Text)
	}
	for _, line := range manual {
		units = append(units, line.Text)
	}
	return units
}

// BlockLines returns the plain-text lines of each block. Unlike Assemble it
// always ends a line at a block boundary.
func BlockLines(doc *Document) []string {
	lines := []string{}
	if doc == nil {
		return lines
	}
	for _, page := range doc.Pages {
		for _, block := range page.Blocks {
			var sentence strings.Builder
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					for _, symbol := range word.Symbols {
						sentence.WriteString(symbol.Text)
						if symbol.LineBreak() {
							sentence.WriteString("\n")
						}
					}
				}
			}
			for _, line := range strings.Split(sentence.String(), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		}
	}
	return lines
}
