package usecase

import (
	"strings"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

const noEvidenceAnswer = "I don't have enough evidence to answer confidently."

const (
	procedureSourceTexts = 5
	procedureMaxSteps    = 7
	comparisonClip       = 240
	definitionClip       = 600
	genericClip          = 1200
	componentSourceTexts = 4
	componentMaxTerms    = 8
)

var assemblyKeywords = []string{"component", "components", "parts", "comprise", "assembly"}

var actionVerbs = []string{"sew", "stitch", "turn", "gather", "press", "join", "attach", "bind"}

// componentTerms is the domain allow-list for assembly answers.
var componentTerms = map[string]struct{}{
	"brim": {}, "crown": {}, "band": {}, "ribbon": {}, "sweatband": {},
	"lining": {}, "tip": {}, "wire": {}, "felt": {}, "straw": {},
	"buckram": {}, "visor": {}, "peak": {}, "seam": {}, "braid": {},
}

var componentModifierStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "with": {},
	"to": {}, "or": {}, "in": {}, "on": {}, "for": {}, "its": {},
	"this": {}, "that": {}, "any": {}, "each": {},
}

// chooseAnswerMode classifies the question through an ordered rule list;
// the first matching rule wins.
func chooseAnswerMode(question string) domain.AnswerMode {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, keyword := range assemblyKeywords {
		if strings.Contains(q, keyword) {
			return domain.ModeAssembly
		}
	}
	if strings.HasPrefix(q, "how ") || strings.HasPrefix(q, "how do") ||
		strings.HasPrefix(q, "how to") || strings.Contains(q, "steps") {
		return domain.ModeProcedure
	}
	if strings.Contains(q, "compare") || strings.Contains(q, " vs ") || strings.Contains(q, "difference") {
		return domain.ModeComparison
	}
	if strings.HasPrefix(q, "what is") || strings.HasPrefix(q, "define") || strings.HasPrefix(q, "definition") {
		return domain.ModeDefinition
	}
	return domain.ModeGeneric
}

// assembleAnswer renders a mode-specific answer from ranked chunk texts.
// An empty candidate list yields the fixed low-confidence sentence. The
// assembly mode falls through to the generic synthesis when no component
// terms can be extracted.
func assembleAnswer(ranked []domain.RankedCandidate, mode domain.AnswerMode) string {
	texts := make([]string, 0, len(ranked))
	for _, candidate := range ranked {
		if text := strings.TrimSpace(candidate.Chunk.Text); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return noEvidenceAnswer
	}

	switch mode {
	case domain.ModeProcedure:
		return assembleProcedure(texts)
	case domain.ModeComparison:
		return assembleComparison(texts)
	case domain.ModeDefinition:
		return clipRunes(texts[0], definitionClip)
	case domain.ModeAssembly:
		if parts := extractComponentTerms(texts); len(parts) > 0 {
			return "Components: " + strings.Join(parts, ", ")
		}
	}
	return clipRunes(strings.Join(texts, " "), genericClip)
}

func assembleProcedure(texts []string) string {
	source := texts
	if len(source) > procedureSourceTexts {
		source = source[:procedureSourceTexts]
	}
	var steps []string
	for _, text := range source {
		for _, sentence := range strings.Split(text, ".") {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			if containsActionVerb(sentence) {
				steps = append(steps, sentence)
			}
		}
	}
	if len(steps) > procedureMaxSteps {
		steps = steps[:procedureMaxSteps]
	}
	if len(steps) == 0 {
		steps = []string{texts[0]}
	}
	return "Steps:\n- " + strings.Join(steps, "\n- ")
}

func containsActionVerb(sentence string) bool {
	low := strings.ToLower(sentence)
	for _, verb := range actionVerbs {
		if strings.Contains(low, verb) {
			return true
		}
	}
	return false
}

func assembleComparison(texts []string) string {
	a := clipRunes(texts[0], comparisonClip)
	b := a
	if len(texts) > 1 {
		b = clipRunes(texts[1], comparisonClip)
	}
	return "Summary (A vs B):\n- Evidence A: " + a + "\n- Evidence B: " + b
}

// extractComponentTerms pulls short noun-like phrases from the top texts:
// words on the domain allow-list, optionally preceded by one non-stop-word
// modifier, de-duplicated case-insensitively and title-cased.
func extractComponentTerms(texts []string) []string {
	source := texts
	if len(source) > componentSourceTexts {
		source = source[:componentSourceTexts]
	}

	seen := make(map[string]struct{})
	var out []string
	for _, text := range source {
		words := strings.Fields(text)
		for i, word := range words {
			head := cleanWord(word)
			if _, ok := componentTerms[head]; !ok {
				continue
			}
			phrase := head
			if i > 0 {
				if modifier := cleanWord(words[i-1]); isComponentModifier(modifier) {
					phrase = modifier + " " + head
				}
			}
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			out = append(out, titleCase(phrase))
			if len(out) >= componentMaxTerms {
				return out
			}
		}
	}
	return out
}

func isComponentModifier(word string) bool {
	if len(word) < 3 || !isAlphaToken(word) {
		return false
	}
	_, stop := componentModifierStopWords[word]
	return !stop
}

func cleanWord(word string) string {
	return strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
}

func titleCase(phrase string) string {
	words := strings.Fields(phrase)
	for i, word := range words {
		runes := []rune(word)
		words[i] = strings.ToUpper(string(runes[:1])) + string(runes[1:])
	}
	return strings.Join(words, " ")
}

// clipRunes truncates without a marker; rune-based so multi-byte text
// never splits mid-character.
func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
