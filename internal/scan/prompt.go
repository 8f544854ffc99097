package scan

import "fmt"

// MaxDocumentChars bounds how much document text goes into the
// prompt. Longer documents are silently cut to this prefix.
const MaxDocumentChars = 15000

// promptTemplate is fixed content; the only variables are the
// document excerpt and the three rules. The format directive demands
// a raw JSON list of exactly 3 objects with no markdown. The engine
// still strips fences before parsing since models do not always obey.
const promptTemplate = `You are a strict legal and compliance auditor.

DOCUMENT TEXT (Excerpt):
---
%s
---

RULES TO CHECK:
1. %s
2. %s
3. %s

INSTRUCTIONS:
For EACH rule, output a JSON object.
Return ONLY a raw JSON list of 3 objects.
Do NOT include markdown formatting (like ` + "```json" + `).

REQUIRED FORMAT:
[
  {
    "rule": "The rule text",
    "status": "PASS" or "FAIL",
    "evidence": "Exact quote from the text",
    "reasoning": "Brief explanation",
    "confidence": Number (0-100)
  },
  ...
]`

// BuildPrompt assembles the instruction payload for the reasoning
// service. Rules are embedded verbatim and the template carries no
// per-call randomness, so identical inputs produce identical prompts.
func BuildPrompt(text string, rules [3]string) string {
	return fmt.Sprintf(promptTemplate, truncate(text, MaxDocumentChars), rules[0], rules[1], rules[2])
}

// truncate returns at most max characters (runes) of s, counting
// from the start. Truncation is never an error.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
