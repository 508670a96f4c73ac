package answer

import "regexp"

// The model is told to use dollar delimiters, but it still frequently emits
// \[...\] and \(...\). The display layer renders only the dollar convention,
// so both bracket forms are rewritten. Non-greedy, and the span may cross
// line breaks.
var (
	blockDelimRe  = regexp.MustCompile(`(?s)\\\[(.*?)\\\]`)
	inlineDelimRe = regexp.MustCompile(`(?s)\\\((.*?)\\\)`)
)

// RepairDelimiters normalizes LaTeX math delimiters: \[...\] becomes
// $$...$$ and \(...\) becomes $...$. The patterns match only backslash
// delimiters, so running it on already-repaired text is a no-op.
func RepairDelimiters(text string) string {
	text = blockDelimRe.ReplaceAllString(text, "$$$$ $1 $$$$")
	text = inlineDelimRe.ReplaceAllString(text, "$$ $1 $$")
	return text
}
