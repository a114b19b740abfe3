package render

import (
	"fmt"
	"strings"
)

var latexReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`_`, `\_`,
	`%`, `\%`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// escapeLaTeX makes value safe to be used as LaTeX text.
func escapeLaTeX(v any) string {
	if v == nil {
		return ""
	}
	return latexReplacer.Replace(fmt.Sprint(v))
}
