package config

// characters with special meaning for LaTeX which cannot be part of \input path
const latexUnsafe = "%#{}$&~^\\"
