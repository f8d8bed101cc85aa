package ui

// Icons shown next to tool names in result summaries.
const (
	IconRead   = "\U0001F4C4" // 📄
	IconGlob   = "\U0001F50D" // 🔍
	IconGrep   = "\U0001F50E" // 🔎
	IconWeb    = "\U0001F310" // 🌐
	IconSearch = "\U0001F50D" // 🔍
)
