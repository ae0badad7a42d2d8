package document

// Config controls how much raw source inspectors keep
type Config struct {
	SnippetLimit     int // max characters of a component source snippet, 0 keeps everything
	OperationPreview int // max characters of an embedded statement recorded as an operation
}

func DefaultConfig() *Config {
	return &Config{
		SnippetLimit:     500,
		OperationPreview: 50,
	}
}

// Snippet trims text to the configured snippet limit
func (c *Config) Snippet(text string) string {
	return truncate(text, c.SnippetLimit)
}

// Preview trims text to the configured operation preview
func (c *Config) Preview(text string) string {
	return truncate(text, c.OperationPreview)
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
