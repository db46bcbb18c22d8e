package llm

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one
	// completion.
	MaxOutputTokens int

	// SupportsJSONMode indicates native JSON response-format support.
	SupportsJSONMode bool

	// SupportsStreaming indicates the model supports streaming completions.
	SupportsStreaming bool
}
