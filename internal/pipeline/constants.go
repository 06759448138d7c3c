package pipeline

// Defaults for the extraction backends and currency stage.
const (
	// DefaultChatBaseURL is the OpenAI-compatible gateway used when none is configured.
	DefaultChatBaseURL = "https://ai-gateway.vercel.sh/v1"

	// DefaultChatModel is the model requested from the chat completions gateway.
	DefaultChatModel = "openai/gpt-5-mini"

	// DefaultGeminiModel is the default Gemini model used for extraction.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultGigaChatModel is the default GigaChat model used for extraction.
	DefaultGigaChatModel = "GigaChat"

	// Backend names accepted by EXTRACTOR_BACKEND.
	BackendChat     = "chat"
	BackendGemini   = "gemini"
	BackendGigaChat = "gigachat"
)
