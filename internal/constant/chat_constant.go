package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
	ChatMessageRoleModel     = "model"

	AttachmentTypeImage = "image"
	AttachmentTypeFile  = "file"
	AttachmentTypeAudio = "audio"

	// Storage keys. Whole values are overwritten on every save.
	ChatMetadataKeyPrefix = "chat-metadata-"
	ChatMessagesKeyPrefix = "chat-messages-"

	ChatTitleMaxLength = 30
	ChatTitleEllipsis  = "..."
	DefaultChatTitle   = "New Chat"
)

const (
	// Retrieval limits
	MaxRetrievalResults = 5
	MaxContextResults   = 4

	// Queries shorter than this borrow the previous user turn for search.
	ShortQueryWordLimit = 5

	// Greetings only short-circuit retrieval below this many tokens.
	GreetingTokenLimit = 3
)

// Closed vocabulary of low-signal turns that never trigger retrieval.
var GreetingVocabulary = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"ok", "okay", "thanks", "thank you", "cool", "great", "yes", "no", "bye",
	"hmm", "ah", "oh", "wow",
}

// Phrases that mark a local model answer as a knowledge refusal.
var RefusalPhrases = []string{
	"i don't have access",
	"i cannot browse",
	"as an ai",
	"knowledge cutoff",
	"i'm not aware",
	"i do not have real-time",
}

const (
	WebContextSystemPrompt = `System: You are an intelligent assistant with access to real-time information.
Use the following web search results as factual reference. Combine them with your own knowledge to answer the user's question.
If the web data conflicts with your internal knowledge, prioritize the web data. 
Do NOT fabricate facts.

Web Data:
`

	WebContextResultTemplate = "Result %d:\nTitle: %s\nSource: %s\nSummary: %s"
	ReplyFramingTemplate     = "Referring to \"%s\":\n\n%s"
	UserQueryTemplate        = "%s\n\nUser Query: %s"

	FallbackMarker        = "\n\n*[Auto-Fallback: Browsing web for real-time info...]*"
	GenerationErrorPrefix = "Error: Failed to get response from AI. "
)

const (
	// Ollama
	OllamaDefaultBaseURL   = "http://localhost:11434"
	OllamaChatEndpoint     = "/api/chat"
	OllamaGenerateEndpoint = "/api/generate"
	OllamaRoleAssistant    = "assistant"
	OllamaRoleUser         = "user"
	OllamaRoleSystem       = "system"
	OllamaDefaultKeepAlive = "30m"

	// Cloud gateway
	CloudChatEndpoint = "/api/chat"

	DefaultCloudModel = "gemini-2.5-flash"
	DefaultLocalModel = "phi3.5:latest"

	// Model ids containing this marker are served by the cloud provider.
	CloudModelMarker = "gemini"
)

const (
	// In-process watermill topic for turn events.
	TurnEventsTopic = "turn_events"
)
