package llm

// Role represents a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user-role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Response is the parsed result returned by the model.
//
// Code arrives already stripped of markdown fences and of import lines for
// namespaces the sandbox pre-provides, so it can be handed straight to the
// execution engine.
type Response struct {
	Analysis    string
	Code        string
	Suggestions string
	// NeedsVerification marks an intermediate step: the returned code should
	// be executed and its output sent back via SendExecutionResults before
	// the model composes its final answer.
	NeedsVerification bool
}
