package chat

// Envelope is the decoded form of one inbound client event.
// The Type field selects the kind; Name and Text are kind-specific.
type Envelope struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Message is one outbound wire message.
type Message struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Note builds a system/informational line (join and leave announcements).
func Note(text string) Message {
	return Message{Type: "note", Text: text}
}

// Chat builds a chat line attributed to name.
func Chat(name, text string) Message {
	return Message{Type: "chat", Name: name, Text: text}
}

// ErrorReply builds an error message delivered to a single requester only.
func ErrorReply(text string) Message {
	return Message{Type: "error", Error: text}
}
