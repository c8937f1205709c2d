package api

// Session is a named, server-tracked conversation thread. The server
// assigns the id; the title is the only field the client may change.
type Session struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Message is one turn of a conversation as the server stores it.
type Message struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// Every response carries a success flag; payload fields are per-endpoint.
type envelope struct {
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Sessions []Session `json:"sessions,omitempty"`
	Session  *Session  `json:"session,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Reply    string    `json:"reply,omitempty"`
	URL      string    `json:"url,omitempty"`
}

type createSessionRequest struct {
	Title string `json:"title"`
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	ImageURL  string `json:"imageUrl,omitempty"`
}
