package model

// ChatEntry is one message in a room's chat history
type ChatEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}
