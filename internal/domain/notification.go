package domain

// NotificationTypeEditThank is the event type emitted for every new thanks.
const NotificationTypeEditThank = "edit-thank"

// Notification is the event handed to the notification subsystem when a
// thanks is recorded.
type Notification struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Extra NotificationExtra `json:"extra"`
	// Agent is the sender's actor id.
	Agent     int64  `json:"agent"`
	AgentName string `json:"agent_name,omitempty"`
}

// NotificationExtra carries the event payload. Exactly one of RevID and LogID
// is set.
type NotificationExtra struct {
	RevID         *int64 `json:"revid,omitempty"`
	LogID         *int64 `json:"logid,omitempty"`
	ThankedUserID int64  `json:"thanked-user-id"`
	Source        string `json:"source"`
	Excerpt       string `json:"excerpt"`
	RevCreation   bool   `json:"revcreation"`
}
