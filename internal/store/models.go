package store

import "time"

// ConversationRecord is one persisted question/answer exchange. Records are
// append-only; nothing in the service updates or deletes them.
type ConversationRecord struct {
	SessionID string            `bson:"session_id" json:"session_id"`
	Question  string            `bson:"question" json:"question"`
	Answer    string            `bson:"answer" json:"answer"`
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]string `bson:"metadata" json:"metadata"`
}
