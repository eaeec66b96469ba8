package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is an append-only entry in the global message log.
// Seq is the server-assigned insertion order and breaks timestamp ties.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"`
	ReceiverID primitive.ObjectID `bson:"receiverId" json:"receiverId"`
	Body       string             `bson:"body" json:"body"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Seq        int64              `bson:"seq" json:"-"`
}

// Involves reports whether the message belongs to the conversation between a and b.
func (m *Message) Involves(a, b primitive.ObjectID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
