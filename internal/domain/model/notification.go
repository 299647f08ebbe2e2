package model

// NotifyTarget is a closed set of notification audiences. Each kind carries
// its own typed payload instead of a dynamic type-name/id pair.
type NotifyTarget interface {
	notifyTarget()
}

// UserTarget addresses a single user's devices.
type UserTarget struct {
	UserID string
}

func (UserTarget) notifyTarget() {}

// TopicTarget addresses everyone subscribed to a named topic.
type TopicTarget struct {
	Topic string
}

func (TopicTarget) notifyTarget() {}

// Message is the payload handed to the push notifier.
type Message struct {
	Title    string
	Body     string
	ImageURL string
}
