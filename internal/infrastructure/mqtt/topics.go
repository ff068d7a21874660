package mqtt

import "fmt"

// Topic prefixes.
//
//	moku/events/{type}   control-core events (session.attached, deploy.completed, ...)
//	moku/system/status   retained online/offline status
const (
	TopicPrefix       = "moku"
	TopicPrefixEvents = "moku/events"
	TopicPrefixSystem = "moku/system"
)

// Topics provides builders for MQTT topics.
//
//	topic := mqtt.Topics{}.Event("deploy.completed")
//	// Returns: "moku/events/deploy.completed"
type Topics struct{}

// Event returns the topic for one event type.
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// SystemStatus returns the retained status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllEvents returns a wildcard matching every event topic.
func (Topics) AllEvents() string {
	return TopicPrefixEvents + "/#"
}
