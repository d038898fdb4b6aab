// Package telemetry identifies echo links on a telemetry bus.
package telemetry

import (
	"strings"

	"github.com/robotalks/uartecho/pkg/telemetry/msgs"
)

// DefaultType is the link type published by uartechod.
const DefaultType = "uart-echo"

// Topic suffixes under a link's name.
const (
	TopicMeta  = "meta"
	TopicStats = "stats"
	TopicCmd   = "cmd"
	TopicReply = "reply"
)

// LinkRef is a reference to an echo link.
type LinkRef struct {
	// Type is the link type.
	Type string `json:"type"`
	// ID is unique ID of the link.
	ID string `json:"id"`
}

// Name retrieves the name from ref.
func (r LinkRef) Name() string {
	return r.Type + "/" + r.ID
}

// Topic returns the topic for suffix under the ref.
func (r LinkRef) Topic(suffix string) string {
	return r.Name() + "/" + suffix
}

// IsValid indicates LinkRef is valid.
func (r LinkRef) IsValid() bool {
	return r.Type != "" && r.ID != "" &&
		!strings.ContainsAny(r.Type+r.ID, "/+#")
}

// ParseTopic splits TYPE/ID/SUFFIX.
func ParseTopic(topic string) (ref LinkRef, suffix string, ok bool) {
	items := strings.SplitN(topic, "/", 3)
	if len(items) != 3 {
		return
	}
	return LinkRef{Type: items[0], ID: items[1]}, items[2], true
}

// LinkInfo provides information of a link.
type LinkInfo struct {
	Ref  LinkRef   `json:"ref"`
	Meta msgs.Meta `json:"meta"`
}
