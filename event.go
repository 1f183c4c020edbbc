package lumetric

import "time"

// Event is one captured analytics event. DistinctID and Name are required;
// everything else is filled by the client at capture time when absent.
type Event struct {
	DistinctID string         `json:"distinct_id"`
	Name       string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
	Timestamp  time.Time      `json:"timestamp,omitzero"`
	UUID       string         `json:"uuid,omitempty"`
}
