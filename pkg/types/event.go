package types

import "time"

type EventType string

const (
	EventQueueDrop      EventType = "QueueDrop"
	EventScanStarted    EventType = "ScanStarted"
	EventScanFinished   EventType = "ScanFinished"
	EventDeviceUp       EventType = "DeviceUp"
	EventDeviceDown     EventType = "DeviceDown"
	EventMonitorStarted EventType = "MonitorStarted"
	EventMonitorStopped EventType = "MonitorStopped"
)

type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"ts"`
	Host      string         `json:"host,omitempty"`
	ScanID    string         `json:"scan_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
