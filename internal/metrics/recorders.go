package metrics

type QueueRecorder interface {
	ObserveQueueDepth(depth int)
	IncQueueDrops()
}

type NoopQueueRecorder struct{}

func (NoopQueueRecorder) ObserveQueueDepth(depth int) {}
func (NoopQueueRecorder) IncQueueDrops()              {}

type ScanRecorder interface {
	IncScansStarted()
	IncScansCompleted()
	IncDevicesDiscovered()
	ObserveProbe(answered bool)
}

type NoopScanRecorder struct{}

func (NoopScanRecorder) IncScansStarted()           {}
func (NoopScanRecorder) IncScansCompleted()         {}
func (NoopScanRecorder) IncDevicesDiscovered()      {}
func (NoopScanRecorder) ObserveProbe(answered bool) {}

type MonitorRecorder interface {
	ObserveActiveMonitors(n int)
	IncSamples()
}

type NoopMonitorRecorder struct{}

func (NoopMonitorRecorder) ObserveActiveMonitors(n int) {}
func (NoopMonitorRecorder) IncSamples()                 {}
