package domain

// ExecutionSink receives execution reports from the simulator, synchronously
// and in the order fills and status changes occur.
type ExecutionSink interface {
	OnExecution(report ExecutionReport)
}

// SinkFunc adapts a function to ExecutionSink.
type SinkFunc func(report ExecutionReport)

// OnExecution calls f(report).
func (f SinkFunc) OnExecution(report ExecutionReport) { f(report) }

// MultiSink fans a report out to several sinks in order.
type MultiSink []ExecutionSink

// OnExecution forwards report to every non-nil sink.
func (m MultiSink) OnExecution(report ExecutionReport) {
	for _, s := range m {
		if s != nil {
			s.OnExecution(report)
		}
	}
}

// ReportRecorder is an ExecutionSink that keeps every report in memory.
// Useful for tests and for short replays.
type ReportRecorder struct {
	Reports []ExecutionReport
}

// OnExecution appends report.
func (r *ReportRecorder) OnExecution(report ExecutionReport) {
	r.Reports = append(r.Reports, report)
}

// ByClOrdID returns the recorded reports for one order, in emission order.
func (r *ReportRecorder) ByClOrdID(id uint64) []ExecutionReport {
	var out []ExecutionReport
	for _, rep := range r.Reports {
		if rep.ClOrdID == id {
			out = append(out, rep)
		}
	}
	return out
}

// Reset drops all recorded reports.
func (r *ReportRecorder) Reset() {
	r.Reports = r.Reports[:0]
}
