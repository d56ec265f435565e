package service

import "circuitflow/internal/domain"

// LogEntry is one line of the sample execution log.
type LogEntry struct {
	ID        int    `json:"id"`
	Time      string `json:"time"`
	Type      string `json:"type"` // success | info | warning | error
	Message   string `json:"message"`
	Component string `json:"component"`
}

// Metric is a 0–100 gauge on the system tab.
type Metric struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// StatusPanel is the side panel view. Logs and metrics are sample data;
// only Workflow reflects live state.
type StatusPanel struct {
	Workflow domain.WorkflowStatus `json:"workflow"`
	Logs     []LogEntry            `json:"logs"`
	Metrics  []Metric              `json:"metrics"`
}

var sampleLogs = []LogEntry{
	{1, "14:32:15", "success", "Power Source initialized", "power-source-1"},
	{2, "14:32:16", "info", "Data flowing to Transformer", "transformer-1"},
	{3, "14:32:17", "success", "AI Processor completed task", "microchip-1"},
	{4, "14:32:18", "warning", "Memory buffer 80% full", "memory-chip-1"},
	{5, "14:32:19", "success", "Email sent successfully", "transmitter-1"},
}

var sampleMetrics = []Metric{
	{"CPU Usage", 45},
	{"Memory", 67},
	{"Network", 23},
	{"Storage", 89},
}

// StatusService assembles the status bar and side panel.
type StatusService struct {
	canvas *CanvasService
	exec   *ExecutionService
}

func NewStatusService(canvas *CanvasService, exec *ExecutionService) *StatusService {
	return &StatusService{canvas: canvas, exec: exec}
}

// Workflow is the status bar: run state plus block and connection counts.
func (s *StatusService) Workflow() domain.WorkflowStatus {
	return s.canvas.State().Status(s.exec.State())
}

// Panel returns the side panel view.
func (s *StatusService) Panel() StatusPanel {
	return StatusPanel{
		Workflow: s.Workflow(),
		Logs:     append([]LogEntry(nil), sampleLogs...),
		Metrics:  append([]Metric(nil), sampleMetrics...),
	}
}
