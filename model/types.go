// Package model provides domain types shared across packages.
package model

import "time"

// ToolCallRecord is one entry in the audit log of an orchestration run.
// Only calls whose arguments parsed are recorded.
type ToolCallRecord struct {
	Iteration int            `json:"iteration"`
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments"`
	Timestamp time.Time      `json:"timestamp"`
}

// Step summarizes one loop iteration, for verbose output.
type Step struct {
	Iteration int    `json:"iteration"`
	Action    string `json:"action"` // function name, or "answer"
	Status    string `json:"status,omitempty"`
}
