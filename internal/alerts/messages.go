package alerts

import (
	"encoding/json"
	"time"

	"finboard/internal/engine"
)

// ProjectAlertMessage carries one early warning for one project. Consumers
// fetch any further detail from the API; the message is self-contained
// enough to route and display.
type ProjectAlertMessage struct {
	ProjectID      string    `json:"projectId"`
	ProjectName    string    `json:"projectName"`
	Severity       string    `json:"severity"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	HealthScore    int       `json:"healthScore"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewProjectAlertMessage builds a message from a detected warning.
func NewProjectAlertMessage(projectID, projectName string, healthScore int, w engine.Warning) *ProjectAlertMessage {
	return &ProjectAlertMessage{
		ProjectID:      projectID,
		ProjectName:    projectName,
		Severity:       string(w.Severity),
		Type:           string(w.Type),
		Message:        w.Message,
		Recommendation: w.Recommendation,
		HealthScore:    healthScore,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ProjectAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProjectAlertMessageFromJSON creates a message from JSON bytes
func ProjectAlertMessageFromJSON(data []byte) (*ProjectAlertMessage, error) {
	var msg ProjectAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
