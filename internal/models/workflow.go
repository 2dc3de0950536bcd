package models

// WorkflowDescriptor maps a function type to a remote workflow and its
// default parameters. Descriptors are loaded once at startup and never
// mutated afterwards.
type WorkflowDescriptor struct {
	WorkflowID    string         `yaml:"workflowId" json:"workflowId"`
	DefaultParams map[string]any `yaml:"defaultParams" json:"defaultParams"`
}
