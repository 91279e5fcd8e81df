package models

// StepType tags a step with the handler that executes it.
type StepType string

const (
	// Browser interaction steps.
	StepTypeNavigate         StepType = "navigate"
	StepTypeClick            StepType = "click"
	StepTypeType             StepType = "type"
	StepTypeScroll           StepType = "scroll"
	StepTypeWaitForElement   StepType = "wait-for-element"
	StepTypeExtractText      StepType = "extract-text"
	StepTypeExtractAttribute StepType = "extract-attribute"
	StepTypeScreenshot       StepType = "screenshot"
	StepTypeGeneratePDF      StepType = "generate-pdf"
	StepTypeExecuteScript    StepType = "execute-script"

	// Control flow steps.
	StepTypeCondition StepType = "condition"
	StepTypeLoop      StepType = "loop"
	StepTypeBreak     StepType = "break"
	StepTypeContinue  StepType = "continue"

	// Integration steps.
	StepTypeHTTPRequest StepType = "http-request"
	StepTypeSendEmail   StepType = "send-email"
	StepTypeWebhook     StepType = "webhook"

	// File steps.
	StepTypeReadFile     StepType = "read-file"
	StepTypeWriteFile    StepType = "write-file"
	StepTypeDownloadFile StepType = "download-file"

	// Variable steps.
	StepTypeSetVariable   StepType = "set-variable"
	StepTypeTransformData StepType = "transform-data"
)

// WorkflowStep is one declared unit of work within a workflow. Configuration
// values may contain {{name}} placeholders resolved against the execution's
// variable map immediately before dispatch.
type WorkflowStep struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            StepType       `json:"type"          validate:"required"`
	Configuration   map[string]any `json:"configuration"`
	ContinueOnError bool           `json:"continue_on_error,omitempty"`
}
