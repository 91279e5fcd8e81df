// Package events defines the closed set of lifecycle events published during
// workflow execution.
package events

import (
	"time"

	"github.com/flowkite/flowkite/pkg/models"
)

type EventType string

// Bus topics. Every event is published on Topic; events are additionally
// published on a per-workflow room topic (see RoomTopic).
const Topic = "flowkite.events"

const EventKeyMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// RoomTopic returns the broadcast topic for one workflow's subscribers.
func RoomTopic(workflowID string) string {
	return "flowkite.workflow." + workflowID
}

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	StepStartedEvent   EventType = "step.started"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
}

type ExecutionStarted struct {
	BaseEvent

	Owner      string `json:"owner"`
	Trigger    string `json:"trigger"`
	TotalSteps int    `json:"total_steps"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Duration       time.Duration `json:"duration"`
	StepsCompleted int           `json:"steps_completed"`
	StepsFailed    int           `json:"steps_failed"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	Reason string `json:"reason"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type StepStarted struct {
	BaseEvent

	StepID    string          `json:"step_id"`
	StepIndex int             `json:"step_index"`
	StepType  models.StepType `json:"step_type"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	StepID    string          `json:"step_id"`
	StepIndex int             `json:"step_index"`
	StepType  models.StepType `json:"step_type"`
	Result    any             `json:"result,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	StepID    string          `json:"step_id"`
	StepIndex int             `json:"step_index"`
	StepType  models.StepType `json:"step_type"`
	Error     string          `json:"error"`
	Duration  time.Duration   `json:"duration"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}
