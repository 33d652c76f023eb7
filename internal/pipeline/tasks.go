// Package pipeline runs the asynchronous stages of ingestion on asynq:
// classification and commit after the webhook ack, and the downstream
// notification request.
package pipeline

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskIngestProcess = "ingest:process"

const TaskIngestReprocess = "ingest:reprocess"

const TaskLeadNotify = "lead:notify"

type ProcessPayload struct {
	InquiryID string `json:"inquiryId"`
}

type NotifyPayload struct {
	LeadID    string `json:"leadId"`
	InquiryID string `json:"inquiryId"`
}

func NewProcessTask(payload ProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIngestProcess, data), nil
}

func ParseProcessPayload(task *asynq.Task) (ProcessPayload, error) {
	var payload ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessPayload{}, err
	}
	return payload, nil
}

func NewReprocessTask(payload ProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIngestReprocess, data), nil
}

func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadNotify, data), nil
}

func ParseNotifyPayload(task *asynq.Task) (NotifyPayload, error) {
	var payload NotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotifyPayload{}, err
	}
	return payload, nil
}
