package pipeline

import (
	"testing"

	"github.com/hibiken/asynq"
)

func TestProcessPayloadRoundTrip(t *testing.T) {
	task, err := NewProcessTask(ProcessPayload{InquiryID: "0b8f7d8e-1111-4222-8333-444455556666"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskIngestProcess {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	payload, err := ParseProcessPayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.InquiryID != "0b8f7d8e-1111-4222-8333-444455556666" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestNotifyPayloadRoundTrip(t *testing.T) {
	task, err := NewNotifyTask(NotifyPayload{LeadID: "lead-1", InquiryID: "inq-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskLeadNotify {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	payload, err := ParseNotifyPayload(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.LeadID != "lead-1" || payload.InquiryID != "inq-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestParseProcessPayloadRejectsGarbage(t *testing.T) {
	if _, err := ParseProcessPayload(asynq.NewTask(TaskIngestProcess, []byte("not json"))); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected client opt %+v", opt)
	}

	if _, err := redisClientOpt(""); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := redisClientOpt("://broken"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
