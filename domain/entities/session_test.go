package entities

import (
	"math"
	"testing"
	"time"
)

func TestReminderCreation(t *testing.T) {
	before := time.Now()
	reminder := NewReminder("call mom", 5)

	if reminder.ID == "" {
		t.Error("Expected reminder ID to be generated")
	}

	if reminder.Status != ReminderStatusPending {
		t.Errorf("Expected status %s, got %s", ReminderStatusPending, reminder.Status)
	}

	expectedDue := before.Add(5 * time.Minute)
	if reminder.DueAt.Sub(expectedDue).Abs() > time.Second {
		t.Errorf("Expected due time around %v, got %v", expectedDue, reminder.DueAt)
	}

	if !reminder.IsPending() {
		t.Error("New reminder should be pending")
	}
}

func TestReminderFractionalDelay(t *testing.T) {
	reminder := NewReminder("tea", 0.5)

	got := reminder.DueAt.Sub(reminder.CreatedAt)
	if got != 30*time.Second {
		t.Errorf("Expected 30s delay, got %v", got)
	}
}

func TestCheckDelay(t *testing.T) {
	for _, d := range []float64{0, 0.5, MaxReminderDelayMinutes} {
		if err := CheckDelay(d); err != nil {
			t.Errorf("Delay %v should be accepted, got: %v", d, err)
		}
	}
	for _, d := range []float64{-1, MaxReminderDelayMinutes + 1, 1e12, math.Inf(1), math.NaN()} {
		if err := CheckDelay(d); err == nil {
			t.Errorf("Delay %v should be rejected", d)
		}
	}
}

func TestReminderFireAndCancel(t *testing.T) {
	reminder := NewReminder("stretch", 1)

	reminder.Fire()
	if reminder.Status != ReminderStatusFired {
		t.Errorf("Expected fired status, got %s", reminder.Status)
	}
	if reminder.FiredAt == nil {
		t.Error("Expected FiredAt to be set")
	}
	if reminder.IsPending() {
		t.Error("Fired reminder should not be pending")
	}

	other := NewReminder("water plants", 1)
	other.Cancel()
	if other.Status != ReminderStatusCancelled {
		t.Errorf("Expected cancelled status, got %s", other.Status)
	}
}

func TestReminderRemaining(t *testing.T) {
	reminder := NewReminder("stretch", 1)
	now := reminder.CreatedAt

	if got := reminder.Remaining(now); got != time.Minute {
		t.Errorf("Expected 1m remaining, got %v", got)
	}

	if got := reminder.Remaining(now.Add(2 * time.Minute)); got != 0 {
		t.Errorf("Overdue reminder should report 0 remaining, got %v", got)
	}
}

func TestReminderValidation(t *testing.T) {
	reminder := NewReminder("call mom", 5)
	if err := reminder.Validate(); err != nil {
		t.Errorf("Valid reminder should not have validation errors, got: %v", err)
	}

	reminder.Task = ""
	if err := reminder.Validate(); err == nil {
		t.Error("Reminder with empty task should have validation error")
	}

	reminder.Task = "call mom"
	reminder.DelayMinutes = -1
	if err := reminder.Validate(); err == nil {
		t.Error("Reminder with negative delay should have validation error")
	}

	reminder.DelayMinutes = 1e12
	if err := reminder.Validate(); err == nil {
		t.Error("Reminder with delay beyond a year should have validation error")
	}

	reminder.DelayMinutes = 5
	reminder.Status = ReminderStatus("invalid")
	if err := reminder.Validate(); err == nil {
		t.Error("Reminder with invalid status should have validation error")
	}
}

func TestConnectionState(t *testing.T) {
	for _, s := range []ConnectionState{StateDisconnected, StateConnecting, StateConnected, StateError} {
		if !s.IsValid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}

	if ConnectionState("bogus").IsValid() {
		t.Error("Unknown state should be invalid")
	}

	if !StateError.IsTerminal() || !StateDisconnected.IsTerminal() {
		t.Error("Error and Disconnected should be terminal")
	}

	if StateConnected.IsTerminal() {
		t.Error("Connected should not be terminal")
	}
}

func TestSessionInfoUptime(t *testing.T) {
	connectedAt := time.Now().Add(-time.Minute)
	info := SessionInfo{State: StateConnected, ConnectedAt: &connectedAt}

	if got := info.Uptime(connectedAt.Add(time.Minute)); got != time.Minute {
		t.Errorf("Expected 1m uptime, got %v", got)
	}

	info.State = StateDisconnected
	if got := info.Uptime(time.Now()); got != 0 {
		t.Errorf("Disconnected session should report 0 uptime, got %v", got)
	}
}

func TestToolCallArgs(t *testing.T) {
	call := ToolCall{
		ID:   "1",
		Name: "set_reminder",
		Args: map[string]any{"task": "call mom", "delay_minutes": float64(5), "count": 3},
	}

	task, err := call.StringArg("task")
	if err != nil || task != "call mom" {
		t.Errorf("Expected task 'call mom', got %q (%v)", task, err)
	}

	delay, err := call.NumberArg("delay_minutes")
	if err != nil || delay != 5 {
		t.Errorf("Expected delay 5, got %v (%v)", delay, err)
	}

	if n, err := call.NumberArg("count"); err != nil || n != 3 {
		t.Errorf("Expected int arg to convert, got %v (%v)", n, err)
	}

	if _, err := call.StringArg("delay_minutes"); err == nil {
		t.Error("Expected type error for non-string argument")
	}

	if _, err := call.NumberArg("missing"); err == nil {
		t.Error("Expected error for missing argument")
	}
}

func TestToolDeclarationValidate(t *testing.T) {
	decl := ToolDeclaration{
		Name:   "open_url",
		Params: []ToolParam{{Name: "url", Type: ParamString, Required: true}},
	}
	if err := decl.Validate(); err != nil {
		t.Errorf("Expected valid declaration, got %v", err)
	}

	decl.Params = append(decl.Params, ToolParam{Name: "url", Type: ParamString})
	if err := decl.Validate(); err == nil {
		t.Error("Expected duplicate parameter error")
	}

	bad := ToolDeclaration{Name: "x", Params: []ToolParam{{Name: "y", Type: "bool"}}}
	if err := bad.Validate(); err == nil {
		t.Error("Expected unsupported type error")
	}
}
