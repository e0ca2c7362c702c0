package entity

import "testing"

func TestAppointmentTransitions(t *testing.T) {
	allStatuses := []AppointmentStatus{
		AppointmentStatusConfirmed,
		AppointmentStatusCancelled,
		AppointmentStatusCompleted,
		AppointmentStatusNoShow,
		AppointmentStatusRescheduled,
	}

	tests := []struct {
		name    string
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{"confirmed to cancelled", AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{"confirmed to completed", AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{"confirmed to no-show", AppointmentStatusConfirmed, AppointmentStatusNoShow, true},
		{"confirmed to rescheduled", AppointmentStatusConfirmed, AppointmentStatusRescheduled, true},
		{"confirmed to confirmed", AppointmentStatusConfirmed, AppointmentStatusConfirmed, false},
		{"cancelled to confirmed", AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
		{"completed to cancelled", AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{"no-show to completed", AppointmentStatusNoShow, AppointmentStatusCompleted, false},
		{"rescheduled to cancelled", AppointmentStatusRescheduled, AppointmentStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Appointment{Status: tt.from}
			if got := a.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
			}
		})
	}

	// Every status except CONFIRMED must be terminal.
	for _, status := range allStatuses {
		a := &Appointment{Status: status}
		wantTerminal := status != AppointmentStatusConfirmed
		if a.IsTerminal() != wantTerminal {
			t.Errorf("IsTerminal() for %s = %v, want %v", status, a.IsTerminal(), wantTerminal)
		}
		if wantTerminal {
			for _, target := range allStatuses {
				if a.CanTransitionTo(target) {
					t.Errorf("terminal status %s allows transition to %s", status, target)
				}
			}
		}
	}
}

func TestAppointmentOccupiesCapacity(t *testing.T) {
	tests := []struct {
		status   AppointmentStatus
		occupies bool
	}{
		{AppointmentStatusConfirmed, true},
		{AppointmentStatusCompleted, true},
		{AppointmentStatusCancelled, false},
		{AppointmentStatusNoShow, false},
		{AppointmentStatusRescheduled, false},
	}

	for _, tt := range tests {
		a := &Appointment{Status: tt.status}
		if got := a.OccupiesCapacity(); got != tt.occupies {
			t.Errorf("OccupiesCapacity() for %s = %v, want %v", tt.status, got, tt.occupies)
		}
	}
}
