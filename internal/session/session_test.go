package session

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDurationString(t *testing.T) {
	tests := []struct {
		name string
		d    Duration
		want string
	}{
		{"zero", 0, "00:00"},
		{"negative", Duration(-time.Second), "00:00"},
		{"three seconds", Duration(3 * time.Second), "00:03"},
		{"one minute five", Duration(65 * time.Second), "01:05"},
		{"twelve minutes", Duration(12*time.Minute + 34*time.Second), "12:34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	in := Duration(2*time.Minute + 7*time.Second)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"02:07"` {
		t.Errorf("Marshal = %s, want \"02:07\"", data)
	}

	var out Duration
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}

func TestDurationUnmarshalTolerant(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not a string", `12`},
		{"garbage", `"later"`},
		{"empty", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			if err := json.Unmarshal([]byte(tt.data), &d); err != nil {
				t.Errorf("Unmarshal(%s) error = %v, want nil", tt.data, err)
			}
			if d != 0 {
				t.Errorf("Unmarshal(%s) = %v, want 0", tt.data, d)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusEmpty, StatusRecording, StatusInProgress, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("%v should be valid", s)
		}
	}
	if Status("Archived").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestLastTouched(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	s := &Session{CreatedAt: created}
	if got := s.LastTouched(); !got.Equal(created) {
		t.Errorf("LastTouched() = %v, want created", got)
	}

	s.UpdatedAt = &updated
	if got := s.LastTouched(); !got.Equal(updated) {
		t.Errorf("LastTouched() = %v, want updated", got)
	}
}
