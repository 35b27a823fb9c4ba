package progress

import "testing"

func TestScale(t *testing.T) {
	cases := []struct {
		name       string
		local      float64
		start, end float64
		want       float64
	}{
		{"midpoint", 50, 10, 50, 30},
		{"zero", 0, 10, 50, 10},
		{"full", 100, 10, 50, 50},
		{"clamped low", -20, 10, 50, 10},
		{"clamped high", 140, 10, 50, 50},
		{"identity band", 50, 0, 100, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Scale(tc.local, tc.start, tc.end); got != tc.want {
				t.Errorf("Scale(%v, %v, %v) = %v, want %v", tc.local, tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestFuncReporter(t *testing.T) {
	var got Update
	reporter := Func(func(u Update) { got = u })
	reporter.Report(Update{Percent: 42, Stage: "translate", OperationID: "op-1"})
	if got.Percent != 42 || got.Stage != "translate" || got.OperationID != "op-1" {
		t.Errorf("unexpected update: %+v", got)
	}
}

func TestDiscardDoesNotPanic(t *testing.T) {
	Discard.Report(Update{Percent: 1})
}
