package cmd

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Source", "BPM"},
		[][]string{{"a.wav", "120.00"}, {"b.wav"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"Source", "BPM", "a.wav", "120.00", "b.wav"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("empty header should render nothing")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"server": false, "detect": false, "waveform": false, "catalog": false, "minio": false, "redis": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
