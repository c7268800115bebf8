package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSequential(t *testing.T) {
	samples := Sequential(100, 10)
	if len(samples) != 100 {
		t.Fatalf("len: got %d", len(samples))
	}
	if samples[0].Key != 10 || samples[99].Key != 109 {
		t.Errorf("key range: got [%g, %g]", samples[0].Key, samples[99].Key)
	}
	for i, s := range samples {
		if s.Pos != i {
			t.Fatalf("pos at %d: got %d", i, s.Pos)
		}
	}
}

func TestLogNormalSortedAndDeterministic(t *testing.T) {
	a := LogNormal(5000, 0, 2, 1e9, 42)
	b := LogNormal(5000, 0, 2, 1e9, 42)

	for i := range a {
		if i > 0 && a[i].Key < a[i-1].Key {
			t.Fatalf("keys not sorted at %d", i)
		}
		if a[i].Pos != i {
			t.Fatalf("pos at %d: got %d", i, a[i].Pos)
		}
		if a[i].Key != b[i].Key {
			t.Fatalf("same seed produced different keys at %d", i)
		}
	}

	c := LogNormal(5000, 0, 2, 1e9, 43)
	same := true
	for i := range a {
		if a[i].Key != c[i].Key {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical keys")
	}
}

func TestUniformRange(t *testing.T) {
	samples := Uniform(2000, 1e6, 7)
	for i, s := range samples {
		if s.Key < 0 || s.Key >= 1e6 {
			t.Fatalf("key %g out of range at %d", s.Key, i)
		}
		if i > 0 && s.Key < samples[i-1].Key {
			t.Fatalf("keys not sorted at %d", i)
		}
	}
}

func TestLoadNASALogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	content := `host1 - - [01/Jul/1995:00:00:01 -0400] "GET /a HTTP/1.0" 200 100
host2 - - [01/Jul/1995:00:00:06 -0400] "GET /b HTTP/1.0" 200 200
garbage line without timestamp
host3 - - [01/Jul/1995:00:00:03 -0400] "GET /c HTTP/1.0" 200 300
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	samples, err := LoadNASALogs(path, 0)
	if err != nil {
		t.Fatalf("LoadNASALogs: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("records: got %d, want 3", len(samples))
	}
	// Sorted by timestamp, not file order.
	if samples[0].Key >= samples[1].Key || samples[1].Key >= samples[2].Key {
		t.Errorf("timestamps not ascending: %g %g %g",
			samples[0].Key, samples[1].Key, samples[2].Key)
	}
	if samples[1].Key-samples[0].Key != 2 {
		t.Errorf("gap between first two: got %g, want 2s", samples[1].Key-samples[0].Key)
	}
}

func TestLoadNASALogsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	content := `a [01/Jul/1995:00:00:01 -0400] x
b [01/Jul/1995:00:00:02 -0400] x
c [01/Jul/1995:00:00:03 -0400] x
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	samples, err := LoadNASALogs(path, 2)
	if err != nil {
		t.Fatalf("LoadNASALogs: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("records: got %d, want 2", len(samples))
	}
}

func TestLoadOSMLongitudes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.csv")
	content := `id,lon,lat
1,13.40,52.52
2,-0.12,51.50
3,2.35,48.85
4,notanumber,0.0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	samples, err := LoadOSMLongitudes(path, 0)
	if err != nil {
		t.Fatalf("LoadOSMLongitudes: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("records: got %d, want 3", len(samples))
	}
	if samples[0].Key != -0.12 || samples[2].Key != 13.40 {
		t.Errorf("sorted longitudes: got [%g .. %g]", samples[0].Key, samples[2].Key)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadNASALogs("/nonexistent/access.log", 0); err == nil {
		t.Error("expected error for missing nasa log")
	}
	if _, err := LoadOSMLongitudes("/nonexistent/nodes.csv", 0); err == nil {
		t.Error("expected error for missing osm csv")
	}
}
