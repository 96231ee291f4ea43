package domain

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestIsRealString(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://h/a.png", true},
		{"  x  ", true},
		{"", false},
		{"   ", false},
		{"\t\r\n", false},
	}

	for _, tt := range tests {
		if got := IsRealString(tt.in); got != tt.want {
			t.Errorf("IsRealString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutputTarget(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr error
	}{
		{
			name: "basename of path",
			url:  "http://h/imgs/foo.png",
			want: filepath.Join("/out", "foo.png"),
		},
		{
			name: "query is ignored",
			url:  "https://h/a/b/cam1.jpg?t=123",
			want: filepath.Join("/out", "cam1.jpg"),
		},
		{
			name:    "root path",
			url:     "http://h/",
			wantErr: ErrNoFileName,
		},
		{
			name:    "no path",
			url:     "http://h",
			wantErr: ErrNoFileName,
		},
		{
			name:    "unparseable",
			url:     "http://h/%zz",
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputTarget(tt.url, "/out")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("OutputTarget() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("OutputTarget() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("OutputTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	s := NewSummary("run-1")
	s.MarkDispatched()
	s.MarkDispatched()
	s.Add(DownloadResult{URL: "a", Outcome: OutcomeFetched, Bytes: 10})
	s.Add(DownloadResult{URL: "b", Outcome: OutcomeFailed})

	if got := s.Dispatched(); got != 2 {
		t.Errorf("Dispatched() = %d, want 2", got)
	}
	if got := s.Completed(); got != 2 {
		t.Errorf("Completed() = %d, want 2", got)
	}
	if got := s.Bytes(); got != 10 {
		t.Errorf("Bytes() = %d, want 10", got)
	}
	if got := s.FailedURLs(); len(got) != 1 || got[0] != "b" {
		t.Errorf("FailedURLs() = %v, want [b]", got)
	}
}
