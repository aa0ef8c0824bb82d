package workbench

import "testing"

func TestParseServerList(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "single server",
			output: `{"base_url": "/", "hostname": "0.0.0.0", "port": 8888, "token": "abc123", "url": "http://0.0.0.0:8888/"}`,
			want:   "abc123",
		},
		{
			name: "noise before json",
			output: "[I 2026-08-26 10:00:00 ServerApp] probing\n" +
				`{"token": "deadbeef", "url": "http://0.0.0.0:8888/"}` + "\n",
			want: "deadbeef",
		},
		{
			name: "first server with token wins",
			output: `{"token": "", "url": "http://0.0.0.0:8889/"}` + "\n" +
				`{"token": "second", "url": "http://0.0.0.0:8888/"}`,
			want: "second",
		},
		{
			name:   "no servers",
			output: "",
			want:   "",
		},
		{
			name:   "server without token",
			output: `{"url": "http://0.0.0.0:8888/"}`,
			want:   "",
		},
		{
			name:   "malformed json skipped",
			output: "{not json}\n" + `{"token": "ok"}`,
			want:   "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseServerList([]byte(tt.output)); got != tt.want {
				t.Errorf("ParseServerList() = %q, want %q", got, tt.want)
			}
		})
	}
}
