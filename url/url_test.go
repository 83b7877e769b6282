package url

import "testing"

func TestIsBlockedHost(t *testing.T) {
	tests := []struct {
		name string
		host string
		want bool
	}{
		{name: "localhost", host: "localhost", want: true},
		{name: "localhost mixed case", host: "LocalHost", want: true},
		{name: "localhost trailing dot", host: "localhost.", want: true},
		{name: "loopback", host: "127.0.0.1", want: true},
		{name: "loopback high", host: "127.255.255.254", want: true},
		{name: "zeros", host: "0.0.0.0", want: true},
		{name: "private class A", host: "10.0.0.5", want: true},
		{name: "private class B low", host: "172.16.0.1", want: true},
		{name: "private class B high", host: "172.31.255.1", want: true},
		{name: "not private class B", host: "172.32.0.1", want: false},
		{name: "private class C", host: "192.168.1.1", want: true},
		{name: "link local", host: "169.254.169.254", want: true},
		{name: "carrier grade NAT low", host: "100.64.0.1", want: true},
		{name: "carrier grade NAT high", host: "100.127.0.1", want: true},
		{name: "not carrier grade NAT", host: "100.63.0.1", want: false},
		{name: "benchmark", host: "198.18.0.1", want: true},
		{name: "current network", host: "0.1.2.3", want: true},
		{name: "ipv6 loopback", host: "::1", want: true},
		{name: "ipv6 loopback bracketed", host: "[::1]", want: true},
		{name: "ipv6 unique local", host: "fc00::1", want: true},
		{name: "ipv6 link local", host: "fe80::1", want: true},
		{name: "gcp metadata", host: "metadata.google.internal", want: true},
		{name: "public host", host: "chatgpt.com", want: false},
		{name: "public ip", host: "8.8.8.8", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlockedHost(tt.host); got != tt.want {
				t.Errorf("IsBlockedHost(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestValidateShareURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid share link", url: "https://chatgpt.com/share/abc123"},
		{name: "valid with port", url: "https://claude.ai:443/share/abc"},
		{name: "plain http rejected", url: "http://chatgpt.com/share/abc123", wantErr: true},
		{name: "ftp rejected", url: "ftp://chatgpt.com/share/abc", wantErr: true},
		{name: "file rejected", url: "file:///etc/passwd", wantErr: true},
		{name: "empty", url: "", wantErr: true},
		{name: "whitespace only", url: "   ", wantErr: true},
		{name: "scheme relative", url: "//chatgpt.com/share/abc", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "not a url", url: "not a url at all", wantErr: true},
		{name: "https loopback", url: "https://127.0.0.1/share", wantErr: true},
		{name: "https localhost", url: "https://localhost:8080/share", wantErr: true},
		{name: "https private", url: "https://192.168.0.10/conversation", wantErr: true},
		{name: "https metadata", url: "https://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "https ipv6 loopback", url: "https://[::1]/share", wantErr: true},
		{name: "https ipv6 link local", url: "https://[fe80::1]/share", wantErr: true},
		{name: "mixed case blocked host", url: "https://LOCALHOST/share", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateShareURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateShareURL(%q) expected error, got nil", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateShareURL(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}

func TestIsSafe(t *testing.T) {
	if !IsSafe("https://perplexity.ai/search/abc") {
		t.Error("expected public https url to be safe")
	}
	if IsSafe("https://10.0.0.1/share") {
		t.Error("expected private ip url to be unsafe")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := ExtractHost("https://Gemini.Google.com:443/share/abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "gemini.google.com" {
		t.Errorf("ExtractHost = %q, want %q", host, "gemini.google.com")
	}

	if _, err := ExtractHost("not a url"); err == nil {
		t.Error("expected error for url without host")
	}
}
