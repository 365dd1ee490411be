package security

import (
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"公開HTTPSのURLは許可", "https://news.example.com/rss.xml", false},
		{"公開HTTPのURLは許可", "http://news.example.com/feed", false},
		{"空文字列は拒否", "", true},
		{"fileスキームは拒否", "file:///etc/passwd", true},
		{"javascriptスキームは拒否", "javascript:alert(1)", true},
		{"ftpスキームは拒否", "ftp://example.com/feed", true},
		{"localhostは拒否", "http://localhost/feed", true},
		{"localhostの大文字小文字違いも拒否", "http://LOCALHOST/feed", true},
		{"ループバックIPは拒否", "http://127.0.0.1/feed", true},
		{"プライベートIP 10.x は拒否", "http://10.0.0.5/feed", true},
		{"プライベートIP 172.16.x は拒否", "http://172.16.0.1/feed", true},
		{"プライベートIP 192.168.x は拒否", "http://192.168.1.1/feed", true},
		{"メタデータIPは拒否", "http://169.254.169.254/latest/meta-data/", true},
		{"IPv6ループバックは拒否", "http://[::1]/feed", true},
		{"ホストなしは拒否", "https:///path-only", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr = %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewSafeClient_ReturnsConfiguredClient(t *testing.T) {
	guard := NewSSRFGuard()

	client := guard.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient returned nil")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", client.Timeout)
	}
}
