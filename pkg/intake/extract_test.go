package intake

import "testing"

func TestIsDevelopmentURL(t *testing.T) {
	tests := map[string]bool{
		"exp://192.168.0.2:8081":              true,
		"exps://example.com":                  true,
		"expo-development://client":           true,
		"https://localhost:8080/path":         true,
		"https://10.0.0.1/?u=192.168.1.1":     true,
		"http://127.0.0.1":                    true,
		"https://example.com":                 false,
		"flashmemo://share?url=https://x.com": false,
		"EXP://upper.case":                    false,
	}
	for in, want := range tests {
		if got := IsDevelopmentURL(in); got != want {
			t.Errorf("IsDevelopmentURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestExtractTarget(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"url param", "flashmemo://share?url=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a", true},
		{"text param", "flashmemo://share?text=https://example.com/b", "https://example.com/b", true},
		{"url wins over text", "flashmemo://share?text=https://t.example&url=https://u.example", "https://u.example", true},
		{"empty url falls back to text", "flashmemo://share?url=&text=https://t.example", "https://t.example", true},
		{"plain web url", "https://example.com/article", "https://example.com/article", true},
		{"prefix stripped", "flashmemo://share?https://example.com", "https://example.com", true},
		{"other query kept", "flashmemo://share?foo=bar", "foo=bar", true},
		{"empty", "", "", false},
		{"prefix only", "flashmemo://share?", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTarget(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("ExtractTarget(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractTargetDecodesURLRemainder(t *testing.T) {
	// Unparseable as a URI, so the prefix-stripping path is taken.
	raw := "share app://host?url=https%3A%2F%2Fexample.com%2Fa+b"
	got, ok := ExtractTarget(raw)
	if !ok {
		t.Fatal("expected a target")
	}
	if got != "https://example.com/a+b" {
		t.Fatalf("unexpected target %q", got)
	}

	// Broken escapes keep the raw remainder.
	raw = "share app://host?url=https://example.com/%zz"
	if got, _ := ExtractTarget(raw); got != "https://example.com/%zz" {
		t.Fatalf("unexpected target %q", got)
	}
}

func TestValidTarget(t *testing.T) {
	if !ValidTarget("https://example.com") || !ValidTarget("http://example.com") {
		t.Fatal("expected web urls to be valid")
	}
	for _, in := range []string{"", "HTTPS://EXAMPLE.COM", "ftp://x", "instagram://media?id=1"} {
		if ValidTarget(in) {
			t.Errorf("ValidTarget(%q) should be false", in)
		}
	}
}

func TestPayloadFor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=abc&t=1", "https://www.youtube.com/watch?v=abc&t=1"},
		{"instagram://media?id=CxYz", "https://instagram.com/p/CxYz"},
		{"flashmemo://share?url=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"myapp://share?text=https%3A%2F%2Fexample.com%2Fb%3Fx%3D1", "https://example.com/b?x=1"},
	}
	for _, tt := range tests {
		got, ok := ExtractTarget(PayloadFor(tt.in))
		if !ok || got != tt.want {
			t.Errorf("ExtractTarget(PayloadFor(%q)) = %q, %v; want %q", tt.in, got, ok, tt.want)
		}
	}

	// Payloads and non-links pass through untouched.
	for _, in := range []string{"exp://192.168.1.4:8081", "just words", "flashmemo://share?url=x"} {
		if got := PayloadFor(in); got != in {
			t.Errorf("PayloadFor(%q) = %q, want unchanged", in, got)
		}
	}
}
