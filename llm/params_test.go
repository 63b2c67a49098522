package llm

import "testing"

func TestResolveSampling(t *testing.T) {
	temp := 0.7
	topP := 0.9

	tests := []struct {
		name     string
		req      *Request
		wantTemp *float64
		wantTopP *float64
	}{
		{name: "temperature only", req: &Request{Temperature: &temp}, wantTemp: &temp},
		{name: "top_p only", req: &Request{TopP: &topP}, wantTopP: &topP},
		{name: "both set, temperature wins", req: &Request{Temperature: &temp, TopP: &topP}, wantTemp: &temp},
		{name: "neither, default temperature", req: &Request{}, wantTemp: func() *float64 { d := DefaultTemperature; return &d }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTemp, gotTopP := ResolveSampling(tt.req)

			if (gotTemp != nil) != (tt.wantTemp != nil) || (gotTemp != nil && *gotTemp != *tt.wantTemp) {
				t.Errorf("temperature: expected %v, got %v", tt.wantTemp, gotTemp)
			}
			if (gotTopP != nil) != (tt.wantTopP != nil) || (gotTopP != nil && *gotTopP != *tt.wantTopP) {
				t.Errorf("top_p: expected %v, got %v", tt.wantTopP, gotTopP)
			}
			if (gotTemp != nil) == (gotTopP != nil) {
				t.Errorf("expected exactly one of temperature/top_p to be set")
			}
		})
	}
}

func TestMimeSupported(t *testing.T) {
	supported := []string{"image/png", "image/jpeg", "application/pdf", "text/*"}

	tests := []struct {
		mime string
		want bool
	}{
		{"image/png", true},
		{"IMAGE/PNG", true},
		{"image/png; charset=binary", true},
		{"image/webp", false},
		{"text/plain", true},
		{"text/markdown", true},
		{"application/pdf", true},
		{"application/json", false},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := MimeSupported(tt.mime, supported); got != tt.want {
				t.Errorf("MimeSupported(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestIsTextMime(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"text/markdown; charset=utf-8", true},
		{"application/json", true},
		{"application/yaml", true},
		{"image/png", false},
		{"application/pdf", false},
	}

	for _, tt := range tests {
		if got := IsTextMime(tt.mime); got != tt.want {
			t.Errorf("IsTextMime(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}
