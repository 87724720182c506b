package utils

import "testing"

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		input    string
		expected string
	}{
		{
			name:     "media prefix",
			baseURL:  "/media/",
			input:    "test_images/sample_photo.png",
			expected: "/media/test_images/sample_photo.png",
		},
		{
			name:     "absolute base without slash",
			baseURL:  "https://cdn.example.com/static",
			input:    "a/b.jpg",
			expected: "https://cdn.example.com/static/a/b.jpg",
		},
		{
			name:     "empty base",
			baseURL:  "",
			input:    "x.png",
			expected: "/x.png",
		},
		{
			name:     "escapes segments",
			baseURL:  "/media",
			input:    "dir/a b.png",
			expected: "/media/dir/a%20b.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinURL(tt.baseURL, tt.input); got != tt.expected {
				t.Errorf("JoinURL(%q, %q) = %q, want %q", tt.baseURL, tt.input, got, tt.expected)
			}
		})
	}
}
