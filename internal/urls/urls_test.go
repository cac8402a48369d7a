package urls

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no urls",
			text: "just some shell output\n$ ls -la\n",
			want: nil,
		},
		{
			name: "single http url",
			text: "see https://example.com/docs for details",
			want: []string{"https://example.com/docs"},
		},
		{
			name: "multiple schemes",
			text: "git clone git://host.example/repo and curl ftp://10.0.0.1/file",
			want: []string{"git://host.example/repo", "ftp://10.0.0.1/file"},
		},
		{
			name: "duplicates collapse in first-seen order",
			text: "https://a.example https://b.example https://a.example",
			want: []string{"https://a.example", "https://b.example"},
		},
		{
			name: "file path url",
			text: "wrote file:///var/log/boot.log today",
			want: []string{"file:///var/log/boot.log"},
		},
		{
			name: "url with port query and fragment",
			text: "open http://host.example:8080/path?q=1#frag now",
			want: []string{"http://host.example:8080/path?q=1#frag"},
		},
		{
			name: "case insensitive scheme",
			text: "HTTPS://EXAMPLE.COM is shouty",
			want: []string{"HTTPS://EXAMPLE.COM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
