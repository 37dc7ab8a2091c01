package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretNeverFormatsItsValue(t *testing.T) {
	t.Parallel()

	s := Secret("wJalrXUtnFEMI/K7MDENG")
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.NotContains(t, fmt.Sprintf("key=%s token=%v", s, s), "wJalrXUtnFEMI")
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		secrets []string
		want    string
	}{
		{
			name:    "replaces every occurrence",
			input:   "signing with topsecret failed, retrying with topsecret",
			secrets: []string{"topsecret"},
			want:    "signing with [REDACTED] failed, retrying with [REDACTED]",
		},
		{
			name:    "multiple secrets",
			input:   "key=AKIAEXAMPLE secret=hunter22",
			secrets: []string{"AKIAEXAMPLE", "hunter22"},
			want:    "key=[REDACTED] secret=[REDACTED]",
		},
		{
			name:    "short values are left alone",
			input:   "region us-east-1 with code abc",
			secrets: []string{"", "abc", "us"},
			want:    "region us-east-1 with code abc",
		},
		{
			name:    "no secrets",
			input:   "nothing sensitive here",
			secrets: nil,
			want:    "nothing sensitive here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Redact(tt.input, tt.secrets))
		})
	}
}
