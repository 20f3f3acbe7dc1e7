package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain command", "uptime", "uptime"},
		{"sshpass", "sshpass -p hunter2 ssh host", "sshpass -p [REDACTED] ssh host"},
		{"env assignment", "PASSWORD=hunter2 ./deploy.sh", "PASSWORD=[REDACTED] ./deploy.sh"},
		{"quoted value", `token="abc def" run`, "token=[REDACTED] run"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.input))
		})
	}
}

func TestIsSensitiveField(t *testing.T) {
	assert.True(t, IsSensitiveField("password"))
	assert.True(t, IsSensitiveField("IFTTT-Service-Key"))
	assert.True(t, IsSensitiveField("Authorization"))
	assert.False(t, IsSensitiveField("hostname"))
	assert.False(t, IsSensitiveField("command"))
}
