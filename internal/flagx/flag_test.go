package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate flag and value",
			args:         []string{"-c", "conf.json", "-x", "1"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "combined flag=value",
			args:         []string{"--config=conf.json", "--other=2"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=conf.json"},
		},
		{
			name:         "flag without value",
			args:         []string{"-v", "-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "nothing allowed",
			args:         []string{"-a", "b"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowedFlags)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJSONConfigFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"signet", "-c", "signet.json", "-unrelated", "x"}
	assert.Equal(t, "signet.json", JSONConfigFlags())

	os.Args = []string{"signet"}
	assert.Equal(t, "", JSONConfigFlags())
}
