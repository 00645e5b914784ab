package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		verb Verb
		arg  string
	}{
		{"ls", VerbList, ""},
		{"  LS  ", VerbList, ""},
		{"cd ..", VerbCd, ".."},
		{"get my file.txt", VerbGet, "my file.txt"},
		{"Restart 40\r\n", VerbRestart, "40"},
		{"login alice secret", VerbLogin, "alice secret"},
		{"", "", ""},
		{"   ", "", ""},
	}

	for _, tt := range tests {
		verb, arg := ParseCommand(tt.line)
		assert.Equal(t, tt.verb, verb, "line %q", tt.line)
		assert.Equal(t, tt.arg, arg, "line %q", tt.line)
	}
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "ls", FormatCommand(VerbList, ""))
	assert.Equal(t, "restart 0", FormatCommand(VerbRestart, "0"))
}

func TestResponseHelpers(t *testing.T) {
	assert.True(t, IsOK("OK /srv/ftp"))
	assert.True(t, IsOK("OK"))
	assert.False(t, IsOK("ERROR: file does not exist"))
	assert.Equal(t, "/srv/ftp", OKPayload("OK /srv/ftp"))
	assert.Equal(t, "", OKPayload("OK"))

	err := fmt.Errorf("%w: nope", ErrInvalidArgument)
	assert.Equal(t, "ERROR: invalid argument: nope", ErrorResponse(err))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestServerError(t *testing.T) {
	err := &ServerError{Verb: VerbCd, Message: "ERROR: directory does not exist"}
	assert.Contains(t, err.Error(), "cd rejected")
	assert.Contains(t, err.Error(), "directory does not exist")
}
