package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Verb string

const (
	VerbList     Verb = "ls"
	VerbCd       Verb = "cd"
	VerbGet      Verb = "get"
	VerbPut      Verb = "put"
	VerbRestart  Verb = "restart"
	VerbLogin    Verb = "login"
	VerbRegister Verb = "register"
	VerbQuit     Verb = "quit"
)

// ResponseOK prefixes every successful status line. Anything else is an error.
const ResponseOK = "OK"

// ErrorPrefix is put in front of error responses written by the server.
const ErrorPrefix = "ERROR: "

type Command interface {
	Execute(ctx context.Context, session *Session, arg string) (string, error)
	Name() Verb
}

type CommandHandler interface {
	HandleCommand(ctx context.Context, session *Session, verb Verb, arg string) (string, error)
	RegisterCommand(command Command)
}

var (
	ErrUnknownCommand     = errors.New("unknown command")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrDirectoryNotFound  = errors.New("directory does not exist")
	ErrFileNotFound       = errors.New("file does not exist")
	ErrFileExists         = errors.New("file already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already exists")
	ErrTransferInProgress = errors.New("a transfer is already in progress")
	ErrConnectionStopped  = errors.New("connection stopped, reconnect to continue")
	ErrNotConnected       = errors.New("not connected to server")
	ErrNoPendingTransfer  = errors.New("no interrupted transfer to resume")
	ErrMessageTooLarge    = errors.New("message exceeds maximum frame size")
)

// ServerError carries a non-OK response line back to the caller.
type ServerError struct {
	Verb    Verb
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Verb, e.Message)
}

// ParseCommand splits a command line into its verb and the raw remainder.
// The remainder keeps inner spaces so file names with spaces survive.
func ParseCommand(line string) (Verb, string) {
	line = strings.TrimSpace(line)
	verb, arg, _ := strings.Cut(line, " ")
	return Verb(strings.ToLower(verb)), strings.TrimSpace(arg)
}

func FormatCommand(verb Verb, arg string) string {
	if arg == "" {
		return string(verb)
	}
	return string(verb) + " " + arg
}

func IsOK(response string) bool {
	return strings.HasPrefix(response, ResponseOK)
}

// OKPayload returns what follows "OK " in a status line.
func OKPayload(response string) string {
	return strings.TrimPrefix(strings.TrimPrefix(response, ResponseOK), " ")
}

func ErrorResponse(err error) string {
	return ErrorPrefix + err.Error()
}
