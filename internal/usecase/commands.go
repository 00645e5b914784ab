package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"NSSaDS/ftp/internal/domain"
)

type ListCommand struct {
	store domain.FileStore
}

func (c *ListCommand) Execute(ctx context.Context, session *domain.Session, arg string) (string, error) {
	listing, err := c.store.List(session.CurrentDir)
	if err != nil {
		return "", err
	}
	return listing.Format(filepath.Separator), nil
}

func (c *ListCommand) Name() domain.Verb {
	return domain.VerbList
}

// ChangeDirCommand moves the session only when the target exists.
type ChangeDirCommand struct {
	store domain.FileStore
}

func (c *ChangeDirCommand) Execute(ctx context.Context, session *domain.Session, arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("%w: usage: cd <directory>", domain.ErrInvalidArgument)
	}

	dir, err := c.store.ResolveDir(session.CurrentDir, arg)
	if err != nil {
		return "", err
	}

	session.CurrentDir = dir
	return domain.ResponseOK + " " + dir, nil
}

func (c *ChangeDirCommand) Name() domain.Verb {
	return domain.VerbCd
}

// RestartCommand records the offset and echoes it. It never seeks anything.
type RestartCommand struct{}

func (c *RestartCommand) Execute(ctx context.Context, session *domain.Session, arg string) (string, error) {
	offset, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || offset < 0 {
		return "", fmt.Errorf("%w: usage: restart <bytes>", domain.ErrInvalidArgument)
	}

	session.RestartOffset = offset
	return strconv.FormatInt(offset, 10), nil
}

func (c *RestartCommand) Name() domain.Verb {
	return domain.VerbRestart
}

type LoginCommand struct {
	store domain.CredentialStore
}

func (c *LoginCommand) Execute(ctx context.Context, session *domain.Session, arg string) (string, error) {
	username, password, err := credentials(arg, domain.VerbLogin)
	if err != nil {
		return "", err
	}

	ok, err := c.store.Authenticate(ctx, username, password)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "LoginCommand.Execute",
			"session_id": session.ID,
			"username":   username,
			"error":      err.Error(),
		}).Error("Credential store lookup failed")
		return "", domain.ErrInvalidCredentials
	}
	if !ok {
		return "", domain.ErrInvalidCredentials
	}

	logrus.WithFields(logrus.Fields{
		"function":   "LoginCommand.Execute",
		"session_id": session.ID,
		"username":   username,
	}).Info("User logged in")

	return domain.ResponseOK, nil
}

func (c *LoginCommand) Name() domain.Verb {
	return domain.VerbLogin
}

type RegisterCommand struct {
	store domain.CredentialStore
}

func (c *RegisterCommand) Execute(ctx context.Context, session *domain.Session, arg string) (string, error) {
	username, password, err := credentials(arg, domain.VerbRegister)
	if err != nil {
		return "", err
	}

	ok, err := c.store.Register(ctx, username, password)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "RegisterCommand.Execute",
			"session_id": session.ID,
			"username":   username,
			"error":      err.Error(),
		}).Error("Credential store insert failed")
		return "", fmt.Errorf("registration failed")
	}
	if !ok {
		return "", domain.ErrUserExists
	}

	return domain.ResponseOK, nil
}

func (c *RegisterCommand) Name() domain.Verb {
	return domain.VerbRegister
}

func credentials(arg string, verb domain.Verb) (string, string, error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("%w: usage: %s <username> <password>", domain.ErrInvalidArgument, verb)
	}
	return fields[0], fields[1], nil
}

type CommandHandler struct {
	commands map[domain.Verb]domain.Command
}

// NewCommandHandler registers every verb answered with a single response.
// get, put and quit touch the connection itself and are handled by the
// connection manager.
func NewCommandHandler(store domain.FileStore, creds domain.CredentialStore) *CommandHandler {
	handler := &CommandHandler{
		commands: make(map[domain.Verb]domain.Command),
	}

	handler.RegisterCommand(&ListCommand{store: store})
	handler.RegisterCommand(&ChangeDirCommand{store: store})
	handler.RegisterCommand(&RestartCommand{})
	handler.RegisterCommand(&LoginCommand{store: creds})
	handler.RegisterCommand(&RegisterCommand{store: creds})

	return handler
}

func (h *CommandHandler) RegisterCommand(command domain.Command) {
	h.commands[command.Name()] = command
}

func (h *CommandHandler) HandleCommand(ctx context.Context, session *domain.Session, verb domain.Verb, arg string) (string, error) {
	command, exists := h.commands[verb]
	if !exists {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownCommand, verb)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "HandleCommand",
		"session_id": session.ID,
		"verb":       verb,
	}).Debug("Dispatching command")

	return command.Execute(ctx, session, arg)
}
