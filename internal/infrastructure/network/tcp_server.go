package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"NSSaDS/ftp/internal/domain"
	"NSSaDS/ftp/internal/infrastructure/repository"
	"NSSaDS/ftp/internal/usecase"
	"NSSaDS/ftp/pkg/config"
)

var (
	_ domain.Server            = (*TCPServer)(nil)
	_ domain.ConnectionManager = (*TCPConnectionManager)(nil)
)

type TCPServer struct {
	config   *config.ServerConfig
	connMgr  *TCPConnectionManager
	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

func NewTCPServer(cfg *config.ServerConfig, handler domain.CommandHandler, connMgr *TCPConnectionManager) *TCPServer {
	connMgr.SetCommandHandler(handler)
	return &TCPServer{
		config:  cfg,
		connMgr: connMgr,
	}
}

func (s *TCPServer) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return s.Serve(ctx, listener)
}

// Serve accepts on listener until ctx is cancelled or Stop is called, running
// one handler goroutine per connection.
func (s *TCPServer) Serve(ctx context.Context, listener net.Listener) error {
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConnections)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":        "Serve",
		"addr":            listener.Addr().String(),
		"root":            s.connMgr.store.Root(),
		"framing":         s.config.Framing,
		"max_connections": s.config.MaxConnections,
	}).Info("Server started")

	stopOnCancel := make(chan struct{})
	defer close(stopOnCancel)
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopOnCancel:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept error: %w", err)
		}
		if ctx.Err() != nil {
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.connMgr.HandleConnection(ctx, conn)
		}()
	}
}

// Stop closes the listener and every open client connection.
func (s *TCPServer) Stop() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}
	s.connMgr.sessions.CloseAll()
	return err
}

func (s *TCPServer) SetHandler(handler domain.CommandHandler) {
	s.connMgr.SetCommandHandler(handler)
}

type TCPConnectionManager struct {
	config   *config.ServerConfig
	store    domain.FileStore
	handler  domain.CommandHandler
	sessions *repository.SessionRegistry
}

func NewTCPConnectionManager(cfg *config.ServerConfig, store domain.FileStore, sessions *repository.SessionRegistry) *TCPConnectionManager {
	if sessions == nil {
		sessions = repository.NewSessionRegistry()
	}
	return &TCPConnectionManager{
		config:   cfg,
		store:    store,
		sessions: sessions,
	}
}

func (cm *TCPConnectionManager) SetCommandHandler(handler domain.CommandHandler) {
	cm.handler = handler
}

// HandleConnection runs one client's command loop. Commands and byte phases
// are strictly sequential; a fault in either ends this connection only.
func (cm *TCPConnectionManager) HandleConnection(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	session := domain.NewSession(conn.RemoteAddr().String(), cm.store.Root())
	if !cm.sessions.Add(session, conn) {
		return nil
	}
	defer cm.sessions.Remove(session.ID)

	activeConnections.Inc()
	defer activeConnections.Dec()

	log := logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"client":     session.ClientAddr,
	})
	log.WithField("function", "HandleConnection").Info("Client connected")

	if err := cm.SetKeepAlive(conn); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to set keepalive")
	}

	fc := NewFrameConn(conn, cm.config.Framing, cm.config.IOTimeout, cm.config.ProbeInterval)
	if err := fc.WriteMessage(cm.config.Greeting); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to send greeting")
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := fc.ReadMessage(cm.config.SessionTimeout)
		if err != nil {
			switch {
			case isTimeout(err):
				log.Info("Client timed out")
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				log.Info("Client disconnected")
			default:
				log.WithField("error", err.Error()).Warn("Read error")
			}
			return nil
		}

		verb, arg := domain.ParseCommand(line)
		if verb == "" {
			continue
		}
		commandsTotal.WithLabelValues(verbLabel(verb)).Inc()

		log.WithFields(logrus.Fields{
			"verb": verb,
			"dir":  session.CurrentDir,
		}).Debug("Command received")

		switch verb {
		case domain.VerbQuit:
			log.Info("Client quit")
			return nil
		case domain.VerbGet:
			err = cm.handleDownload(fc, session, arg)
		case domain.VerbPut:
			err = cm.handleUpload(fc, session, arg)
		default:
			response, cmdErr := cm.handler.HandleCommand(ctx, session, verb, arg)
			if cmdErr != nil {
				response = domain.ErrorResponse(cmdErr)
			}
			err = fc.WriteMessage(response)
		}

		if err != nil {
			log.WithFields(logrus.Fields{
				"verb":  verb,
				"error": err.Error(),
			}).Warn("Connection fault, closing")
			return err
		}
	}
}

func (cm *TCPConnectionManager) SetKeepAlive(conn net.Conn) error {
	return setKeepAlive(conn, cm.config.KeepAlive, cm.config.KeepAliveIdle, cm.config.KeepAliveCount, cm.config.KeepAliveIntvl)
}

// handleDownload answers "OK <size> <name>" and streams the whole file from
// byte 0 whatever the session's restart offset; resuming is the client's job.
// A returned error means the connection is no longer usable.
func (cm *TCPConnectionManager) handleDownload(fc *FrameConn, session *domain.Session, name string) error {
	if name == "" {
		return fc.WriteMessage(domain.ErrorResponse(fmt.Errorf("%w: usage: get <file>", domain.ErrInvalidArgument)))
	}

	file, info, err := cm.store.OpenRead(session.CurrentDir, name)
	if err != nil {
		return fc.WriteMessage(domain.ErrorResponse(err))
	}
	defer file.Close()

	if err := fc.WriteMessage(fmt.Sprintf("%s %d %s", domain.ResponseOK, info.Size, name)); err != nil {
		return err
	}
	fc.Settle()

	log := logrus.WithFields(logrus.Fields{
		"function":   "handleDownload",
		"session_id": session.ID,
		"file":       info.Path,
		"size":       info.Size,
	})
	log.Info("Sending file")

	start := time.Now()
	var counted int64
	sent, err := usecase.Pump(fc, file, 0, info.Size, func(n int64) {
		bytesSent.Add(float64(n - counted))
		counted = n
	})
	if err != nil {
		transfersTotal.WithLabelValues(domain.Download.String(), "failed").Inc()
		log.WithFields(logrus.Fields{"sent": sent, "error": err.Error()}).Warn("Send interrupted")
		return fmt.Errorf("download %s: %w", name, err)
	}

	transfersTotal.WithLabelValues(domain.Download.String(), "completed").Inc()
	transferDuration.WithLabelValues(domain.Download.String()).Observe(time.Since(start).Seconds())
	log.WithField("sent", sent).Info("File sent")

	return nil
}

// handleUpload accepts a file into the session directory. With a zero
// restart offset the file must not exist yet; with a non-zero offset the
// existing partial file is cut back to the offset and appended to.
func (cm *TCPConnectionManager) handleUpload(fc *FrameConn, session *domain.Session, clientPath string) error {
	name := usecase.BaseName(clientPath)
	if name == "" || name == "." || name == ".." {
		return fc.WriteMessage(domain.ErrorResponse(fmt.Errorf("%w: usage: put <file>", domain.ErrInvalidArgument)))
	}

	offset := session.RestartOffset
	var (
		file *os.File
		err  error
	)
	if offset > 0 {
		file, err = cm.store.OpenResume(session.CurrentDir, name, offset)
	} else {
		file, err = cm.store.CreateExclusive(session.CurrentDir, name)
	}
	if err != nil {
		return fc.WriteMessage(domain.ErrorResponse(err))
	}
	defer file.Close()

	if err := fc.WriteMessage(domain.ResponseOK + " " + clientPath); err != nil {
		return err
	}

	log := logrus.WithFields(logrus.Fields{
		"function":   "handleUpload",
		"session_id": session.ID,
		"file":       file.Name(),
		"offset":     offset,
	})

	sizeLine, err := fc.ReadMessage(cm.config.IOTimeout)
	if err != nil {
		return fmt.Errorf("upload %s: reading size: %w", name, err)
	}

	size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 10, 64)
	if err != nil || size < 0 {
		if offset == 0 {
			os.Remove(file.Name())
		}
		return fmt.Errorf("upload %s: invalid size %q", name, sizeLine)
	}

	log.WithField("size", size).Info("Receiving file")

	start := time.Now()
	var counted int64
	received, err := usecase.Pump(file, fc, 0, size, func(n int64) {
		bytesReceived.Add(float64(n - counted))
		counted = n
	})
	if err != nil {
		transfersTotal.WithLabelValues(domain.Upload.String(), "failed").Inc()
		log.WithFields(logrus.Fields{"received": received, "error": err.Error()}).Warn("Receive interrupted, partial file kept")
		return fmt.Errorf("upload %s: %w", name, err)
	}

	transfersTotal.WithLabelValues(domain.Upload.String(), "completed").Inc()
	transferDuration.WithLabelValues(domain.Upload.String()).Observe(time.Since(start).Seconds())
	log.WithField("received", received).Info("File received")

	return nil
}

func verbLabel(verb domain.Verb) string {
	switch verb {
	case domain.VerbList, domain.VerbCd, domain.VerbGet, domain.VerbPut,
		domain.VerbRestart, domain.VerbLogin, domain.VerbRegister, domain.VerbQuit:
		return string(verb)
	default:
		return "unknown"
	}
}
