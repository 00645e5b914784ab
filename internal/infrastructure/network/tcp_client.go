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
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"NSSaDS/ftp/internal/domain"
	"NSSaDS/ftp/internal/usecase"
	"NSSaDS/ftp/pkg/config"
)

// TCPClient talks to one server at a time. A single slot serialises every
// exchange on the connection: a command holds it for one round trip, a get or
// put hands it to a background worker that keeps it until the byte phase and
// the trailing "restart 0" are done. While the worker runs, other calls fail
// with domain.ErrTransferInProgress instead of waiting.
//
// The worker reports through Events. Progress events are dropped when the
// channel is full; terminal events (completed, cancelled, failed) are not,
// so callers must keep draining Events while transfers run.
var _ domain.Client = (*TCPClient)(nil)

type TCPClient struct {
	config *config.ClientConfig

	mu     sync.RWMutex
	conn   *FrameConn
	addr   string
	ctx    context.Context
	cancel context.CancelFunc

	stopped atomic.Bool
	slot    chan struct{}
	wg      sync.WaitGroup

	stateMu sync.Mutex
	state   domain.TransferState
	listing *domain.Listing

	monitor     *usecase.PerformanceMonitor
	events      chan domain.TransferEvent
	destination chan string
}

func NewTCPClient(cfg *config.ClientConfig) *TCPClient {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &TCPClient{
		config:      cfg,
		slot:        make(chan struct{}, 1),
		monitor:     usecase.NewPerformanceMonitor(),
		events:      make(chan domain.TransferEvent, buffer),
		destination: make(chan string, 1),
	}
}

// Connect dials addr and returns the server greeting. Any previous
// connection is closed; the transfer state survives so it can be resumed,
// but the restart offset starts over at zero like the new server session.
func (c *TCPClient) Connect(ctx context.Context, addr string) (string, error) {
	if err := c.acquire(); err != nil {
		return "", err
	}
	defer c.release()

	dialer := net.Dialer{Timeout: c.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"function": "Connect",
		"addr":     addr,
	})

	if err := setKeepAlive(conn, c.config.KeepAlive, c.config.KeepAliveIdle, c.config.KeepAliveCount, c.config.KeepAliveIntvl); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to set keepalive")
	}

	fc := NewFrameConn(conn, c.config.Framing, c.config.Timeout, c.config.ProbeInterval)
	greeting, err := fc.ReadMessage(c.config.Timeout)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("failed to read greeting: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.conn = fc
	c.addr = addr
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()
	c.stopped.Store(false)

	c.stateMu.Lock()
	c.state.RestartOffset = 0
	c.stateMu.Unlock()

	log.Info("Connected to server")
	return greeting, nil
}

// Reconnect waits for any worker to finish, dials the last address again and
// returns to the directory of the last listing before refreshing it.
func (c *TCPClient) Reconnect(ctx context.Context) (string, error) {
	c.wg.Wait()

	c.mu.RLock()
	addr := c.addr
	c.mu.RUnlock()
	if addr == "" {
		return "", domain.ErrNotConnected
	}

	greeting, err := c.Connect(ctx, addr)
	if err != nil {
		return "", err
	}

	if last := c.LastListing(); last != nil && last.Directory != "" && last.Directory != domain.VolumeRoot {
		if _, err := c.ChangeDir(ctx, last.Directory); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Reconnect",
				"dir":      last.Directory,
				"error":    err.Error(),
			}).Warn("Failed to restore directory")
		}
	}

	if _, err := c.List(ctx); err != nil {
		return greeting, err
	}
	return greeting, nil
}

func (c *TCPClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Pause drops the connection under a running transfer. The worker reports
// the interruption as a failure and the state stays resumable.
func (c *TCPClient) Pause() error {
	if st := c.State(); !st.Pending() {
		return domain.ErrNoPendingTransfer
	}

	c.mu.RLock()
	fc, cancel := c.conn, c.cancel
	c.mu.RUnlock()
	if fc == nil {
		return domain.ErrNotConnected
	}

	c.stopped.Store(true)
	if cancel != nil {
		cancel()
	}
	return fc.Close()
}

// Quit tells the server to end the session and closes the connection.
func (c *TCPClient) Quit(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}

	fc, _, err := c.connection()
	if err == nil {
		err = fc.WriteMessage(string(domain.VerbQuit))
	}
	c.release()

	if errors.Is(err, domain.ErrNotConnected) {
		return err
	}
	c.Disconnect()
	return err
}

func (c *TCPClient) Stopped() bool {
	return c.stopped.Load()
}

func (c *TCPClient) Events() <-chan domain.TransferEvent {
	return c.events
}

// Wait blocks until the current transfer worker, if any, has finished.
func (c *TCPClient) Wait() {
	c.wg.Wait()
}

// State returns a copy of the current transfer bookkeeping.
func (c *TCPClient) State() domain.TransferState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *TCPClient) LastListing() *domain.Listing {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.listing
}

// SendCommand sends one raw command line and returns the response. get and
// put need a byte phase and must go through Get and Put.
func (c *TCPClient) SendCommand(ctx context.Context, line string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	verb, arg := domain.ParseCommand(line)
	switch verb {
	case "":
		return "", fmt.Errorf("%w: empty command", domain.ErrInvalidArgument)
	case domain.VerbGet, domain.VerbPut:
		return "", fmt.Errorf("%w: %s needs a transfer, not a raw command", domain.ErrInvalidArgument, verb)
	case domain.VerbQuit:
		return "", c.Quit(ctx)
	case domain.VerbRestart:
		if n, err := strconv.ParseInt(arg, 10, 64); err == nil && n >= 0 {
			offset, err := c.Restart(ctx, n)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(offset, 10), nil
		}
	}

	if err := c.acquire(); err != nil {
		return "", err
	}
	defer c.release()

	return c.roundTrip(line)
}

func (c *TCPClient) List(ctx context.Context) (*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	response, err := c.roundTrip(string(domain.VerbList))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(response, domain.ErrorPrefix) {
		return nil, &domain.ServerError{Verb: domain.VerbList, Message: response}
	}

	listing, err := domain.ParseListing(response)
	if err != nil {
		return nil, err
	}

	c.stateMu.Lock()
	c.listing = listing
	c.stateMu.Unlock()

	return listing, nil
}

// ChangeDir returns the directory the server moved to.
func (c *TCPClient) ChangeDir(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := c.acquire(); err != nil {
		return "", err
	}
	defer c.release()

	response, err := c.roundTrip(domain.FormatCommand(domain.VerbCd, dir))
	if err != nil {
		return "", err
	}
	if !domain.IsOK(response) {
		return "", &domain.ServerError{Verb: domain.VerbCd, Message: response}
	}
	return domain.OKPayload(response), nil
}

// Restart sets the offset the next get or put starts from and returns the
// value the server acknowledged.
func (c *TCPClient) Restart(ctx context.Context, offset int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.release()

	return c.restart(offset)
}

func (c *TCPClient) restart(offset int64) (int64, error) {
	response, err := c.roundTrip(domain.FormatCommand(domain.VerbRestart, strconv.FormatInt(offset, 10)))
	if err != nil {
		return 0, err
	}

	acked, err := strconv.ParseInt(strings.TrimSpace(response), 10, 64)
	if err != nil {
		return 0, &domain.ServerError{Verb: domain.VerbRestart, Message: response}
	}

	c.stateMu.Lock()
	c.state.RestartOffset = acked
	c.stateMu.Unlock()

	return acked, nil
}

func (c *TCPClient) Login(ctx context.Context, username, password string) (bool, error) {
	return c.authenticate(ctx, domain.VerbLogin, username, password)
}

func (c *TCPClient) Register(ctx context.Context, username, password string) (bool, error) {
	return c.authenticate(ctx, domain.VerbRegister, username, password)
}

func (c *TCPClient) authenticate(ctx context.Context, verb domain.Verb, username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if username == "" || password == "" || strings.ContainsAny(username+password, " \t\r\n") {
		return false, fmt.Errorf("%w: username and password must be single words", domain.ErrInvalidArgument)
	}
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.release()

	response, err := c.roundTrip(domain.FormatCommand(verb, username+" "+password))
	if err != nil {
		return false, err
	}
	return domain.IsOK(response), nil
}

// Get starts downloading remoteName. An empty localPath asks for a
// destination through an EventDestinationRequest; answer it with
// ProvideDestination, where an empty answer cancels by draining the stream.
// It returns once the server accepted the request; the rest is reported
// through Events.
func (c *TCPClient) Get(ctx context.Context, remoteName, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if remoteName == "" {
		return fmt.Errorf("%w: usage: get <file>", domain.ErrInvalidArgument)
	}
	if err := c.acquire(); err != nil {
		return err
	}

	response, err := c.roundTrip(domain.FormatCommand(domain.VerbGet, remoteName))
	if err != nil {
		c.release()
		return err
	}
	if !domain.IsOK(response) {
		c.release()
		return &domain.ServerError{Verb: domain.VerbGet, Message: response}
	}

	fc, ctxConn, err := c.connection()
	if err != nil {
		c.release()
		return err
	}

	size, name, err := parseGetResponse(response)
	if err != nil {
		// the server is already streaming bytes we cannot count
		c.markStopped(fc)
		c.release()
		return err
	}

	select {
	case <-c.destination:
	default:
	}

	c.stateMu.Lock()
	if localPath == "" && c.state.Pending() && c.state.Direction == domain.Download && c.state.Filename == name {
		localPath = c.state.LocalPath
	}
	c.state.Begin(domain.Download, name, localPath, size)
	offset := c.state.RestartOffset
	c.stateMu.Unlock()

	c.spawn(func() domain.TransferEvent {
		return c.receive(ctxConn, fc, name, localPath, size, offset)
	})
	return nil
}

// Put starts uploading localPath. With a non-zero restart offset only the
// bytes past the offset are sent.
func (c *TCPClient) Put(ctx context.Context, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if localPath == "" {
		return fmt.Errorf("%w: usage: put <file>", domain.ErrInvalidArgument)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return fmt.Errorf("%w: %s is not a regular file", domain.ErrInvalidArgument, localPath)
	}

	if err := c.acquire(); err != nil {
		file.Close()
		return err
	}

	abort := func(err error) error {
		file.Close()
		c.release()
		return err
	}

	c.stateMu.Lock()
	offset := c.state.RestartOffset
	c.stateMu.Unlock()
	if offset > info.Size() {
		return abort(fmt.Errorf("%w: restart offset %d is beyond file size %d", domain.ErrInvalidArgument, offset, info.Size()))
	}

	response, err := c.roundTrip(domain.FormatCommand(domain.VerbPut, localPath))
	if err != nil {
		return abort(err)
	}
	if !domain.IsOK(response) {
		return abort(&domain.ServerError{Verb: domain.VerbPut, Message: response})
	}

	fc, _, err := c.connection()
	if err != nil {
		return abort(err)
	}

	name := usecase.BaseName(localPath)
	c.stateMu.Lock()
	c.state.Begin(domain.Upload, name, localPath, info.Size())
	c.stateMu.Unlock()

	c.spawn(func() domain.TransferEvent {
		defer file.Close()
		return c.send(fc, file, name, info.Size(), offset)
	})
	return nil
}

// ProvideDestination answers a pending EventDestinationRequest.
func (c *TCPClient) ProvideDestination(path string) error {
	select {
	case c.destination <- path:
		return nil
	default:
		return fmt.Errorf("a destination is already waiting to be consumed")
	}
}

// Resume repeats the interrupted transfer on the current connection. The
// restart offset must already be set; see AutoBreakpoint.
func (c *TCPClient) Resume(ctx context.Context) error {
	state := c.State()
	if !state.Pending() {
		return domain.ErrNoPendingTransfer
	}

	if state.Direction == domain.Download {
		return c.Get(ctx, state.Filename, state.LocalPath)
	}
	return c.Put(ctx, state.LocalPath)
}

// AutoBreakpoint works out how much of the interrupted transfer already
// arrived: the local file size for a download, or the size the server lists
// for an upload.
func (c *TCPClient) AutoBreakpoint(ctx context.Context) (int64, error) {
	state := c.State()
	if !state.Pending() {
		return 0, domain.ErrNoPendingTransfer
	}

	if state.Direction == domain.Download {
		info, err := os.Stat(state.LocalPath)
		if err != nil {
			return 0, fmt.Errorf("failed to stat %s: %w", state.LocalPath, err)
		}
		return info.Size(), nil
	}

	listing, err := c.List(ctx)
	if err != nil {
		return 0, err
	}
	entry, ok := listing.Find(state.Filename)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not in %s", domain.ErrFileNotFound, state.Filename, listing.Directory)
	}
	return entry.Size, nil
}

func (c *TCPClient) receive(ctx context.Context, fc *FrameConn, name, localPath string, size, offset int64) domain.TransferEvent {
	if localPath == "" {
		c.events <- domain.TransferEvent{Kind: domain.EventDestinationRequest, Direction: domain.Download, FileName: name}

		select {
		case localPath = <-c.destination:
		case <-ctx.Done():
			// nothing moved yet, so there are no stats to report
			c.interrupt(fc)
			return domain.TransferEvent{Kind: domain.EventFailed, Direction: domain.Download, FileName: name, Err: domain.ErrConnectionStopped}
		}
		if localPath == "" {
			return c.discard(fc, name, size, nil)
		}
	}

	if offset > size {
		return c.discard(fc, name, size, fmt.Errorf("%w: restart offset %d is beyond file size %d", domain.ErrInvalidArgument, offset, size))
	}

	file, err := openDestination(localPath, offset)
	if err != nil {
		return c.discard(fc, name, size, err)
	}
	defer file.Close()

	c.stateMu.Lock()
	c.state.LocalPath = localPath
	c.stateMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "receive",
		"file":     name,
		"local":    localPath,
		"size":     size,
		"offset":   offset,
	}).Debug("Receiving file")

	c.monitor.StartTransfer(name, domain.Download, size, offset)

	if err := usecase.Skip(fc, offset); err != nil {
		return c.fail(fc, domain.Download, name, err)
	}
	if _, err := usecase.Pump(file, fc, offset, size, c.track(domain.Download, name, size)); err != nil {
		return c.fail(fc, domain.Download, name, err)
	}

	return c.complete(domain.Download, name)
}

func (c *TCPClient) send(fc *FrameConn, file *os.File, name string, size, offset int64) domain.TransferEvent {
	logrus.WithFields(logrus.Fields{
		"function": "send",
		"file":     name,
		"size":     size,
		"offset":   offset,
	}).Debug("Sending file")

	c.monitor.StartTransfer(name, domain.Upload, size, offset)

	if err := fc.WriteMessage(strconv.FormatInt(size-offset, 10)); err != nil {
		return c.fail(fc, domain.Upload, name, err)
	}
	fc.Settle()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return c.fail(fc, domain.Upload, name, fmt.Errorf("failed to seek to offset: %w", err))
	}
	if _, err := usecase.Pump(fc, file, offset, size, c.track(domain.Upload, name, size)); err != nil {
		return c.fail(fc, domain.Upload, name, err)
	}

	return c.complete(domain.Upload, name)
}

// discard reads and drops an accepted download so the stream stays aligned.
// A nil cause means the user cancelled.
func (c *TCPClient) discard(fc *FrameConn, name string, size int64, cause error) domain.TransferEvent {
	c.stateMu.Lock()
	c.state.Reset()
	c.stateMu.Unlock()

	last := -1
	_, err := usecase.Drain(fc, size, func(n int64) {
		c.report(domain.EventDrainProgress, domain.Download, name, domain.Percent(n, size), &last)
	})
	if err != nil {
		c.markStopped(fc)
		return domain.TransferEvent{Kind: domain.EventFailed, Direction: domain.Download, FileName: name, Err: err}
	}

	c.syncRestart()

	if cause != nil {
		return domain.TransferEvent{Kind: domain.EventFailed, Direction: domain.Download, FileName: name, Err: cause}
	}
	return domain.TransferEvent{Kind: domain.EventCancelled, Direction: domain.Download, FileName: name}
}

// fail stops the connection and keeps the state for a later resume.
func (c *TCPClient) fail(fc *FrameConn, direction domain.TransferDirection, name string, err error) domain.TransferEvent {
	c.interrupt(fc)
	stats := c.monitor.Stats()

	logrus.WithFields(logrus.Fields{
		"function":  "fail",
		"file":      name,
		"direction": direction.String(),
		"moved":     stats.Bytes,
		"error":     err.Error(),
	}).Warn("Transfer interrupted")

	return domain.TransferEvent{Kind: domain.EventFailed, Direction: direction, FileName: name, Stats: &stats, Err: err}
}

// interrupt stops the connection and consumes the restart offset: the
// attempt used it, and a resume sets it again after AutoBreakpoint.
func (c *TCPClient) interrupt(fc *FrameConn) {
	c.markStopped(fc)

	c.stateMu.Lock()
	c.state.RestartOffset = 0
	c.stateMu.Unlock()
}

func (c *TCPClient) complete(direction domain.TransferDirection, name string) domain.TransferEvent {
	stats := c.monitor.Stats()

	c.stateMu.Lock()
	c.state.Reset()
	c.stateMu.Unlock()

	c.syncRestart()

	logrus.WithFields(logrus.Fields{
		"function":  "complete",
		"file":      name,
		"direction": direction.String(),
		"bytes":     stats.Bytes,
		"kbps":      stats.KBPerSecond(),
	}).Info("Transfer complete")

	return domain.TransferEvent{Kind: domain.EventCompleted, Direction: direction, FileName: name, Percent: 100, Stats: &stats}
}

// syncRestart puts the server offset back to zero after a transfer.
func (c *TCPClient) syncRestart() {
	if _, err := c.restart(0); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "syncRestart",
			"error":    err.Error(),
		}).Warn("Failed to reset restart offset")
	}
}

func (c *TCPClient) track(direction domain.TransferDirection, name string, total int64) usecase.ProgressFunc {
	last := -1
	return func(n int64) {
		c.stateMu.Lock()
		c.state.Transferred = n
		c.stateMu.Unlock()

		c.monitor.UpdateProgress(n)
		c.report(domain.EventProgress, direction, name, domain.Percent(n, total), &last)
	}
}

// report emits a progress event when the percentage changed, dropping it if
// nobody is keeping up.
func (c *TCPClient) report(kind domain.EventKind, direction domain.TransferDirection, name string, percent int, last *int) {
	if percent == *last {
		return
	}
	*last = percent

	select {
	case c.events <- domain.TransferEvent{Kind: kind, Direction: direction, FileName: name, Percent: percent}:
	default:
	}
}

// spawn hands the held slot to a worker. The slot is released before the
// terminal event goes out, so a caller reacting to it can issue commands.
func (c *TCPClient) spawn(work func() domain.TransferEvent) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		event := work()
		c.release()
		c.events <- event
	}()
}

func (c *TCPClient) acquire() error {
	select {
	case c.slot <- struct{}{}:
		return nil
	default:
		return domain.ErrTransferInProgress
	}
}

func (c *TCPClient) release() {
	<-c.slot
}

func (c *TCPClient) connection() (*FrameConn, context.Context, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return nil, nil, domain.ErrNotConnected
	}
	if c.stopped.Load() {
		return nil, nil, domain.ErrConnectionStopped
	}
	return c.conn, c.ctx, nil
}

// roundTrip must be called with the slot held. An I/O failure leaves the
// stream in an unknown position, so the connection is stopped.
func (c *TCPClient) roundTrip(line string) (string, error) {
	fc, _, err := c.connection()
	if err != nil {
		return "", err
	}

	if err := fc.WriteMessage(line); err != nil {
		c.markStopped(fc)
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	response, err := fc.ReadMessage(c.config.Timeout)
	if err != nil {
		c.markStopped(fc)
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return response, nil
}

func (c *TCPClient) markStopped(fc *FrameConn) {
	c.stopped.Store(true)
	fc.Close()
}

func parseGetResponse(response string) (int64, string, error) {
	parts := strings.SplitN(domain.OKPayload(response), " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid get response: %q", response)
	}

	size, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || size < 0 {
		return 0, "", fmt.Errorf("invalid file size in get response: %q", response)
	}

	return size, parts[1], nil
}

// openDestination opens a download target. For a resumed download the file
// must already hold at least offset bytes; anything past offset is cut off.
func openDestination(path string, offset int64) (*os.File, error) {
	if offset == 0 {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		return file, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() < offset {
		return nil, fmt.Errorf("%w: %s holds %d bytes, fewer than restart offset %d", domain.ErrInvalidArgument, path, info.Size(), offset)
	}

	file, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := file.Truncate(offset); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to truncate %s: %w", path, err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek %s: %w", path, err)
	}
	return file, nil
}
