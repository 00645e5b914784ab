package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/term"

	"NSSaDS/ftp/internal/domain"
	"NSSaDS/ftp/internal/infrastructure/network"
	"NSSaDS/ftp/internal/usecase"
	"NSSaDS/ftp/pkg/config"
	"NSSaDS/ftp/pkg/logger"
)

type shell struct {
	client  *network.TCPClient
	scanner *bufio.Scanner
	// set while a download waits for the user to name a destination
	awaitingDestination atomic.Bool
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		host       = flag.String("host", "localhost", "Server host")
		port       = flag.String("port", "8888", "Server port")
		framing    = flag.String("framing", "", "Message framing: length or burst")
		logLevel   = flag.String("log-level", "", "Log level (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *configPath, *framing, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.Log, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := network.NewTCPClient(&cfg.Client)

	addr := net.JoinHostPort(*host, *port)
	greeting, err := client.Connect(ctx, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to server: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect()

	fmt.Printf("Connected to server %s\n", addr)
	fmt.Printf("Server: %s\n", greeting)
	showHelp()

	sh := &shell{client: client, scanner: bufio.NewScanner(os.Stdin)}
	go sh.printEvents()

	sh.list(ctx)

	go func() {
		<-ctx.Done()
		fmt.Println("\nDisconnecting...")
		client.Disconnect()
		os.Exit(0)
	}()

	for {
		fmt.Print("ftp> ")
		if !sh.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(sh.scanner.Text())

		if sh.awaitingDestination.CompareAndSwap(true, false) {
			if err := client.ProvideDestination(line); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			continue
		}
		if line == "" {
			continue
		}

		if !sh.dispatch(ctx, line) {
			return
		}
	}
}

// applyFlags lays command line overrides over cfg. Without a config file the
// client logs at warn so the prompt stays readable.
func applyFlags(cfg *config.Config, configPath, framing, logLevel string) {
	if configPath == "" {
		cfg.Log.Level = "warn"
	}
	if framing != "" {
		cfg.Client.Framing = framing
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

// dispatch runs one REPL line and reports whether the shell should keep going.
func (sh *shell) dispatch(ctx context.Context, line string) bool {
	verb, arg := domain.ParseCommand(line)
	client := sh.client

	switch verb {
	case "help":
		showHelp()
	case domain.VerbList:
		sh.list(ctx)
	case domain.VerbCd:
		dir, err := client.ChangeDir(ctx, arg)
		if err != nil {
			printError(err)
			return true
		}
		fmt.Printf("Directory: %s\n", dir)
		sh.list(ctx)
	case domain.VerbGet:
		remote, local, _ := strings.Cut(arg, " > ")
		printError(client.Get(ctx, strings.TrimSpace(remote), strings.TrimSpace(local)))
	case domain.VerbPut:
		printError(client.Put(ctx, arg))
	case domain.VerbRestart:
		sh.restart(ctx, arg)
	case "pause":
		printError(client.Pause())
	case "reconnect":
		greeting, err := client.Reconnect(ctx)
		if err != nil {
			printError(err)
			return true
		}
		fmt.Printf("Server: %s\n", greeting)
	case "resume":
		printError(client.Resume(ctx))
	case domain.VerbLogin, domain.VerbRegister:
		sh.authenticate(ctx, verb, arg)
	case domain.VerbQuit, "exit":
		client.Quit(ctx)
		return false
	default:
		response, err := client.SendCommand(ctx, line)
		if err != nil {
			printError(err)
			return true
		}
		fmt.Printf("Server: %s\n", response)
	}

	return true
}

func (sh *shell) list(ctx context.Context) {
	listing, err := sh.client.List(ctx)
	if err != nil {
		printError(err)
		return
	}

	fmt.Println(listing.Directory)
	for _, entry := range listing.Entries {
		switch entry.Kind {
		case domain.EntryDir:
			fmt.Printf("  [dir]  %s\n", entry.Name)
		case domain.EntryVolume:
			fmt.Printf("  [vol]  %s\n", entry.Name)
		default:
			fmt.Printf("  %10s  %s\n", usecase.FormatSize(entry.Size), entry.Name)
		}
	}
}

// restart takes a byte count or "auto" for the size already transferred.
func (sh *shell) restart(ctx context.Context, arg string) {
	var (
		offset int64
		err    error
	)
	if arg == "auto" {
		offset, err = sh.client.AutoBreakpoint(ctx)
	} else {
		offset, err = strconv.ParseInt(arg, 10, 64)
		if err != nil || offset < 0 {
			err = fmt.Errorf("%w: usage: restart <bytes>|auto", domain.ErrInvalidArgument)
		}
	}
	if err != nil {
		printError(err)
		return
	}

	acked, err := sh.client.Restart(ctx, offset)
	if err != nil {
		printError(err)
		return
	}
	fmt.Printf("Restart offset: %d\n", acked)
}

func (sh *shell) authenticate(ctx context.Context, verb domain.Verb, arg string) {
	username, password, _ := strings.Cut(arg, " ")
	if username == "" {
		fmt.Printf("Usage: %s <username> [password]\n", verb)
		return
	}
	if password == "" {
		var err error
		password, err = sh.readPassword()
		if err != nil {
			printError(err)
			return
		}
	}

	var (
		ok  bool
		err error
	)
	if verb == domain.VerbLogin {
		ok, err = sh.client.Login(ctx, username, password)
	} else {
		ok, err = sh.client.Register(ctx, username, password)
	}
	if err != nil {
		printError(err)
		return
	}

	if ok {
		fmt.Printf("%s succeeded\n", verb)
	} else {
		fmt.Printf("%s failed\n", verb)
	}
}

func (sh *shell) readPassword() (string, error) {
	fmt.Print("Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		return string(password), err
	}

	if !sh.scanner.Scan() {
		return "", errors.New("no password given")
	}
	return strings.TrimSpace(sh.scanner.Text()), nil
}

func (sh *shell) printEvents() {
	for ev := range sh.client.Events() {
		switch ev.Kind {
		case domain.EventProgress:
			fmt.Printf("\r%s %s: %3d%%", ev.Direction, ev.FileName, ev.Percent)
		case domain.EventDrainProgress:
			fmt.Printf("\rdiscarding %s: %3d%%", ev.FileName, ev.Percent)
		case domain.EventDestinationRequest:
			sh.awaitingDestination.Store(true)
			fmt.Printf("\nSave %s as (empty line cancels): ", ev.FileName)
		case domain.EventCompleted:
			fmt.Printf("\nDone %s\n", usecase.FormatStats(*ev.Stats))
		case domain.EventCancelled:
			fmt.Printf("\nCancelled %s\n", ev.FileName)
		case domain.EventFailed:
			fmt.Printf("\n%s of %s failed: %v\n", ev.Direction, ev.FileName, ev.Err)
			if ev.Stats != nil {
				fmt.Printf("Partial %s\n", usecase.FormatStats(*ev.Stats))
				fmt.Println("Use reconnect, restart auto and resume to continue")
			}
		}
	}
}

func printError(err error) {
	if err == nil {
		return
	}

	var serverErr *domain.ServerError
	if errors.As(err, &serverErr) {
		fmt.Printf("Server: %s\n", serverErr.Message)
		return
	}
	fmt.Printf("Error: %v\n", err)
}

func showHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  ls                      - List the current directory")
	fmt.Println("  cd <dir>                - Change directory (.. goes up)")
	fmt.Println("  get <file> [> <local>]  - Download a file")
	fmt.Println("  put <local path>        - Upload a file")
	fmt.Println("  restart <bytes>|auto    - Set the offset the next transfer resumes from")
	fmt.Println("  pause                   - Drop the connection under a running transfer")
	fmt.Println("  reconnect               - Connect again after a pause or failure")
	fmt.Println("  resume                  - Repeat the interrupted transfer")
	fmt.Println("  login <user> [pass]     - Log in")
	fmt.Println("  register <user> [pass]  - Create an account")
	fmt.Println("  quit                    - Close the session")
	fmt.Println("  help                    - Show this help")
}
