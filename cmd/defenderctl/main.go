// Package main provides defenderctl, a command-line control surface for
// the open-website-defender admin API. It drives the same session and
// request pipeline the console apps use: login (with optional second
// factor), logout, session status and deployment-mode probing.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/flmelody/defender-console-go/pkg/auth"
	"github.com/flmelody/defender-console-go/pkg/client"
	"github.com/flmelody/defender-console-go/pkg/config"
	"github.com/flmelody/defender-console-go/pkg/interfaces"
	"github.com/flmelody/defender-console-go/pkg/logger"
	"github.com/flmelody/defender-console-go/pkg/session"
	"github.com/flmelody/defender-console-go/pkg/system"
	"github.com/flmelody/defender-console-go/pkg/types"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	appKind      = flag.String("app", "admin", "App kind to act as (admin or guard)")
	overrideFile = flag.String("config", "", "Path to a runtime config override file (JSON or YAML)")
	logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	stateFile    = flag.String("state", "", "Path to the session state file (default: ~/.defender/<app>-session.json)")
	timeout      = flag.Duration("timeout", 0, "Request timeout (default 5s)")
	showVersion  = flag.Bool("version", false, "Show version information")
	waitFlag     = flag.Bool("wait", false, "ping: keep retrying until the backend is reachable")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: defenderctl [flags] <command>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  login   Authenticate against the admin API\n")
	fmt.Fprintf(os.Stderr, "  2fa     Complete a pending second-factor challenge\n")
	fmt.Fprintf(os.Stderr, "  logout  Clear the local session\n")
	fmt.Fprintf(os.Stderr, "  status  Show session and deployment mode\n")
	fmt.Fprintf(os.Stderr, "  ping    Probe the backend settings endpoint\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

// stderrNotifier is the CLI's notification surface: every pipeline-level
// failure prints once, uniformly, regardless of which endpoint failed.
type stderrNotifier struct{}

func (stderrNotifier) NotifyError(message string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", message)
}

// cliNavigator stands in for the browser navigation the pipeline forces
// after an authorization failure.
type cliNavigator struct {
	log interfaces.Logger
}

func (n cliNavigator) NavigateTo(path string) {
	n.log.Warn("session invalidated, re-authentication required", map[string]interface{}{
		"login": path,
	})
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("defenderctl %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		usage()
		os.Exit(2)
	}

	app := types.AppKind(*appKind)
	if !app.Valid() {
		fmt.Fprintf(os.Stderr, "unknown app kind %q\n", *appKind)
		os.Exit(2)
	}

	log := logger.NewConsoleLogger(*logLevel)

	resolver := config.NewResolver(*overrideFile, log)
	cfg := resolver.Resolve()
	stopWatch, err := resolver.Watch()
	if err != nil {
		log.Warn("config override watch unavailable", map[string]interface{}{"error": err.Error()})
		stopWatch = func() {}
	}
	defer stopWatch()

	statePath := *stateFile
	if statePath == "" {
		statePath = session.DefaultStatePath(string(app))
	}
	store := session.NewStore(session.NewFileStorage(statePath), log)
	store.Hydrate()

	pipeline := client.New(client.Options{
		App:       app,
		Config:    cfg,
		Session:   store,
		Logger:    log,
		Notifier:  stderrNotifier{},
		Navigator: cliNavigator{log: log},
		Timeout:   *timeout,
	})

	flow := auth.NewController(pipeline, store, log)
	modes := system.NewStore(pipeline, log)

	ctx := context.Background()

	var runErr error
	switch command {
	case "login":
		runErr = runLogin(ctx, flow)
	case "2fa":
		runErr = runTwoFactor(ctx, flow)
	case "logout":
		flow.Logout()
		fmt.Println("Logged out.")
	case "status":
		runStatus(ctx, flow, store, modes, cfg, app)
	case "ping":
		runErr = runPing(ctx, modes)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func runLogin(ctx context.Context, flow *auth.Controller) error {
	username, password, err := promptCredentials()
	if err != nil {
		return err
	}

	requiresSecondFactor, err := flow.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if requiresSecondFactor {
		fmt.Println("Second factor required. Run 'defenderctl 2fa' with your one-time code.")
		return nil
	}
	fmt.Println("Login successful.")
	return nil
}

func runTwoFactor(ctx context.Context, flow *auth.Controller) error {
	fmt.Print("One-time code: ")
	code, err := readLine()
	if err != nil {
		return err
	}
	if err := flow.VerifySecondFactor(ctx, code); err != nil {
		return err
	}
	fmt.Println("Second factor verified, login complete.")
	return nil
}

func runStatus(ctx context.Context, flow *auth.Controller, store *session.Store, modes *system.Store, cfg *config.AppConfig, app types.AppKind) {
	fmt.Printf("App:        %s\n", app)
	fmt.Printf("Backend:    %s\n", cfg.BaseURL)
	fmt.Printf("Mount path: %s\n", cfg.PagePath(app))
	fmt.Printf("State:      %s\n", flow.State())
	if user := store.User(); user != nil {
		fmt.Printf("User:       %s (id %d)\n", user.Username, user.ID)
	}
	if exp, ok := store.ExpiresAt(); ok {
		fmt.Printf("Expires:    %s\n", exp.Format(time.RFC3339))
	}
	if store.IsAuthenticated() {
		fmt.Printf("Mode:       %s\n", modes.Mode(ctx))
	}
}

// runPing probes the settings endpoint. With -wait the probe retries with
// backoff until the backend answers; retries live here, above the
// pipeline, which never retries on its own.
func runPing(ctx context.Context, modes *system.Store) error {
	probe := func() error {
		if !modes.Fetched() {
			modes.Mode(ctx)
		}
		if !modes.Fetched() {
			return fmt.Errorf("backend not reachable")
		}
		return nil
	}

	var err error
	if *waitFlag {
		err = retry.Do(probe,
			retry.Attempts(10),
			retry.Delay(time.Second),
			retry.MaxDelay(10*time.Second),
		)
	} else {
		err = probe()
	}
	if err != nil {
		fmt.Println("Backend unreachable, mode defaults to auth_request.")
		return err
	}
	fmt.Printf("Backend reachable, mode: %s\n", modes.Mode(ctx))
	return nil
}

func promptCredentials() (string, string, error) {
	fmt.Print("Username: ")
	username, err := readLine()
	if err != nil {
		return "", "", err
	}
	fmt.Print("Password: ")
	password, err := readLine()
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

var stdin = bufio.NewReader(os.Stdin)

func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
