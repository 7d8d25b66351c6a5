package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/remotectl/unlockd/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	setupLogging()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "store":
		runStore(ctx, os.Args[2:])
	case "clear":
		runClear(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "unlock":
		runUnlock(ctx, os.Args[2:])
	case "serve":
		runServe(ctx, os.Args[2:])
	case "history":
		runHistory(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if os.Getenv("UNLOCKD_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runStore(_ context.Context, args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	username := fs.String("user", "", "Account username (DOMAIN\\user and user@domain forms accepted)")
	password := fs.String("password", "", "Account password (prefer the interactive prompt or UNLOCKD_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Store(*username, *password)
}

func runClear(_ context.Context, args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Clear()
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Status(ctx)
}

func runUnlock(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unlock", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Unlock(ctx)
}

func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Serve(ctx)
}

func runHistory(_ context.Context, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 20, "Number of attempts to show")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.History(*n)
}

func printUsage() {
	fmt.Println("unlockd - remote session unlock agent")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  unlockd <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  store       Store unlock credentials in the split-key vault")
	fmt.Println("  clear       Remove all stored credential artifacts")
	fmt.Println("  status      Show credential, session lock and last-attempt state")
	fmt.Println("  unlock      Run a single unlock attempt")
	fmt.Println("  serve       Run the agent: IPC server plus background consumer")
	fmt.Println("  history     Show recent unlock attempts")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  unlockd store -user 'CORP\\alice'   # Prompt for the password")
	fmt.Println("  unlockd status                     # Check stored state")
	fmt.Println("  unlockd serve                      # Run until interrupted")
	fmt.Println()
	fmt.Println("Use 'unlockd help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "store":
		fmt.Println("unlockd store [-user <name>] [-password <password>]")
		fmt.Println()
		fmt.Println("Stores the account credentials used for remote unlock.")
		fmt.Println("The password is encrypted under a split key: one half lives in")
		fmt.Println("the OS secure storage, the other in an owner-only local file.")
		fmt.Println("Neither half alone can recover the password.")
		fmt.Println()
		fmt.Println("Without -user the username is prompted for. Without -password")
		fmt.Println("the password comes from UNLOCKD_PASSWORD or an interactive,")
		fmt.Println("non-echoing prompt with confirmation.")
		fmt.Println()
		fmt.Println("Username forms:")
		fmt.Println("  alice              # local account, domain inferred from hostname")
		fmt.Println("  CORP\\alice         # down-level logon name")
		fmt.Println("  alice@corp.example # user principal name")
	case "clear":
		fmt.Println("unlockd clear")
		fmt.Println()
		fmt.Println("Removes both key halves and the encrypted credential blob.")
		fmt.Println("Safe to run when nothing is stored.")
	case "status":
		fmt.Println("unlockd status")
		fmt.Println()
		fmt.Println("Shows whether credentials are stored, whether the session is")
		fmt.Println("currently locked, and the last recorded unlock attempt.")
		fmt.Println("Requires no password and decrypts nothing.")
	case "unlock":
		fmt.Println("unlockd unlock")
		fmt.Println()
		fmt.Println("Runs one unlock attempt: fetches the stored credentials and")
		fmt.Println("tries each strategy in order (native session tooling, the")
		fmt.Println("credential provider, display-server injection), confirming")
		fmt.Println("success through the lock-state probe.")
	case "serve":
		fmt.Println("unlockd serve")
		fmt.Println()
		fmt.Println("Runs the long-lived agent. Exposes the loopback IPC endpoints")
		fmt.Println("for the credential provider on 127.0.0.1:3459 and polls for")
		fmt.Println("pending unlock requests in the background. Stops on SIGINT or")
		fmt.Println("SIGTERM with a bounded shutdown.")
	case "history":
		fmt.Println("unlockd history [-n <count>]")
		fmt.Println()
		fmt.Println("Prints recent unlock attempts, newest first. Entries carry the")
		fmt.Println("outcome, the strategy and a short classified reason; credential")
		fmt.Println("material is never logged.")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
