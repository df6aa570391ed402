// ABOUTME: Entry point for the agencycrm MCP server and CLI
// ABOUTME: Routes to MCP server, client, viz or backup commands based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/agencycrm/charm"
	"github.com/harperreed/agencycrm/cli"
	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/config"
)

const version = "0.1.0"

type clientCommand func(ctx context.Context, svc *clients.Service, args []string) error

var clientCommands = map[string]clientCommand{
	"add":         cli.AddClientCommand,
	"list":        cli.ListClientsCommand,
	"get":         cli.GetClientCommand,
	"update":      cli.UpdateClientCommand,
	"delete":      cli.DeleteClientCommand,
	"analyze":     cli.AnalyzeClientCommand,
	"stats":       cli.StatsCommand,
	"bulk-status": cli.BulkStatusCommand,
	"insights":    cli.InsightsCommand,
}

var vizCommands = map[string]clientCommand{
	"dashboard": cli.VizDashboardCommand,
	"graph":     cli.VizGraphCommand,
}

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	storeDriver := flag.String("store-driver", "", "Store driver: sqlite or badger")
	storePath := flag.String("store-path", "", "Store path (default: ~/.local/share/agencycrm/...)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("agencycrm version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "version":
		fmt.Printf("agencycrm version %s\n", version)
		return
	case "help":
		printUsage()
		return
	case "mcp", "clients", "viz", "backup":
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	// backup auto only touches the charm config.
	if command == "backup" && len(commandArgs) > 0 && commandArgs[0] == "auto" {
		if err := charm.SetAutoSyncCommand(commandArgs[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *storeDriver != "" {
		cfg.Store.Driver = *storeDriver
		if *storePath == "" {
			cfg.Store.Path = config.DefaultStorePath(*storeDriver)
		}
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	app, err := cli.OpenApp(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app, command, commandArgs); err != nil {
		_ = app.Close()
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, app *cli.App, command string, args []string) error {
	switch command {
	case "mcp":
		return cli.MCPCommand(ctx, app, version, args)

	case "clients":
		return dispatch(ctx, app, "clients", clientCommands, args)

	case "viz":
		return dispatch(ctx, app, "viz", vizCommands, args)

	case "backup":
		if len(args) == 0 {
			return fmt.Errorf("backup requires a subcommand (push, pull, status, auto)")
		}
		collection := app.Service.Collection()
		switch args[0] {
		case "push":
			return charm.BackupPushCommand(ctx, app.Store, collection, args[1:])
		case "pull":
			return charm.BackupPullCommand(ctx, app.Store, collection, args[1:])
		case "status":
			return charm.BackupStatusCommand(collection, args[1:])
		default:
			return fmt.Errorf("unknown backup command: %s", args[0])
		}
	}
	return nil
}

func dispatch(ctx context.Context, app *cli.App, group string, commands map[string]clientCommand, args []string) error {
	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("%s requires a subcommand", group)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown %s command: %s", group, args[0])
	}
	return cmd(ctx, app.Service, args[1:])
}

func printUsage() {
	fmt.Printf(`agencycrm v%s - Agency client management

USAGE:
  agencycrm [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --store-driver <name>  Store driver: sqlite (default) or badger
  --store-path <path>    Store path (default: ~/.local/share/agencycrm/)

COMMANDS:
  mcp                    Start MCP server for agent integration
  clients                Client management commands
  viz                    Visualization commands
  backup                 Charm KV backup commands
  version                Show version
  help                   Show this help

MCP SERVER:
  agencycrm mcp
    --metrics-addr <addr>     Serve Prometheus metrics (e.g. :9090)

CLIENT COMMANDS:
  agencycrm clients add       Add a new client (analyzed before it is stored)
    --name <name>             Client name (required)
    --email <email>           Email address (required)
    --service <type>          wordpress, shopify, mern, java, python, react, nextjs, nodejs, mobile, ecommerce
    --tier <tier>             basic, standard, premium, enterprise
    --retainer <amount>       Monthly retainer
    --payment <status>        paid, pending, overdue, cancelled
    --start/--end <date>      Contract dates (YYYY-MM-DD)

  agencycrm clients list      List clients
    --search <prefix>         Name prefix (case sensitive)
    --status/--service/--tier/--payment <value>  Filters ("all" disables)
    --page <n> --limit <n>    Paging (default: 1, 10)
    --json                    Print JSON

  agencycrm clients get <id>
  agencycrm clients update [flags] <id>
    Note: flags must come before the client ID
  agencycrm clients delete <id>
  agencycrm clients analyze <id>
  agencycrm clients stats [--json]
  agencycrm clients bulk-status --status <status> <id>...
  agencycrm clients insights [--json]

VIZ COMMANDS:
  agencycrm viz dashboard     Portfolio dashboard
  agencycrm viz graph         Service/client portfolio graph (DOT)
    --service <type>          Only include one service type
    --output <file>           Output file (default: stdout)

BACKUP COMMANDS:
  agencycrm backup push       Upload clients to Charm KV
  agencycrm backup pull --confirm  Restore clients from Charm KV
  agencycrm backup status     Show backup server and count
  agencycrm backup auto --enable|--disable

EXAMPLES:
  # Start MCP server
  agencycrm mcp

  # Add a client
  agencycrm clients add --name "Acme" --email "hello@acme.io" --service shopify --retainer 1500

  # List overdue clients
  agencycrm clients list --payment overdue

`, version)
}
