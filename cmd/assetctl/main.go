package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

const usage = `Simple Asset CLI

Inspect, convert and manage asset envelopes.

USAGE:
  assetctl <command> [arguments] [options]

OFFLINE COMMANDS:
  detect  <file>         Detect the signature and media type of a file
  encode  <file>         Wrap a file in a v4 envelope
  decode  <envelope>     Extract the payload from an envelope (any version)
  inspect <envelope>     Print envelope metadata
  verify  <envelope>     Check an envelope's digests and layout
  upgrade <envelope>     Rewrite a legacy envelope as v4

STORE COMMANDS (use DATABASE_URL / STORAGE_URL):
  store <file>           Store a file and print its record
  load  <id>             Write a stored asset's payload
  list                   List stored assets
  scan                   Verify every stored asset
  stats                  Summarize stored assets

OPTIONS:
  --name=<name>          File name hint (detect, encode, store)
  --media-type=<type>    Media type hint (detect, encode, store)
  --out=<path>           Output file; "-" or empty writes to stdout where allowed
  --media-prefix=<p>     Filter by media type prefix (list, scan, stats)
  --signature=<sig>      Filter by signature name (list, scan, stats)
  --category=<c>         Filter by category (list, scan, stats)
  --limit=<n>            Maximum results (list, default: 100)
  --offset=<n>           Pagination offset (list, default: 0)
  --include-deleted      Include deleted assets (list)
  --allow-legacy         Do not flag intact legacy envelopes (scan)
  --dry-run              Count matching assets without verifying (scan)
  --json                 Output as JSON

ENVIRONMENT VARIABLES:
  DATABASE_URL           PostgreSQL connection string (default: in-memory)
  DB_SCHEMA              PostgreSQL schema name (default: asset)
  STORAGE_URL            memory://, file:///path, s3://bucket/prefix or pgblob://
  MAX_ASSET_SIZE         Largest accepted payload, e.g. 100MiB

  Configuration can be loaded from a .env file in the current directory.
`

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	args := parseArgs(os.Args[2:])
	ctx := context.Background()

	var err error
	switch command {
	case "detect":
		err = runDetect(args)
	case "encode":
		err = runEncode(args)
	case "decode":
		err = runDecode(args)
	case "inspect":
		err = runInspect(args)
	case "verify":
		err = runVerify(args)
	case "upgrade":
		err = runUpgrade(args)
	case "store", "load", "list", "scan", "stats":
		err = runStoreCommand(ctx, command, args)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		slog.Error("Command failed", "command", command, "err", err)
		os.Exit(1)
	}
}
