package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isConnected() bool
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Status(ctx context.Context) error
	Account(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	Quote(ctx context.Context, args []string) error
	Upload(ctx context.Context) error
	List(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	Orphans(ctx context.Context) error
	History(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit", or until
// ctx is cancelled. The first token of a line is the command and the rest
// are its arguments. Command errors are printed and the loop continues.
//
//	help                   show available commands
//	connect                connect the wallet
//	disconnect             forget the wallet session
//	status                 show wallet, chain and gateway status
//	account [addr|new]     list, switch or create keystore accounts
//	select <path>          choose the file to register
//	quote <days>           price storage for the selected duration
//	upload                 publish and register the selected file
//	(l)ist                 list files owned by the active account
//	delete <cid>           revoke one of your files
//	orphans                content published but never registered
//	history                local upload journal
//	exit | quit            leave the program
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("cs> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isConnected() {
				printlnFn("Available commands: status, account, select, quote, upload, (l)ist, delete, orphans, history, disconnect, exit")
			} else {
				printlnFn("Available commands: connect, status, account, select, orphans, history, exit")
			}

		case "connect":
			cmdErr = a.Connect(ctx)

		case "disconnect":
			cmdErr = a.Disconnect(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "account":
			cmdErr = a.Account(ctx, args)

		case "select":
			cmdErr = a.Select(ctx, args)

		case "quote":
			cmdErr = a.Quote(ctx, args)

		case "upload":
			cmdErr = a.Upload(ctx)

		case "l", "list":
			cmdErr = a.List(ctx)

		case "delete":
			cmdErr = a.Delete(ctx, args)

		case "orphans":
			cmdErr = a.Orphans(ctx)

		case "history":
			cmdErr = a.History(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}

		if err != nil {
			return
		}
	}
}
