// Package cli provides the interactive chainstash command-line client.
//
// It wires configuration, the local upload journal, the wallet session, the
// ledger binding and the content gateway, then runs a REPL. A background
// watcher probes the chain endpoint and switches the prompt between online
// and offline.
//
// Commands:
//   - connect / disconnect / status
//   - account [address|new] (keystore wallet)
//   - select <path>, quote <days>, upload
//   - list, delete <cid>
//   - orphans, history
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
