// Package services implements the chainstash workflows on top of the wallet
// session, the ledger binding, the content gateway and the local journal.
//
// RegistrationService validates a selected file, quotes the storage cost at
// the live ledger price, publishes the file and registers it on the ledger.
// FileService lists and revokes the records owned by an account.
//
// Services never hold contract handles across calls: every operation binds
// again from the current session snapshot.
package services
