// Package ledger binds the FileStorage ledger contract: storage price reads,
// per-account file lists, record lookups, and the payable registration and
// deletion writes.
package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names.
const (
	methodStoragePrice = "storagePricePerDay"
	methodUserFiles    = "getUserFiles"
	methodGetFile      = "getFile"
	methodUploadFile   = "uploadFile"
	methodDeleteFile   = "deleteFile"
)

// FileStorageABI is the interface description of the ledger contract.
const FileStorageABI = `[
  {"type":"function","name":"storagePricePerDay","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getUserFiles","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"getFile","stateMutability":"view",
   "inputs":[{"name":"ipfsHash","type":"string"}],
   "outputs":[
     {"name":"owner","type":"address"},
     {"name":"timestamp","type":"uint256"},
     {"name":"isEncrypted","type":"bool"},
     {"name":"isPublic","type":"bool"},
     {"name":"storageCost","type":"uint256"},
     {"name":"expiryDate","type":"uint256"}]},
  {"type":"function","name":"uploadFile","stateMutability":"payable",
   "inputs":[
     {"name":"ipfsHash","type":"string"},
     {"name":"isEncrypted","type":"bool"},
     {"name":"isPublic","type":"bool"},
     {"name":"duration","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"deleteFile","stateMutability":"nonpayable",
   "inputs":[{"name":"ipfsHash","type":"string"}],
   "outputs":[]},
  {"type":"event","name":"FileUploaded","anonymous":false,"inputs":[
     {"name":"owner","type":"address","indexed":true},
     {"name":"ipfsHash","type":"string","indexed":false},
     {"name":"expiryDate","type":"uint256","indexed":false}]},
  {"type":"event","name":"FileDeleted","anonymous":false,"inputs":[
     {"name":"owner","type":"address","indexed":true},
     {"name":"ipfsHash","type":"string","indexed":false}]}
]`

var parsedABI = mustParseABI(FileStorageABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
