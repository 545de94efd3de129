package indexers

import (
	"github.com/rbellamy/primegap/blockchain"
	"github.com/rbellamy/primegap/chaincfg"
	"github.com/rbellamy/primegap/database"
	"github.com/btcsuite/btcd/btcutil"
)

// AddrIndex represents an address index
type AddrIndex struct {
	db          database.DB
	chainParams *chaincfg.Params
}

// NewAddrIndex creates a new address index
func NewAddrIndex(db database.DB, chainParams *chaincfg.Params) *AddrIndex {
	return &AddrIndex{
		db:          db,
		chainParams: chainParams,
	}
}
