package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Item is a uniquely identified unit minted by the token registry. The id and
// metadata URI are fixed at mint time; only custody changes afterwards.
type Item struct {
	ID          uint64
	MetadataURI string
	Minter      common.Address
	Custodian   common.Address
	MintedAt    time.Time
}
