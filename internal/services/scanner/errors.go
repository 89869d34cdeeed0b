package scanner

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrScanIncomplete marks a pool scan that exhausted its retry budget on
// a sub-range. The scan's output must be discarded: partial coverage
// would corrupt downstream volume totals.
var ErrScanIncomplete = errors.New("scan incomplete")

// MalformedEventError reports a log entry that could not be decoded into
// a trade record. It is permanent: the scanner aborts rather than skip
// the record, since a dropped trade breaks the distribution's sum
// invariant.
type MalformedEventError struct {
	TxHash   common.Hash
	LogIndex int64
	Reason   string
	Err      error
}

func (e *MalformedEventError) Error() string {
	msg := fmt.Sprintf("malformed event %s log %d: %s", e.TxHash.Hex(), e.LogIndex, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
