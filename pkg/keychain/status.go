package keychain

import "strconv"

// Status is the result code of a vault primitive.
type Status int32

// Status values returned by vault primitives. Only success, item-not-found
// and interaction-not-allowed change client behavior; the rest are named
// for diagnostics.
const (
	StatusSuccess               Status = 0
	StatusUnimplemented         Status = -4
	StatusParam                 Status = -50
	StatusAllocate              Status = -108
	StatusUserCanceled          Status = -128
	StatusNotAvailable          Status = -25291
	StatusAuthFailed            Status = -25293
	StatusDuplicateItem         Status = -25299
	StatusItemNotFound          Status = -25300
	StatusInteractionNotAllowed Status = -25308
	StatusDecode                Status = -26275
)

func (s Status) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// StatusDescriber is implemented by vaults that can turn a status into a
// human-readable message.
type StatusDescriber interface {
	DescribeStatus(status Status) (string, bool)
}
