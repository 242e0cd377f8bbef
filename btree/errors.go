package btree

import "errors"

var (
	// ErrBadIndexInfo means an existing index file's persisted attribute
	// offset or kind does not match the caller's.
	ErrBadIndexInfo = errors.New("index metadata does not match requested attribute")

	// ErrBadOpcodes means a scan was started with an operator outside
	// {GT, GTE} for the lower bound or {LT, LTE} for the upper bound.
	ErrBadOpcodes = errors.New("invalid scan operators")

	// ErrBadScanRange means the scan's lower bound exceeds its upper bound.
	ErrBadScanRange = errors.New("scan lower bound exceeds upper bound")

	// ErrScanNotInitialized means ScanNext or EndScan was called with no
	// active scan.
	ErrScanNotInitialized = errors.New("no scan in progress")

	// ErrIndexScanCompleted means no further entries satisfy the scan.
	ErrIndexScanCompleted = errors.New("index scan completed")

	// ErrNoSuchKeyFound means an equality lookup matched no entry.
	ErrNoSuchKeyFound = errors.New("no such key in index")
)
