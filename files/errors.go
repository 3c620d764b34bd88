package files

import "errors"

var (
	// ErrUploadFailed means a resolved write was attempted and the backend
	// reported failure. Inputs that could not be interpreted at all do not
	// produce this error; they produce a nil result.
	ErrUploadFailed = errors.New("files: upload failed")

	// ErrExpireAfterTooLong mirrors the configuration ceiling; raised at
	// service construction, never at call time.
	ErrExpireAfterTooLong = errors.New("files: expire-after must not be more than 7 days")
)
