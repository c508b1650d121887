package contextmanager

import "errors"

// ErrTamperDetected is returned by VerifyIntegrityStrict when the
// journal's raw content no longer matches the last recorded audit hash
// — i.e. the journal was mutated outside the supported API
// (original_source's TamperDetectedError, spec.md §7).
var ErrTamperDetected = errors.New("observation journal does not match last audit hash")
