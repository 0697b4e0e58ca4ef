package port

import "errors"

// ErrDuplicate is returned by a PrimaryStore when the (tenant, fingerprint)
// pair is already recorded
var ErrDuplicate = errors.New("duplicate document")
