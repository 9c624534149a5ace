package strategy

import "errors"

// ErrUnknownAlgorithm indicates that no selector is registered under a name.
var ErrUnknownAlgorithm = errors.New("unknown selection algorithm")
