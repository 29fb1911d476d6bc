package core

import (
	"errors"
)

var (
	ErrLoadFailure      = errors.New("asset load failed")
	ErrUnknownAsset     = errors.New("unknown asset name")
	ErrUnsupportedAsset = errors.New("unsupported asset format")
	ErrEngineStopped    = errors.New("engine is not running")
	ErrUnknown          = errors.New("unknown")
)
