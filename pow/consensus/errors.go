// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import "errors"

var (
	errNBitsOutOfRange  = errors.New("consensus: nBits out of range")
	errUndersizedNBits  = errors.New("consensus: nBits too small to derive a valid trailing-zero count")
	errOffsetTooLarge   = errors.New("consensus: offset exceeds 2^trailingZeros")
	errInvalidShift     = errors.New("consensus: header shift invalid")
	errNoPatternMatched = errors.New("consensus: no accepted constellation pattern matched")
)
