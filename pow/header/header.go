// Copyright (c) 2025 Shell Reserve developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package header implements the 120-byte prime-gap block header: the
// 84-byte hashed partition shared with the rest of the chain, and the
// 36-byte proof partition that carries the miner's shift/adder solution.
//
// This layout is wire-visible consensus data (spec §3, §6) and must not
// change: the hashed partition's byte order and field sizes are exactly
// what CheckProofOfWork and the header hash depend on.
package header

import (
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/rbellamy/primegap/pow/bigz"
)

const (
	// HashedPartitionSize is the size, in bytes, of the fields that are
	// hashed to produce the header's identity.
	HashedPartitionSize = 84

	// ProofPartitionSize is the size, in bytes, of the proof fields that
	// are excluded from the hash so miners can iterate proof-space without
	// changing the puzzle.
	ProofPartitionSize = 36

	// Size is the total on-wire header size.
	Size = HashedPartitionSize + ProofPartitionSize

	// MinShift and MaxShift bound the proof partition's Shift field (spec
	// §3 invariant).
	MinShift = 14
	MaxShift = 256
)

// ErrInvalidShift is returned when a header's Shift field falls outside
// [MinShift, MaxShift].
var ErrInvalidShift = errors.New("header: shift out of range")

// ErrAdderTooLarge is returned when Adder >= 2^Shift.
var ErrAdderTooLarge = errors.New("header: adder exceeds 2^shift")

// Header is the consensus view of a prime-gap block header (spec §3).
type Header struct {
	// Hashed partition (84 bytes).
	Version     int32
	PrevHash    [32]byte
	MerkleRoot  [32]byte
	Time        uint32
	Difficulty  bigz.Q48
	Nonce       uint32

	// Proof partition (36 bytes, excluded from the hash).
	Shift    uint16
	Adder    [32]byte
	Reserved uint16
}

// Validate checks the structural invariants of spec §3: MinShift <= Shift
// <= MaxShift, and Adder < 2^Shift.
func (h Header) Validate() error {
	if h.Shift < MinShift || h.Shift > MaxShift {
		return ErrInvalidShift
	}
	adder := bigz.FromBytesLE(h.Adder[:])
	if adder.BitLen() > int(h.Shift) {
		return ErrAdderTooLarge
	}
	return nil
}

// EncodeHashed serializes only the 84-byte hashed partition.
func (h Header) EncodeHashed() [HashedPartitionSize]byte {
	var out [HashedPartitionSize]byte
	binary.LittleEndian.PutUint32(out[0:4], uint32(h.Version))
	copy(out[4:36], h.PrevHash[:])
	copy(out[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(out[68:72], h.Time)
	binary.LittleEndian.PutUint64(out[72:80], uint64(h.Difficulty))
	binary.LittleEndian.PutUint32(out[80:84], h.Nonce)
	return out
}

// Encode serializes the full 120-byte header.
func (h Header) Encode() [Size]byte {
	var out [Size]byte
	hashed := h.EncodeHashed()
	copy(out[:HashedPartitionSize], hashed[:])

	proof := out[HashedPartitionSize:]
	binary.LittleEndian.PutUint16(proof[0:2], h.Shift)
	copy(proof[2:34], h.Adder[:])
	binary.LittleEndian.PutUint16(proof[34:36], h.Reserved)
	return out
}

// Decode parses a 120-byte header.
func Decode(b [Size]byte) Header {
	var h Header
	h.Version = int32(binary.LittleEndian.Uint32(b[0:4]))
	copy(h.PrevHash[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Time = binary.LittleEndian.Uint32(b[68:72])
	h.Difficulty = bigz.Q48(binary.LittleEndian.Uint64(b[72:80]))
	h.Nonce = binary.LittleEndian.Uint32(b[80:84])

	proof := b[HashedPartitionSize:]
	h.Shift = binary.LittleEndian.Uint16(proof[0:2])
	copy(h.Adder[:], proof[2:34])
	h.Reserved = binary.LittleEndian.Uint16(proof[34:36])
	return h
}

// Hash returns the double-SHA-256 of the hashed partition only. Mutating
// Shift, Adder, or Reserved never changes this value (spec invariant 4).
func (h Header) Hash() chainhash.Hash {
	hashed := h.EncodeHashed()
	return chainhash.DoubleHashH(hashed[:])
}

// Start returns hash * 2^Shift + Adder, the candidate starting prime a
// miner must demonstrate primality for (spec §3).
func (h Header) Start() bigz.Z {
	hash := h.Hash()
	hashInt := bigz.FromBytesLE(hash[:])
	shifted := bigz.Lsh(hashInt, uint(h.Shift))
	adder := bigz.FromBytesLE(h.Adder[:])
	return bigz.Add(shifted, adder)
}
