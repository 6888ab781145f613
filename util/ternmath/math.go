// Copyright 2023-2024, Tern Labs, Inc.
// For license information, see https://github.com/ternchain/precompiles/blob/master/LICENSE.md

package ternmath

import "errors"

type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// WordsForBytes returns the number of eth-words needed to store n bytes
func WordsForBytes(nbytes uint64) uint64 {
	return (nbytes + 31) / 32
}

// SaturatingUAdd add two integers without overflow
func SaturatingUAdd[T Unsigned](a, b T) T {
	sum := a + b
	if sum < a || sum < b {
		sum = ^T(0)
	}
	return sum
}

// SaturatingUSub subtract an integer from another without underflow
func SaturatingUSub[T Unsigned](a, b T) T {
	if b >= a {
		return 0
	}
	return a - b
}

// SaturatingUMul multiply two integers without overflow
func SaturatingUMul[T Unsigned](a, b T) T {
	product := a * b
	if b != 0 && product/b != a {
		product = ^T(0)
	}
	return product
}

// SafeUAdd add two uint64's, erroring on overflow
func SafeUAdd(augend uint64, addend uint64) (uint64, error) {
	sum := augend + addend
	if sum < augend || sum < addend {
		return 0, errors.New("overflow")
	}
	return sum, nil
}

// SafeUMul multiply two uint64's, erroring on overflow
func SafeUMul(multiplicand uint64, multiplier uint64) (uint64, error) {
	product := multiplicand * multiplier
	if multiplier != 0 && product/multiplier != multiplicand {
		return 0, errors.New("overflow")
	}
	return product, nil
}
