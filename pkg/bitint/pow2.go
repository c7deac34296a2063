// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used for FFT block sizing.

	// Round a requested block size up to something the FFT accepts
	length := bitint.NextPowerOfTwo(1000) // 1024

	// Verify a configured block size
	ok := bitint.IsPowerOfTwo(length)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Non-positive sizes
// return 1.
//
// size-1 keeps exact powers of two in place: bits.Len(7) is 3 and 1<<3 is 8,
// while bits.Len(8) would give 16.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two has a
// single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
