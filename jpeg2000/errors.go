// Package jpeg2000 implements the JPEG 2000 tile codec pipeline: color
// transform, wavelet transform, Tier-1 entropy coding, rate allocation
// and Tier-2 packetization, in both directions, per tile.
// Reference: ISO/IEC 15444-1:2019.
package jpeg2000

import "errors"

// Error kinds. Call sites wrap them with context via fmt.Errorf and %w.
var (
	// ErrCorruptInput marks unparseable compressed input: unexpected
	// markers, bad tag trees, segment overflow.
	ErrCorruptInput = errors.New("jpeg2000: corrupt input")

	// ErrOutOfBounds marks geometry violations such as a precinct index
	// outside its band or tile bounds beyond the image.
	ErrOutOfBounds = errors.New("jpeg2000: out of bounds")

	// ErrInconsistentParams marks invalid coding parameters.
	ErrInconsistentParams = errors.New("jpeg2000: inconsistent parameters")

	// ErrAllocationFailure marks a scratch or code-block buffer that
	// could not grow to the required size.
	ErrAllocationFailure = errors.New("jpeg2000: allocation failure")

	// ErrRateControlInfeasible reports that no slope threshold reaches
	// the requested rate; a best-effort layer is still produced.
	ErrRateControlInfeasible = errors.New("jpeg2000: rate control infeasible")
)
