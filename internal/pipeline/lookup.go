package pipeline

import (
	"fmt"
	"strings"

	"stealthcompany.com/labmerge/internal/dataset"
	"stealthcompany.com/labmerge/internal/exam"
	"stealthcompany.com/labmerge/internal/metrics"
)

// Lookup methods
const (
	MethodSequential = "sequential"
	MethodBinary     = "binary"
)

// Lookup finds every exam of the named patient. Binary lookup needs a
// dataset produced by Sort.
func Lookup(ds *dataset.Dataset, name, method string) ([]exam.Record, error) {
	var (
		hits []exam.Record
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(method)) {
	case "", MethodSequential:
		method = MethodSequential
		hits = ds.FindSequential(name)
	case MethodBinary:
		method = MethodBinary
		hits, err = ds.FindBinary(name)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown lookup method %q, use sequential or binary", exam.ErrInvalidArgument, method)
	}

	metrics.RecordLookup(method, len(hits))
	return hits, nil
}
