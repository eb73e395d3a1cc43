// Package size converts administrator and recipe supplied resource strings
// into the units used by machine attributes: bytes for memory and
// floating-point cores for CPU.
package size

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"k8s.io/apimachinery/pkg/api/resource"
)

const bytesPerMegabyte = 1024 * 1024

// ErrCoresOutOfRange is returned for CPU amounts that do not fit in int64
// millicores
var ErrCoresOutOfRange = errors.New("CPU amount out of range")

// MegabytesToBytes converts an administrator-configured megabyte value
func MegabytesToBytes(mb int64) int64 {
	return mb * bytesPerMegabyte
}

// ParseCores parses a CPU amount such as "2", "0.5" or "500m" into cores.
// Negative values are accepted and mean "no limit".
func ParseCores(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty CPU value")
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid CPU value %q: %w", s, err)
	}
	cores := q.AsApproximateFloat64()
	if _, err := MilliCores(cores); err != nil {
		return 0, fmt.Errorf("invalid CPU value %q: %w", s, err)
	}
	return cores, nil
}

// MilliCores rounds a core count to whole millicores. Amounts that are not
// finite or overflow int64 millicores are rejected.
func MilliCores(cores float64) (int64, error) {
	milli := math.Round(cores * 1000)
	if math.IsNaN(milli) || milli >= math.MaxInt64 || milli < math.MinInt64 {
		return 0, fmt.Errorf("%w: %s cores", ErrCoresOutOfRange, FormatCores(cores))
	}
	return int64(milli), nil
}

// ParseMemory parses a memory amount into bytes. Docker style sizes
// ("512m", "1g", "1GiB") use binary multiples; anything else is tried as a
// Kubernetes quantity ("512Mi", "1e9").
func ParseMemory(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}
	if n, err := units.RAMInBytes(s); err == nil {
		return n, nil
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value %q: %w", s, err)
	}
	return q.Value(), nil
}

// FormatBytes encodes a byte count the way memory attributes store it
func FormatBytes(n int64) string {
	return strconv.FormatInt(n, 10)
}

// FormatCores encodes a core count the way CPU attributes store it
func FormatCores(cores float64) string {
	return strconv.FormatFloat(cores, 'f', -1, 64)
}

// HumanBytes renders a byte count for log and CLI output
func HumanBytes(n int64) string {
	if n <= 0 {
		return "unlimited"
	}
	return units.BytesSize(float64(n))
}

// BytesQuantity returns the container quantity for a memory amount
func BytesQuantity(n int64) resource.Quantity {
	return *resource.NewQuantity(n, resource.BinarySI)
}

// MilliCoresQuantity returns the container quantity for a CPU amount in
// millicores
func MilliCoresQuantity(milli int64) resource.Quantity {
	return *resource.NewMilliQuantity(milli, resource.DecimalSI)
}

// QuantityBytes returns the byte value of a memory quantity
func QuantityBytes(q resource.Quantity) int64 {
	return q.Value()
}

// QuantityCores returns the core value of a CPU quantity
func QuantityCores(q resource.Quantity) float64 {
	return float64(q.MilliValue()) / 1000
}
