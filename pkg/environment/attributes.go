package environment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cuemby/burrow/pkg/size"
	"github.com/cuemby/burrow/pkg/types"
)

// ErrInvalidAttribute is returned when a resource attribute is present but
// cannot be parsed.
var ErrInvalidAttribute = errors.New("invalid resource attribute")

// MemoryLimit returns the memory limit attribute in bytes
func MemoryLimit(attrs map[string]string) (int64, bool, error) {
	return bytesAttr(attrs, types.MemoryLimitAttribute)
}

// SetMemoryLimit stores the memory limit attribute in bytes
func SetMemoryLimit(attrs map[string]string, bytes int64) {
	attrs[types.MemoryLimitAttribute] = size.FormatBytes(bytes)
}

// MemoryRequest returns the memory request attribute in bytes
func MemoryRequest(attrs map[string]string) (int64, bool, error) {
	return bytesAttr(attrs, types.MemoryRequestAttribute)
}

// SetMemoryRequest stores the memory request attribute in bytes
func SetMemoryRequest(attrs map[string]string, bytes int64) {
	attrs[types.MemoryRequestAttribute] = size.FormatBytes(bytes)
}

// CPULimit returns the CPU limit attribute in cores
func CPULimit(attrs map[string]string) (float64, bool, error) {
	return coresAttr(attrs, types.CPULimitAttribute)
}

// SetCPULimit stores the CPU limit attribute in cores
func SetCPULimit(attrs map[string]string, cores float64) {
	attrs[types.CPULimitAttribute] = size.FormatCores(cores)
}

// CPURequest returns the CPU request attribute in cores
func CPURequest(attrs map[string]string) (float64, bool, error) {
	return coresAttr(attrs, types.CPURequestAttribute)
}

// SetCPURequest stores the CPU request attribute in cores
func SetCPURequest(attrs map[string]string, cores float64) {
	attrs[types.CPURequestAttribute] = size.FormatCores(cores)
}

func bytesAttr(attrs map[string]string, key string) (int64, bool, error) {
	raw, ok := attrs[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %s=%q is not a byte count", ErrInvalidAttribute, key, raw)
	}
	return v, true, nil
}

func coresAttr(attrs map[string]string, key string) (float64, bool, error) {
	raw, ok := attrs[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true, fmt.Errorf("%w: %s=%q is not a core count", ErrInvalidAttribute, key, raw)
	}
	if _, err := size.MilliCores(v); err != nil {
		return 0, true, fmt.Errorf("%w: %s=%q: %v", ErrInvalidAttribute, key, raw, err)
	}
	return v, true, nil
}
