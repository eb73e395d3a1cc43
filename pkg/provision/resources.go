package provision

import (
	"fmt"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/size"
	"github.com/cuemby/burrow/pkg/types"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ResourceLimitProvisioner resolves memory and CPU limits and requests for
// every machine and writes them to both the machine attributes and the
// container. For each quantity the machine attribute wins, then a non-zero
// value already on the container, then the administrator default.
type ResourceLimitProvisioner struct {
	defaults types.ResourceDefaults
}

// NewResourceLimitProvisioner creates a resource limit provisioner
func NewResourceLimitProvisioner(defaults types.ResourceDefaults) *ResourceLimitProvisioner {
	return &ResourceLimitProvisioner{defaults: defaults}
}

// Name returns the provisioner name
func (p *ResourceLimitProvisioner) Name() string {
	return "resource-limits"
}

// Provision resolves resources container by container. An unparseable
// resource attribute fails the run.
func (p *ResourceLimitProvisioner) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	for _, c := range env.Containers() {
		machine, ok := env.Machines[c.MachineName]
		if !ok {
			return machineError(identity, c.MachineName,
				fmt.Errorf("%w for container %q in pod %q", ErrMissingMachine, c.Spec.Name, c.Pod.Name()))
		}
		if machine.Attributes == nil {
			machine.Attributes = make(map[string]string)
		}

		if err := p.provisionMemory(env, c, machine.Attributes); err != nil {
			return machineError(identity, c.MachineName, err)
		}
		if err := p.provisionCPU(env, c, machine.Attributes); err != nil {
			return machineError(identity, c.MachineName, err)
		}
	}
	return nil
}

func (p *ResourceLimitProvisioner) provisionMemory(env *environment.InternalEnvironment, c environment.Container, attrs map[string]string) error {
	resources := &c.Spec.Resources
	containerLimit := size.QuantityBytes(resources.Limits[corev1.ResourceMemory])
	containerRequest := size.QuantityBytes(resources.Requests[corev1.ResourceMemory])

	if err := ResolveMemory(attrs, containerLimit, containerRequest,
		p.defaults.MemoryLimitBytes, p.defaults.MemoryRequestBytes); err != nil {
		return err
	}

	limit, _, err := environment.MemoryLimit(attrs)
	if err != nil {
		return err
	}
	request, _, err := environment.MemoryRequest(attrs)
	if err != nil {
		return err
	}

	if limit > 0 {
		resources.Limits = setQuantity(resources.Limits, corev1.ResourceMemory, size.BytesQuantity(limit))
	}
	if request > 0 {
		resources.Requests = setQuantity(resources.Requests, corev1.ResourceMemory, size.BytesQuantity(request))
	}
	if limit > 0 && request > limit {
		env.AddWarning(types.WarningRequestExceedsLimit,
			"Machine %q requests %s of memory which exceeds its limit of %s",
			c.MachineName, size.HumanBytes(request), size.HumanBytes(limit))
	}
	return nil
}

func (p *ResourceLimitProvisioner) provisionCPU(env *environment.InternalEnvironment, c environment.Container, attrs map[string]string) error {
	resources := &c.Spec.Resources
	containerLimit := size.QuantityCores(resources.Limits[corev1.ResourceCPU])
	containerRequest := size.QuantityCores(resources.Requests[corev1.ResourceCPU])

	if err := ResolveCPU(attrs, containerLimit, containerRequest,
		p.defaults.CPULimitCores, p.defaults.CPURequestCores); err != nil {
		return err
	}

	limit, _, err := environment.CPULimit(attrs)
	if err != nil {
		return err
	}
	request, _, err := environment.CPURequest(attrs)
	if err != nil {
		return err
	}

	// Amounts below one millicore round to zero and are left unset.
	limitMilli, err := size.MilliCores(limit)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", environment.ErrInvalidAttribute, types.CPULimitAttribute, err)
	}
	requestMilli, err := size.MilliCores(request)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", environment.ErrInvalidAttribute, types.CPURequestAttribute, err)
	}

	if limitMilli > 0 {
		resources.Limits = setQuantity(resources.Limits, corev1.ResourceCPU, size.MilliCoresQuantity(limitMilli))
	}
	if requestMilli > 0 {
		resources.Requests = setQuantity(resources.Requests, corev1.ResourceCPU, size.MilliCoresQuantity(requestMilli))
	}
	if limitMilli > 0 && requestMilli > limitMilli {
		env.AddWarning(types.WarningRequestExceedsLimit,
			"Machine %q requests %s cores which exceeds its limit of %s cores",
			c.MachineName, size.FormatCores(request), size.FormatCores(limit))
	}
	return nil
}

// ResolveMemory fills in missing memory limit and request attributes. Limit
// and request are resolved independently: an attribute already present is
// kept, otherwise a non-zero container value, otherwise the default.
func ResolveMemory(attrs map[string]string, containerLimit, containerRequest, defaultLimit, defaultRequest int64) error {
	if _, present, err := environment.MemoryLimit(attrs); err != nil {
		return err
	} else if !present {
		environment.SetMemoryLimit(attrs, firstNonZero(containerLimit, defaultLimit))
	}

	if _, present, err := environment.MemoryRequest(attrs); err != nil {
		return err
	} else if !present {
		environment.SetMemoryRequest(attrs, firstNonZero(containerRequest, defaultRequest))
	}
	return nil
}

// ResolveCPU is the CPU counterpart of ResolveMemory, in cores
func ResolveCPU(attrs map[string]string, containerLimit, containerRequest, defaultLimit, defaultRequest float64) error {
	if _, present, err := environment.CPULimit(attrs); err != nil {
		return err
	} else if !present {
		environment.SetCPULimit(attrs, firstNonZero(containerLimit, defaultLimit))
	}

	if _, present, err := environment.CPURequest(attrs); err != nil {
		return err
	} else if !present {
		environment.SetCPURequest(attrs, firstNonZero(containerRequest, defaultRequest))
	}
	return nil
}

func firstNonZero[T int64 | float64](containerValue, defaultValue T) T {
	if containerValue != 0 {
		return containerValue
	}
	return defaultValue
}

func setQuantity(list corev1.ResourceList, name corev1.ResourceName, value resource.Quantity) corev1.ResourceList {
	if list == nil {
		list = make(corev1.ResourceList)
	}
	list[name] = value
	return list
}
