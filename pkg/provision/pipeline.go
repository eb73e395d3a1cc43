package provision

import (
	"fmt"
	"strconv"

	"github.com/cuemby/burrow/pkg/environment"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/cuemby/burrow/pkg/types"
	"github.com/rs/zerolog"
)

// Pipeline runs an ordered list of provisioners against one environment.
// A Pipeline holds no per-run state, so one instance may serve concurrent
// runs on distinct environments.
type Pipeline struct {
	provisioners []Provisioner
	logger       zerolog.Logger
	broker       *events.Broker
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithBroker publishes provisioning events to the broker
func WithBroker(broker *events.Broker) Option {
	return func(p *Pipeline) {
		p.broker = broker
	}
}

// NewPipeline creates a pipeline running provisioners in the given order
func NewPipeline(provisioners []Provisioner, opts ...Option) *Pipeline {
	p := &Pipeline{
		provisioners: append([]Provisioner(nil), provisioners...),
		logger:       log.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provisioners returns the provisioners in execution order
func (p *Pipeline) Provisioners() []Provisioner {
	return append([]Provisioner(nil), p.provisioners...)
}

// Provision validates env and runs every provisioner in order, stopping at
// the first failure. On failure env is left partially provisioned and must
// be discarded by the caller. The returned error is always an
// *InfrastructureError.
func (p *Pipeline) Provision(identity types.RuntimeIdentity, env *environment.InternalEnvironment) error {
	timer := metrics.NewTimer()
	logger := p.logger.With().Str("workspace_id", identity.WorkspaceID).Logger()

	p.publish(events.EventProvisionStarted, identity, "provisioning started", nil)
	logger.Debug().Int("provisioners", len(p.provisioners)).Msg("Provisioning started")

	if infraErr := p.run(identity, env, logger); infraErr != nil {
		metrics.ProvisionRunsTotal.WithLabelValues(string(types.ProvisionStatusFailed)).Inc()
		timer.ObserveDuration(metrics.ProvisionDuration)

		p.publish(events.EventProvisionFailed, identity, infraErr.Error(), map[string]string{
			"provisioner": infraErr.Provisioner,
			"machine":     infraErr.Machine,
		})
		logger.Error().Err(infraErr).Msg("Provisioning failed")
		return infraErr
	}

	for _, w := range env.Warnings {
		metrics.WarningsTotal.WithLabelValues(strconv.Itoa(w.Code)).Inc()
	}
	metrics.ProvisionRunsTotal.WithLabelValues(string(types.ProvisionStatusSucceeded)).Inc()
	timer.ObserveDuration(metrics.ProvisionDuration)

	p.publish(events.EventProvisionCompleted, identity, "provisioning completed", map[string]string{
		"machines": strconv.Itoa(len(env.Machines)),
		"warnings": strconv.Itoa(len(env.Warnings)),
	})
	logger.Info().
		Int("machines", len(env.Machines)).
		Int("warnings", len(env.Warnings)).
		Dur("duration", timer.Duration()).
		Msg("Provisioning completed")
	return nil
}

func (p *Pipeline) run(identity types.RuntimeIdentity, env *environment.InternalEnvironment, logger zerolog.Logger) *InfrastructureError {
	if env == nil {
		return &InfrastructureError{
			WorkspaceID: identity.WorkspaceID,
			Err:         fmt.Errorf("%w: environment is nil", ErrInvalidEnvironment),
		}
	}
	if err := env.Validate(); err != nil {
		return &InfrastructureError{
			WorkspaceID: identity.WorkspaceID,
			Err:         fmt.Errorf("%w: %v", ErrInvalidEnvironment, err),
		}
	}

	for _, provisioner := range p.provisioners {
		name := provisioner.Name()
		timer := metrics.NewTimer()
		err := provisioner.Provision(identity, env)
		timer.ObserveDurationVec(metrics.ProvisionerDuration, name)

		if err != nil {
			metrics.ProvisionerFailures.WithLabelValues(name).Inc()
			infraErr := asInfrastructureError(identity, name, err)
			p.publish(events.EventProvisionerFailed, identity, infraErr.Error(), map[string]string{
				"provisioner": name,
			})
			return infraErr
		}
		logger.Debug().Str("provisioner", name).Dur("duration", timer.Duration()).Msg("Provisioner applied")
	}
	return nil
}

func (p *Pipeline) publish(eventType events.EventType, identity types.RuntimeIdentity, msg string, metadata map[string]string) {
	if p.broker == nil {
		return
	}
	p.broker.Publish(&events.Event{
		Type:        eventType,
		WorkspaceID: identity.WorkspaceID,
		Message:     msg,
		Metadata:    metadata,
	})
}
