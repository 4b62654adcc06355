package domain

import (
	"sort"

	"github.com/pkg/errors"
)

// Baseline saga types
const (
	SagaTypeCreateOrder = "create_order"
	SagaTypeCancelOrder = "cancel_order"
)

// Definition is the ordered step list of a saga type and the compensating
// action that undoes each step
type Definition struct {
	Type          string
	Steps         []string
	Compensations map[string]string
}

// CompensationFor returns the action undoing stepName
func (d Definition) CompensationFor(stepName string) (string, bool) {
	action, ok := d.Compensations[stepName]
	return action, ok
}

// StepAt returns the step name at position index
func (d Definition) StepAt(index int) (string, bool) {
	if index < 0 || index >= len(d.Steps) {
		return "", false
	}
	return d.Steps[index], true
}

func (d Definition) validate() error {
	if d.Type == "" {
		return errors.Wrap(ErrInvalidDefinition, "saga type is required")
	}
	if len(d.Steps) == 0 {
		return errors.Wrapf(ErrInvalidDefinition, "%s: at least one step is required", d.Type)
	}

	seen := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if step == "" {
			return errors.Wrapf(ErrInvalidDefinition, "%s: empty step name", d.Type)
		}
		if seen[step] {
			return errors.Wrapf(ErrInvalidDefinition, "%s: duplicate step %q", d.Type, step)
		}
		seen[step] = true

		if action := d.Compensations[step]; action == "" {
			return errors.Wrapf(ErrInvalidDefinition, "%s: step %q has no compensating action", d.Type, step)
		}
	}

	for step := range d.Compensations {
		if !seen[step] {
			return errors.Wrapf(ErrInvalidDefinition, "%s: compensation for unknown step %q", d.Type, step)
		}
	}
	return nil
}

func (d Definition) clone() Definition {
	steps := make([]string, len(d.Steps))
	copy(steps, d.Steps)
	compensations := make(map[string]string, len(d.Compensations))
	for k, v := range d.Compensations {
		compensations[k] = v
	}
	return Definition{Type: d.Type, Steps: steps, Compensations: compensations}
}

// Registry is the immutable catalog of saga definitions
type Registry struct {
	definitions map[string]Definition
}

// NewRegistry validates and freezes the given definitions. A later definition
// replaces an earlier one with the same type.
func NewRegistry(definitions ...Definition) (*Registry, error) {
	r := &Registry{definitions: make(map[string]Definition, len(definitions))}
	for _, def := range definitions {
		if err := def.validate(); err != nil {
			return nil, err
		}
		r.definitions[def.Type] = def.clone()
	}
	if len(r.definitions) == 0 {
		return nil, errors.Wrap(ErrInvalidDefinition, "registry needs at least one saga type")
	}
	return r, nil
}

// GetDefinition returns the definition of sagaType, or ErrUnknownSagaType
func (r *Registry) GetDefinition(sagaType string) (Definition, error) {
	def, ok := r.definitions[sagaType]
	if !ok {
		return Definition{}, errors.Wrapf(ErrUnknownSagaType, "%q", sagaType)
	}
	return def.clone(), nil
}

// Types lists the registered saga types in lexical order
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.definitions))
	for t := range r.definitions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// BaselineDefinitions returns the order creation and cancellation flows
func BaselineDefinitions() []Definition {
	return []Definition{
		{
			Type: SagaTypeCreateOrder,
			Steps: []string{
				"validate_order",
				"reserve_inventory",
				"create_order",
				"charge_payment",
				"send_order_notification",
			},
			Compensations: map[string]string{
				"validate_order":          "invalidate_order",
				"reserve_inventory":       "release_inventory",
				"create_order":            "cancel_order",
				"charge_payment":          "refund_payment",
				"send_order_notification": "send_order_cancelled_notification",
			},
		},
		{
			Type: SagaTypeCancelOrder,
			Steps: []string{
				"validate_cancellation",
				"refund_payment",
				"release_inventory",
				"cancel_order",
				"send_cancellation_notification",
			},
			Compensations: map[string]string{
				"validate_cancellation":          "invalidate_cancellation",
				"refund_payment":                 "charge_payment",
				"release_inventory":              "reserve_inventory",
				"cancel_order":                   "restore_order",
				"send_cancellation_notification": "send_cancellation_retracted_notification",
			},
		},
	}
}
