package apicore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Processor turns raw route records into a validated RouteCollection.
// It performs no I/O.
type Processor struct {
	validate *validator.Validate
}

func NewProcessor() *Processor {
	return &Processor{validate: validator.New()}
}

// Process validates every record and returns them in the same order.
// The first invalid record aborts processing with a *ConfigurationError.
func (p *Processor) Process(raw []RawRoute) (RouteCollection, error) {
	collection := make(RouteCollection, 0, len(raw))
	seenKeys := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		if strings.TrimSpace(r.Key) == "" {
			return nil, &ConfigurationError{Key: r.Key, Reason: "route key is empty"}
		}
		if _, dup := seenKeys[r.Key]; dup {
			return nil, &ConfigurationError{Key: r.Key, Reason: "route key is declared twice"}
		}
		seenKeys[r.Key] = struct{}{}

		cfg, err := p.processOne(r)
		if err != nil {
			return nil, err
		}
		collection = append(collection, cfg)
	}

	return collection, nil
}

func (p *Processor) processOne(r RawRoute) (Configuration, error) {
	if err := p.validate.Struct(r); err != nil {
		return Configuration{}, &ConfigurationError{Key: r.Key, Reason: validationReason(err)}
	}

	methods := make([]Method, 0, len(r.Methods))
	seen := make(map[Method]struct{}, len(r.Methods))
	for _, raw := range r.Methods {
		if strings.TrimSpace(raw) == "" {
			return Configuration{}, &ConfigurationError{Key: r.Key, Reason: "method is empty"}
		}
		m, err := ParseMethod(raw)
		if err != nil {
			return Configuration{}, &ConfigurationError{Key: r.Key, Method: raw}
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		methods = append(methods, m)
	}

	middlewares := make([]string, 0, len(r.Middlewares))
	for _, name := range r.Middlewares {
		name = strings.TrimSpace(name)
		if name == "" {
			return Configuration{}, &ConfigurationError{Key: r.Key, Reason: "middleware name is empty"}
		}
		middlewares = append(middlewares, name)
	}

	return Configuration{
		Key:         r.Key,
		Route:       r.Route,
		Methods:     methods,
		Action:      strings.TrimSpace(r.Action),
		Middlewares: middlewares,
	}, nil
}

func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("%s is required", field)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
