package apicore

// BuildCollection binds every Configuration to its registered action and
// middlewares. The result has the same order and length as routes.
func BuildCollection(actions *ActionRegistry, middlewares *MiddlewareRegistry, routes RouteCollection) ([]Route, error) {
	bound := make([]Route, 0, len(routes))

	for _, cfg := range routes {
		action, ok := actions.Lookup(cfg.Action)
		if !ok || action == nil {
			return nil, &ResolutionError{Kind: actions.Kind(), Key: cfg.Key, Name: cfg.Action}
		}

		chain := make([]Middleware, 0, len(cfg.Middlewares))
		for _, name := range cfg.Middlewares {
			mw, ok := middlewares.Lookup(name)
			if !ok || mw == nil {
				return nil, &ResolutionError{Kind: middlewares.Kind(), Key: cfg.Key, Name: name}
			}
			chain = append(chain, mw)
		}

		bound = append(bound, Route{
			Configuration: cfg,
			Handler:       action,
			Chain:         chain,
		})
	}

	return bound, nil
}
