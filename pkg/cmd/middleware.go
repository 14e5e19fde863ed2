package cmd

// Middleware wraps a command; the result is still a Command.
type Middleware func(Command) Command

// Apply applies middlewares in order, so the last one is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
