package hooks

// Env is an ordered environment accumulator shared by a script chain.
// A script exports a variable to all later scripts by writing NAME=VALUE
// to its standard output; the orchestrator merges it in here.
type Env struct {
	keys   []string
	values map[string]string
}

// NewEnv creates an empty accumulator.
func NewEnv() *Env {
	return &Env{values: make(map[string]string)}
}

// Set adds or replaces a variable, keeping first-set order.
func (e *Env) Set(name, value string) {
	if _, ok := e.values[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.values[name] = value
}

// Get returns a variable's value.
func (e *Env) Get(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Pairs returns all variables as NAME=VALUE in first-set order.
func (e *Env) Pairs() []string {
	pairs := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		pairs = append(pairs, k+"="+e.values[k])
	}
	return pairs
}
