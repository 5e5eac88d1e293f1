package telemetry

import "github.com/vango-dev/reactive/pkg/collection"

type multi []collection.Observer

// Multi fans every callback out to observers in order. Nil observers are
// skipped; with none left Multi returns nil, which collections treat as
// "no observer".
func Multi(observers ...collection.Observer) collection.Observer {
	var m multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

func (m multi) ObserveChange(name, op string, count int) {
	for _, o := range m {
		o.ObserveChange(name, op, count)
	}
}

func (m multi) ObserveRecompute(name, cause string) {
	for _, o := range m {
		o.ObserveRecompute(name, cause)
	}
}
