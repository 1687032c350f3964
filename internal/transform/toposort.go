package transform

import (
	"fmt"
	"slices"
)

// order performs dependency resolution using Kahn's algorithm.
// Ready passes are taken in registration order.
func order(passes []Pass) ([]Pass, error) {
	if len(passes) == 0 {
		return []Pass{}, nil
	}

	index := make(map[string]int, len(passes))
	for i, p := range passes {
		name := p.Name()
		if _, exists := index[name]; exists {
			return nil, fmt.Errorf("duplicate pass name: %q", name)
		}
		index[name] = i
	}

	inDegree := make([]int, len(passes))
	dependents := make([][]int, len(passes))
	for i, p := range passes {
		for _, dep := range p.Dependencies().MustRunAfter {
			j, exists := index[dep]
			if !exists {
				continue
			}
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	var ready []int
	for i := range passes {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]Pass, 0, len(passes))
	for len(ready) > 0 {
		slices.Sort(ready)
		current := ready[0]
		ready = ready[1:]
		result = append(result, passes[current])

		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(result) != len(passes) {
		var stuck []string
		for i, p := range passes {
			if inDegree[i] > 0 {
				stuck = append(stuck, p.Name())
			}
		}
		slices.Sort(stuck)
		return nil, fmt.Errorf("circular dependency detected involving passes: %v", stuck)
	}
	return result, nil
}
