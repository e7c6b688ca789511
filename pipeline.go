package prepd

import "fmt"

// Stage is one pure pipeline step: a table in, a table out, no other
// state. Stages never mutate their input.
type Stage func(*Table) (*Table, error)

// Pipe threads the table through the stages in order, releasing every
// intermediate table. The input table is not released.
func Pipe(tbl *Table, stages ...Stage) (*Table, error) {
	current := tbl
	for i, stage := range stages {
		next, err := stage(current)
		if current != tbl {
			current.Release()
		}
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

// Named wraps a stage so its errors carry the stage name.
func Named(name string, stage Stage) Stage {
	return func(tbl *Table) (*Table, error) {
		out, err := stage(tbl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return out, nil
	}
}
