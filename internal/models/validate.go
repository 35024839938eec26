package models

import "fmt"

// Validate checks the referential invariants of the board: columnOrder
// matches the column map, every listed task exists and no task is listed
// twice.
func (b Board) Validate() error {
	if len(b.ColumnOrder) != len(b.Columns) {
		return fmt.Errorf("column order has %d entries for %d columns", len(b.ColumnOrder), len(b.Columns))
	}
	seenCols := make(map[string]struct{}, len(b.ColumnOrder))
	for _, id := range b.ColumnOrder {
		if _, ok := b.Columns[id]; !ok {
			return fmt.Errorf("column order references unknown column %q", id)
		}
		if _, dup := seenCols[id]; dup {
			return fmt.Errorf("column %q listed twice in column order", id)
		}
		seenCols[id] = struct{}{}
	}

	seenTasks := make(map[string]string)
	for _, colID := range b.ColumnOrder {
		for _, taskID := range b.Columns[colID].TaskIDs {
			if _, ok := b.Tasks[taskID]; !ok {
				return fmt.Errorf("column %q references unknown task %q", colID, taskID)
			}
			if other, dup := seenTasks[taskID]; dup {
				return fmt.Errorf("task %q listed in both %q and %q", taskID, other, colID)
			}
			seenTasks[taskID] = colID
		}
	}
	return nil
}
