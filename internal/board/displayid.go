package board

import (
	"strconv"
	"strings"

	"kanban/internal/models"
)

const (
	prefixLen      = 5
	fallbackPrefix = "TASK"
)

// DisplayPrefix returns the upper-cased first five characters of the
// project name.
func DisplayPrefix(projectName string) string {
	name := []rune(strings.TrimSpace(projectName))
	if len(name) == 0 {
		return fallbackPrefix
	}
	if len(name) > prefixLen {
		name = name[:prefixLen]
	}
	return strings.ToUpper(string(name))
}

// NextDisplayNumber returns the number of the next displayId: one above the
// highest number among tasks sharing the project prefix, or above seq if the
// project already issued a higher number. Numbers are never reused.
func NextDisplayNumber(tasks map[string]models.Task, projectName string, seq int) int {
	prefix := DisplayPrefix(projectName) + "-"
	highest := max(seq, 0)
	for _, t := range tasks {
		rest, ok := strings.CutPrefix(t.DisplayID, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest + 1
}
