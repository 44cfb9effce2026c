package importers

import "strings"

// RawParser разбирает построчный список "название | категория".
// Категория необязательна.
type RawParser struct{}

func (RawParser) Name() string { return "Raw" }

func (RawParser) Hint() string { return "name1 | cat1\nname2 | cat2" }

func (RawParser) IsValid(raw string) bool {
	return strings.TrimSpace(raw) != ""
}

func (RawParser) Parse(raw string) []ParsedTask {
	var tasks []ParsedTask
	for _, line := range strings.Split(raw, "\n") {
		title, category, _ := strings.Cut(line, "|")
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}

		task := ParsedTask{Title: title}
		if category = strings.TrimSpace(category); category != "" {
			task.Tags = []string{category}
		}
		tasks = append(tasks, task)
	}
	return tasks
}
