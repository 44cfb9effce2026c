package importers

import "encoding/json"

// CTFdParser разбирает ответ CTFd /api/v1/challenges.
type CTFdParser struct{}

type ctfdChallenge struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Tags     []struct {
		Value string `json:"value"`
	} `json:"tags"`
}

type ctfdPayload struct {
	Data []ctfdChallenge `json:"data"`
}

func (CTFdParser) Name() string { return "CTFd" }

func (CTFdParser) Hint() string { return "paste /api/v1/challenges" }

func (CTFdParser) IsValid(raw string) bool {
	var payload ctfdPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return false
	}
	for _, c := range payload.Data {
		if c.Name != "" && c.Category != "" {
			return true
		}
	}
	return false
}

func (CTFdParser) Parse(raw string) []ParsedTask {
	var payload ctfdPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}

	var tasks []ParsedTask
	for _, c := range payload.Data {
		if c.Name == "" || c.Category == "" {
			continue
		}

		seen := map[string]bool{}
		var tags []string
		for _, t := range c.Tags {
			if t.Value != "" && !seen[t.Value] {
				seen[t.Value] = true
				tags = append(tags, t.Value)
			}
		}
		if !seen[c.Category] {
			tags = append(tags, c.Category)
		}

		tasks = append(tasks, ParsedTask{Title: c.Name, Tags: tags})
	}
	return tasks
}
