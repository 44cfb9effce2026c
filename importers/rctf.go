package importers

import "encoding/json"

// RCTFParser разбирает ответ rCTF /api/v1/challs.
type RCTFParser struct{}

type rctfChallenge struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Tags     []struct {
		Value string `json:"value"`
	} `json:"tags"`
}

type rctfPayload struct {
	Data []rctfChallenge `json:"data"`
}

func (RCTFParser) Name() string { return "RCTF" }

func (RCTFParser) Hint() string { return "paste /api/v1/challs" }

func (RCTFParser) IsValid(raw string) bool {
	var payload rctfPayload
	return json.Unmarshal([]byte(raw), &payload) == nil && payload.Data != nil
}

func (RCTFParser) Parse(raw string) []ParsedTask {
	var payload rctfPayload
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
