package importers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawParser(t *testing.T) {
	p := RawParser{}
	tasks := p.Parse("pwn1 | pwn\nweb1|web\n\nloner\n | nameless\n")

	require.Len(t, tasks, 3)
	assert.Equal(t, ParsedTask{Title: "pwn1", Tags: []string{"pwn"}}, tasks[0])
	assert.Equal(t, ParsedTask{Title: "web1", Tags: []string{"web"}}, tasks[1])
	assert.Equal(t, ParsedTask{Title: "loner"}, tasks[2])
}

func TestCTFdParser(t *testing.T) {
	p := CTFdParser{}
	payload := `{"data":[
		{"name":"pwn1","category":"pwn","tags":[{"value":"heap"},{"value":"pwn"}]},
		{"name":"","category":"web"},
		{"name":"rev1","category":"rev"}
	]}`

	assert.True(t, p.IsValid(payload))
	tasks := p.Parse(payload)
	require.Len(t, tasks, 2)
	assert.Equal(t, "pwn1", tasks[0].Title)
	assert.Equal(t, []string{"heap", "pwn"}, tasks[0].Tags)
	assert.Equal(t, "rev1", tasks[1].Title)
	assert.Equal(t, []string{"rev"}, tasks[1].Tags)

	assert.False(t, p.IsValid("not json"))
	assert.False(t, p.IsValid(`{"data":[]}`))
}

func TestRCTFParser(t *testing.T) {
	p := RCTFParser{}
	payload := `{"data":[
		{"name":"pwn1","category":"pwn","tags":[{"value":"heap"},{"value":"pwn"}]},
		{"name":"web1","category":"web"}
	]}`

	assert.True(t, p.IsValid(payload))
	tasks := p.Parse(payload)
	require.Len(t, tasks, 2)

	// Категория добавляется к тегам без дублирования.
	assert.Equal(t, []string{"heap", "pwn"}, tasks[0].Tags)
	assert.Equal(t, []string{"web"}, tasks[1].Tags)
}

func TestGuess(t *testing.T) {
	parser, ok := Guess(`{"data":[{"name":"pwn1","category":"pwn"}]}`)
	require.True(t, ok)
	assert.Equal(t, "CTFd", parser.Name())

	parser, ok = Guess("pwn1 | pwn")
	require.True(t, ok)
	assert.Equal(t, "Raw", parser.Name())

	_, ok = Guess("   ")
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	parser, ok := ByName("RCTF")
	require.True(t, ok)
	assert.Equal(t, "RCTF", parser.Name())

	_, ok = ByName("HTB")
	assert.False(t, ok)
}
