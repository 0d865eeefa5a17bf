package scenario

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestExtract(t *testing.T) {
	t.Parallel()
	markdown := `# Calls

Some prose that is ignored.

## Test: add
` + "```stone" + `
def add(a:int, b:int): int { a + b }
add(2, 3)
` + "```" + `
` + "```output" + `
Evaluated to 5
` + "```" + `

## Test: unknown function
` + "```stone" + `
g(1)
` + "```" + `
` + "```error" + `
unresolved reference
` + "```" + `
` + "```output" + `
` + "```"

	cases, err := Extract(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	be.Equal(t, cases[0].Name, "add")
	be.Equal(t, cases[0].Source, "def add(a:int, b:int): int { a + b }\nadd(2, 3)\n")
	be.Equal(t, cases[0].Output, "Evaluated to 5\n")
	be.True(t, cases[0].HasOutput)
	be.Equal(t, cases[0].Error, "")
	be.Equal(t, cases[0].Line, 5)

	be.Equal(t, cases[1].Name, "unknown function")
	be.Equal(t, cases[1].Error, "unresolved reference")
	be.True(t, cases[1].HasOutput)
	be.Equal(t, cases[1].Output, "")
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		markdown string
		message  string
	}{
		{
			"fence outside scenario",
			"```stone\n1\n```\n",
			"line 2: `stone` fence outside of a scenario",
		},
		{
			"no program",
			"## Test: empty\n```output\n1\n```\n",
			"scenario 'empty' has no program",
		},
		{
			"no expectation",
			"## Test: lonely\n```stone\n1\n```\n",
			"scenario 'lonely' expects nothing",
		},
		{
			"unknown fence",
			"## Test: odd\n```stone\n1\n```\n```ast\n(top 1)\n```\n",
			"unknown fence `ast` in scenario 'odd'",
		},
		{
			"two programs",
			"## Test: twice\n```stone\n1\n```\n```stone\n2\n```\n",
			"scenario 'twice' has two programs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.markdown)
			be.Err(t, err, tt.message)
		})
	}
}
