package command

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

// Parameter is a single command parameter. An empty Name makes it positional.
type Parameter struct {
	Name     string `json:"name,omitempty"`
	Value    any    `json:"value,omitempty"`
	TypeName string `json:"typeName,omitempty"`
}

// Command is one stage of a pipeline.
type Command struct {
	CommandText string      `json:"commandText"`
	Parameters  []Parameter `json:"parameters"`
}

// AddParameter appends a named parameter to the command.
func (c *Command) AddParameter(name string, value any, typeName ...string) *Command {
	c.Parameters = append(c.Parameters, Parameter{Name: name, Value: value, TypeName: firstOrEmpty(typeName)})

	return c
}

// AddArgument appends a positional argument to the command.
func (c *Command) AddArgument(value any, typeName ...string) *Command {
	c.Parameters = append(c.Parameters, Parameter{Value: value, TypeName: firstOrEmpty(typeName)})

	return c
}

// Pipeline is an ordered sequence of commands.
//
// The zero value is an empty pipeline ready for use. Methods return the
// pipeline for chaining. Misuse, such as adding a parameter before any
// command, is recorded and reported by Err.
type Pipeline struct {
	Commands []*Command `json:"commands"`

	err error
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{Commands: make([]*Command, 0, 2)}
}

// AddCommand appends a command and makes it the target of later
// AddParameter and AddArgument calls.
func (p *Pipeline) AddCommand(name string) *Pipeline {
	p.Commands = append(p.Commands, &Command{CommandText: name, Parameters: []Parameter{}})

	return p
}

// AddParameter appends a named parameter to the most recently added command.
func (p *Pipeline) AddParameter(name string, value any, typeName ...string) *Pipeline {
	cmd := p.current("parameter " + name)
	if cmd != nil {
		cmd.AddParameter(name, value, typeName...)
	}

	return p
}

// AddArgument appends a positional argument to the most recently added command.
func (p *Pipeline) AddArgument(value any, typeName ...string) *Pipeline {
	cmd := p.current("argument")
	if cmd != nil {
		cmd.AddArgument(value, typeName...)
	}

	return p
}

// Command returns the command at index i, or nil if i is out of range.
func (p *Pipeline) Command(i int) *Command {
	if i < 0 || i >= len(p.Commands) {
		return nil
	}

	return p.Commands[i]
}

// Len returns the number of commands in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.Commands)
}

// Err reports the first misuse recorded while building the pipeline, or
// ErrEmptyPipeline if it has no commands.
func (p *Pipeline) Err() error {
	if p.err != nil {
		return p.err
	}

	if len(p.Commands) == 0 {
		return errors.ErrEmptyPipeline
	}

	return nil
}

// MarshalJSON implements json.Marshaler. Commands always carry a
// parameters array, empty when there are none.
func (p *Pipeline) MarshalJSON() ([]byte, error) {
	commands := make([]Command, 0, len(p.Commands))

	for _, cmd := range p.Commands {
		if cmd == nil {
			continue
		}

		c := *cmd
		if c.Parameters == nil {
			c.Parameters = []Parameter{}
		}

		commands = append(commands, c)
	}

	return json.Marshal(struct {
		Commands []Command `json:"commands"`
	}{Commands: commands})
}

// current returns the last command, recording an error if there is none.
func (p *Pipeline) current(what string) *Command {
	if len(p.Commands) > 0 {
		return p.Commands[len(p.Commands)-1]
	}

	if p.err == nil {
		p.err = fmt.Errorf("add %s: %w", what, errors.ErrEmptyPipeline)
	}

	return nil
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
